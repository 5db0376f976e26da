package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/tamyadav31/BOT-GPT/app/controllers"
	"github.com/tamyadav31/BOT-GPT/app/middleware"
	"github.com/tamyadav31/BOT-GPT/internal/auth"
	"github.com/tamyadav31/BOT-GPT/internal/metrics"
)

// Controllers 已装配好依赖的控制器集合
type Controllers struct {
	User         *controllers.UserController
	Auth         *controllers.AuthController
	Document     *controllers.DocumentController
	Conversation *controllers.ConversationController
	Health       *controllers.HealthController
}

// Init registers all routes. Must be called after config is loaded.
func Init(c Controllers, jwtService *auth.JWTService) {
	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)
	web.InsertFilter("/api/*", web.BeforeRouter, middleware.JWTAuthMiddleware(jwtService))

	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", c.Health, "get:Health")
	web.Handler("/metrics", metrics.Handler())

	// 用户与认证路由
	web.Router("/api/users", c.User, "get:List;post:Create")
	web.Router("/api/users/:id", c.User, "get:Get")
	web.Router("/api/auth/login", c.Auth, "post:Login")
	web.Router("/api/auth/refresh", c.Auth, "post:Refresh")

	// 文档路由
	web.Router("/api/documents", c.Document, "get:List;post:Create")
	web.Router("/api/documents/cache/stats", c.Document, "get:CacheStats")
	web.Router("/api/documents/:id", c.Document, "get:Get;delete:Delete")

	// 对话路由
	web.Router("/api/conversations", c.Conversation, "get:List;post:Create")
	web.Router("/api/conversations/:id", c.Conversation, "get:Get;delete:Delete")
	web.Router("/api/conversations/:id/messages", c.Conversation, "get:GetMessages;post:AddMessage")
}
