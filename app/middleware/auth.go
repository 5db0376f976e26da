package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/tamyadav31/BOT-GPT/internal/auth"
)

// 无需认证的路径前缀
var publicPaths = []string{
	"/health",
	"/metrics",
	"/api/auth/login",
}

// JWTAuthMiddleware 返回JWT鉴权过滤器
// 校验Bearer token并把user_id写入请求上下文
func JWTAuthMiddleware(jwtService *auth.JWTService) func(ctx *context.Context) {
	return func(ctx *context.Context) {
		path := ctx.Input.URL()
		if path == "/" {
			return
		}
		for _, p := range publicPaths {
			if strings.HasPrefix(path, p) {
				return
			}
		}
		// 用户注册是公开接口
		if path == "/api/users" && ctx.Input.Method() == http.MethodPost {
			return
		}

		tokenString, err := auth.ExtractTokenFromHeader(ctx.Input.Header("Authorization"))
		if err != nil {
			unauthorized(ctx, err.Error())
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			unauthorized(ctx, "invalid or expired token")
			return
		}

		ctx.Input.SetData("user_id", claims.UserID)
	}
}

// unauthorized 返回401响应
func unauthorized(ctx *context.Context, message string) {
	ctx.Output.SetStatus(http.StatusUnauthorized)
	ctx.Output.Header("Content-Type", "application/json; charset=utf-8")
	body, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   message,
	})
	ctx.Output.Body(body)
}
