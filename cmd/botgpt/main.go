package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"github.com/tamyadav31/BOT-GPT/app/bootstrap"
	"github.com/tamyadav31/BOT-GPT/internal/config"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"go.uber.org/zap"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	// 配置Beego全局设置
	web.BConfig.AppName = "bot-gpt-backend"
	web.BConfig.CopyRequestBody = true
	if config.AppConfig.Server.Env == "development" {
		web.BConfig.RunMode = web.DEV
	} else {
		web.BConfig.RunMode = web.PROD
	}
	if port, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("Starting BOT-GPT backend", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
