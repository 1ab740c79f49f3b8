package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"OpinionMatch/internal/api"
	"OpinionMatch/internal/config"
	"OpinionMatch/internal/service"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	buildOnce := flag.Bool("build", false, "只执行一次索引构建后退出（不启动 HTTP 服务）")
	flag.Parse()

	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logrusLogger := logrus.New()
	if cfg.Server.Debug {
		logrusLogger.SetLevel(logrus.DebugLevel)
	} else {
		logrusLogger.SetLevel(logrus.InfoLevel)
	}
	logrusLogger.Info("配置文件加载成功")

	// 3. 初始化服务
	buildService := service.NewBuildService(cfg, logrusLogger)
	matchService := service.NewMatchService(&cfg.Match, logrusLogger)

	// 一次性构建模式：跑完即退出，方便定时任务调用
	if *buildOnce {
		if _, err := buildService.RunBuild(context.Background()); err != nil {
			logrusLogger.Fatalf("构建索引失败: %v", err)
		}
		return
	}

	// 4. 启动时尝试加载已有快照预热匹配器（没有快照不是错误）
	if snapshot := buildService.LoadSnapshot(context.Background()); snapshot != nil {
		matchService.Reload(snapshot)
	} else {
		logrusLogger.Warn("没有可用的索引快照，匹配接口在首次构建前不可用")
	}

	// 5. 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	// 注册ppof 方便调试和监测性能问题
	pprof.Register(r)
	logrusLogger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	// 6. 注册API路由
	buildHandler := api.NewBuildHandler(buildService, matchService, logrusLogger)
	r.POST("/sync/index", buildHandler.TriggerBuild)

	matchHandler := api.NewMatchHandler(matchService, logrusLogger)
	r.POST("/api/match", matchHandler.Match)
	r.GET("/api/match", matchHandler.MatchQuery)
	r.GET("/api/meta", matchHandler.Meta)

	// 7. 启动服务（从配置读取端口）
	port := cfg.Server.Port
	logrusLogger.Infof("服务启动成功，端口：%d", port)
	if err := r.Run(fmt.Sprintf(":%d", port)); err != nil {
		logrusLogger.Fatalf("启动服务失败: %v", err)
	}
}
