package server

import (
	"context"
	"net/http"
	"tune-fusion/app/config"
	"tune-fusion/app/database"
	"tune-fusion/app/handler"
	"tune-fusion/app/logger"
	"tune-fusion/app/middleware"
	"tune-fusion/app/service"
	"tune-fusion/app/utils/ffmpeghelper"
	"tune-fusion/app/utils/oembedhelper"
	"tune-fusion/app/utils/ytdlphelper"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server
	mashup *service.MashupService
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog(log))

	// 组装串烧服务及其外部依赖
	mashupSvc := service.NewMashupService(
		cfg,
		log,
		database.GetDB(),
		ytdlphelper.New(cfg),
		ffmpeghelper.New(cfg),
		service.NewEmailService(cfg),
	)
	mashupSvc.SetTitleLookup(oembedhelper.New())

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config: cfg,
		Logger: log,
		mashup: mashupSvc,
	}

	// 设置路由
	s.setupRoutes()

	return s
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 启动残留会话目录清理任务
	s.mashup.Sessions().StartSweeper()

	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// 停止会话目录清理任务
	s.mashup.Sessions().StopSweeper()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	// 创建处理器实例
	mashupHandler := handler.NewMashupHandler(s.Logger, s.mashup)
	logsHandler := handler.NewLogsHandler(s.Logger, s.mashup)

	// 提交页面
	s.gin.LoadHTMLGlob("templates/*")
	s.gin.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", nil)
	})

	// API路由组
	api := s.gin.Group("/api")
	{
		mashup := api.Group("/mashup")
		{
			mashup.POST("", mashupHandler.CreateMashup)
			mashup.GET("/:id", mashupHandler.GetJob)
			mashup.GET("/:id/logs", logsHandler.Stream)
		}
	}
}
