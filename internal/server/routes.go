package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wmachuca/localstack-studio/internal/version"
)

func (s *Server) registerRoutes() {
	s.echo.Use(middleware.RequestID())
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.echo.GET("/", s.handleInfo)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/queues", s.handleListQueues)
	s.echo.POST("/queue", s.handleCreateQueue)
	s.echo.GET("/queue/:name", s.handleGetQueue)
	s.echo.DELETE("/queue/:name", s.handleDeleteQueue)
	s.echo.POST("/queue/:name/message", s.handleSendMessage)
	s.echo.DELETE("/queue/:name/message", s.handleDeleteMessage)
	s.echo.POST("/queue/:name/purge", s.handlePurgeQueue)

	tables := s.echo.Group("/dynamodb/tables")
	tables.GET("", s.handleListTables)
	tables.POST("", s.handleCreateTable)
	tables.GET("/:table", s.handleDescribeTable)
	tables.DELETE("/:table", s.handleDeleteTable)
	tables.POST("/:table/scan", s.handleScanTable)
	tables.POST("/:table/query", s.handleQueryTable)
	tables.POST("/:table/items/get", s.handleGetItem)
	tables.POST("/:table/items", s.handlePutItem)
	tables.DELETE("/:table/items", s.handleDeleteItem)

	s.echo.GET("/ws/messages/:queue", s.handleMessageStream)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("Request", attrs...)
			return nil
		},
	})
}

func (s *Server) handleInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "localstack-studio",
		"version": version.Version,
	})
}
