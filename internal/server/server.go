// Package server 提供翻译服务和质量管理的 HTTP API。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/internal/auth"
	"github.com/nerdneilsfield/evaltrans/internal/config"
	"github.com/nerdneilsfield/evaltrans/pkg/content"
	"github.com/nerdneilsfield/evaltrans/pkg/providers/stats"
	"github.com/nerdneilsfield/evaltrans/pkg/report"
	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

// Deps 服务依赖
type Deps struct {
	Service    translation.Service
	Content    *content.Translator
	Stats      *stats.Manager // 可选
	Auth       *auth.Authenticator
	Thresholds report.Thresholds
	Logger     *zap.Logger
}

// Server HTTP 服务
type Server struct {
	config config.ServerConfig
	deps   Deps
	engine *gin.Engine
	logger *zap.Logger
}

// New 创建 HTTP 服务
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Service == nil {
		return nil, errors.New("translation service is required")
	}
	if deps.Content == nil {
		return nil, errors.New("content translator is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("authenticator is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Thresholds == (report.Thresholds{}) {
		deps.Thresholds = report.DefaultThresholds()
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger.Named("http"),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler 返回 http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), ginLogger(s.logger), ginRecovery(s.logger))

	r.GET("/healthz", s.healthz)

	api := r.Group("/api/v1", s.deps.Auth.Middleware())
	{
		api.GET("/languages", s.languages)
		api.GET("/backends", s.backends)

		api.POST("/translate", s.translate)
		api.POST("/translate/batch", s.translateBatch)

		api.GET("/translations", s.listTranslations)
		api.GET("/translations/stats", s.translationStats)
		api.GET("/translations/export", s.exportTranslations)
		api.POST("/translations/gc", s.collectGarbage)
		api.PUT("/translations/:cacheKey", s.improveTranslation)

		api.POST("/content/:type", s.saveContent)
		api.GET("/content/:type/:id", s.listContent)
		api.GET("/content/:type/:id/:lang", s.getContent)
	}
	return r
}

// Run 启动服务，ctx 取消时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
