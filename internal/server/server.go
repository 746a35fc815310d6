// Package server exposes the reconciliation engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/vpnbill/internal/billstore"
	"github.com/smallbiznis/vpnbill/internal/config"
	directorydomain "github.com/smallbiznis/vpnbill/internal/directory/domain"
	ledgerdomain "github.com/smallbiznis/vpnbill/internal/ledger/domain"
	obslogger "github.com/smallbiznis/vpnbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/vpnbill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/vpnbill/internal/observability/tracing"
	reconciledomain "github.com/smallbiznis/vpnbill/internal/reconcile/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(m *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware())
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	reconcileSvc reconciledomain.Service
	postings     ledgerdomain.Lister
	directory    directorydomain.Directory
	bills        billstore.Store
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	ReconcileSvc reconciledomain.Service
	Postings     ledgerdomain.Lister
	Directory    directorydomain.Directory
	Bills        billstore.Store
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		reconcileSvc: p.ReconcileSvc,
		postings:     p.Postings,
		directory:    p.Directory,
		bills:        p.Bills,
	}
}

func registerRoutes(s *Server) {
	v1 := s.engine.Group("/v1")

	v1.POST("/bills", s.UploadBill)
	v1.GET("/bills/:period", s.DownloadBill)

	v1.POST("/reconciliation/preview", s.PreviewBatch)
	v1.POST("/reconciliation/confirm", s.ConfirmBatch)

	v1.GET("/subscribers/:phone/postings", s.ListSubscriberPostings)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
