package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"robocam/internal/camera"
	"robocam/internal/config"
	"robocam/internal/generated"
	"robocam/internal/metrics"
	"robocam/internal/mjpeg"
	"robocam/internal/network"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// FrameSource はハンドラーが使うフレームソースの操作
type FrameSource interface {
	WithLease(ctx context.Context, fn func(*camera.Lease) error) error
	Stats() camera.Stats
}

// StreamingService はHTTPサーバーとその依存をまとめて所有する
// 起動時に1つだけ作成し、ハンドラーはこの値のメソッドとして動く
type StreamingService struct {
	config   *config.Config
	source   FrameSource
	provider network.Provider
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	// /capture と /stream の同時実行数を制限するトークン
	workers chan struct{}
	active  atomic.Int64

	router        *gin.Engine
	httpServer    *http.Server
	metricsServer *http.Server
	scheduler     *cron.Cron

	// リクエストのコンテキストの親。Shutdown でキャンセルしてストリームを終わらせる
	baseCtx    context.Context
	baseCancel context.CancelFunc

	shutdownOnce sync.Once
	shutdownErr  error
}

var _ generated.ServerInterface = (*StreamingService)(nil)

// New は新しい StreamingService を作成する
func New(cfg *config.Config, source FrameSource, provider network.Provider, logger zerolog.Logger) *StreamingService {
	gin.SetMode(gin.ReleaseMode)

	workers := cfg.Server.MaxCameraClients
	if workers < 1 {
		workers = 1
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	s := &StreamingService{
		config:     cfg,
		source:     source,
		provider:   provider,
		logger:     logger.With().Str("component", "server").Logger(),
		metrics:    metrics.New(source),
		workers:    make(chan struct{}, workers),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter はルートを設定する
func (s *StreamingService) setupRouter() *gin.Engine {
	r := gin.New()

	// 完全一致のみ。末尾スラッシュの補正やメソッド違いの 405 は返さない
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = false

	r.Use(s.recovery(), s.accessLog())

	generated.RegisterHandlersWithOptions(r, s, generated.GinServerOptions{
		Middlewares: []generated.MiddlewareFunc{allowAnyOrigin},
	})

	r.NoRoute(s.notFound)

	return r
}

// Router はHTTPハンドラーを返す
func (s *StreamingService) Router() http.Handler {
	return s.router
}

// Metrics はメトリクスを返す
func (s *StreamingService) Metrics() *metrics.Metrics {
	return s.metrics
}

// ActiveConnections は処理中の /capture と /stream の数を返す
func (s *StreamingService) ActiveConnections() int64 {
	return s.active.Load()
}

// Start はサーバーを起動し、ctx のキャンセル・シグナル・サーバーエラーのいずれかまでブロックする
func (s *StreamingService) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return s.baseCtx
		},
	}

	// シャットダウン用のチャンネル
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTPサーバーを起動しています")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	if s.config.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		s.metricsServer = &http.Server{
			Addr:        s.config.Metrics.Addr,
			Handler:     mux,
			ReadTimeout: s.config.Server.ReadTimeout,
		}

		go func() {
			s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("メトリクスサーバーを起動しています")
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("メトリクスサーバーの起動に失敗: %w", err)
			}
		}()
	}

	if err := s.startScheduler(); err != nil {
		_ = s.Shutdown()
		return err
	}

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info().Msg("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info().Str("signal", sig.String()).Msg("シグナルを受信しました")
	case err := <-errCh:
		_ = s.Shutdown()
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 進行中のストリームはキャンセルされ、次の生存確認で終了する
func (s *StreamingService) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.logger.Info().Msg("サーバーをシャットダウンしています...")

		if s.scheduler != nil {
			<-s.scheduler.Stop().Done()
		}

		s.baseCancel()

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("サーバーのシャットダウンに失敗: %w", err))
			}
		}
		if s.metricsServer != nil {
			if err := s.metricsServer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("メトリクスサーバーのシャットダウンに失敗: %w", err))
			}
		}

		s.shutdownErr = errors.Join(errs...)
		if s.shutdownErr == nil {
			s.logger.Info().Msg("サーバーが正常にシャットダウンされました")
		}
	})
	return s.shutdownErr
}

// notFound は未登録のパスに 404 を返す
func (s *StreamingService) notFound(c *gin.Context) {
	mjpeg.SetCORS(c.Writer.Header())
	c.String(http.StatusNotFound, "Not found")
}
