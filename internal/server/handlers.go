package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"robocam/internal/camera"
	"robocam/internal/generated"
	"robocam/internal/mjpeg"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ストリームの終了理由
const (
	endDisconnect    = "disconnect"
	endCaptureFailed = "capture_failed"
	endWriteError    = "write_error"
)

// GetStatus は状態取得エンドポイントの実装
// フレームソースには触れない
func (s *StreamingService) GetStatus(c *gin.Context) {
	response := generated.StatusResponse{
		Status: generated.Ok,
		Ip:     s.provider.Address(),
	}

	c.JSON(http.StatusOK, response)
}

// GetCapture は単体フレーム取得エンドポイントの実装
func (s *StreamingService) GetCapture(c *gin.Context) {
	ctx := c.Request.Context()

	done, ok := s.enterWorker(ctx)
	if !ok {
		return
	}
	defer done()

	logger := s.sessionLogger(c, "capture")
	s.metrics.ActiveSessions.WithLabelValues("capture").Inc()
	defer s.metrics.ActiveSessions.WithLabelValues("capture").Dec()

	err := s.source.WithLease(ctx, func(lease *camera.Lease) error {
		return mjpeg.WriteSingle(c.Writer, lease)
	})
	if err == nil {
		logger.Debug().Msg("フレームを送信しました")
		return
	}

	if ctx.Err() != nil {
		logger.Debug().Err(err).Msg("フレームの取得中にクライアントが切断しました")
		return
	}

	var captureErr *camera.CaptureError
	if errors.As(err, &captureErr) {
		logger.Error().Err(err).Msg("カメラのキャプチャに失敗しました")
		mjpeg.WriteCaptureFailure(c.Writer)
		return
	}

	// ヘッダー送信後の書き込みエラーはクライアント側の切断
	logger.Debug().Err(err).Msg("フレームの送信中に切断されました")
}

// GetStream はMJPEGストリーミングエンドポイントの実装
func (s *StreamingService) GetStream(c *gin.Context) {
	ctx := c.Request.Context()

	done, ok := s.enterWorker(ctx)
	if !ok {
		return
	}
	defer done()

	logger := s.sessionLogger(c, "stream")
	s.metrics.ActiveSessions.WithLabelValues("stream").Inc()
	defer s.metrics.ActiveSessions.WithLabelValues("stream").Dec()

	if err := mjpeg.WriteStreamHeader(c.Writer); err != nil {
		logger.Debug().Err(err).Msg("ストリームヘッダーの送信に失敗しました")
		return
	}
	logger.Info().Msg("クライアントが接続しました")

	start := time.Now()
	frames, reason := s.streamLoop(ctx, c.Writer, logger)
	s.metrics.StreamEnds.WithLabelValues(reason).Inc()

	logger.Info().
		Str("reason", reason).
		Int("frames", frames).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("クライアントが切断しました")
}

// streamLoop はクライアントが切断するかキャプチャに失敗するまでフレームを送り続ける
// 送信したフレーム数と終了理由を返す
func (s *StreamingService) streamLoop(ctx context.Context, w io.Writer, logger zerolog.Logger) (int, string) {
	interval := s.config.Camera.FrameInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	frames := 0
	for {
		// 送信前の生存確認
		if ctx.Err() != nil {
			return frames, endDisconnect
		}

		err := s.source.WithLease(ctx, func(lease *camera.Lease) error {
			return mjpeg.WriteStreamFrame(w, lease)
		})
		if err != nil {
			var captureErr *camera.CaptureError
			switch {
			case ctx.Err() != nil:
				return frames, endDisconnect
			case errors.As(err, &captureErr):
				logger.Error().Err(err).Int("frames", frames).Msg("カメラのキャプチャに失敗したためストリームを終了します")
				return frames, endCaptureFailed
			default:
				logger.Debug().Err(err).Msg("フレームの送信に失敗しました")
				return frames, endWriteError
			}
		}
		frames++
		s.metrics.StreamFrames.Inc()

		// 送信後の生存確認
		if ctx.Err() != nil {
			return frames, endDisconnect
		}

		// 固定間隔で待つ（送信にかかった時間は差し引かない）
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return frames, endDisconnect
		case <-timer.C:
		}
	}
}

// enterWorker はワーカー枠を1つ確保する
// 待機中にクライアントが切断した場合は false を返す
func (s *StreamingService) enterWorker(ctx context.Context) (func(), bool) {
	select {
	case s.workers <- struct{}{}:
	case <-ctx.Done():
		s.logger.Debug().Msg("ワーカー枠の待機中にクライアントが切断しました")
		return nil, false
	}

	s.active.Add(1)
	return func() {
		s.active.Add(-1)
		<-s.workers
	}, true
}

// sessionLogger はセッションIDを付けたロガーを返す
func (s *StreamingService) sessionLogger(c *gin.Context, capability string) zerolog.Logger {
	return s.logger.With().
		Str("session", uuid.NewString()).
		Str("capability", capability).
		Str("client", c.ClientIP()).
		Logger()
}
