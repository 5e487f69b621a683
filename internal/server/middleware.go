package server

import (
	"net/http"
	"strconv"
	"time"

	"robocam/internal/mjpeg"

	"github.com/gin-gonic/gin"
)

// allowAnyOrigin はすべての応答にクロスオリジン許可ヘッダーを付ける
func allowAnyOrigin(c *gin.Context) {
	mjpeg.SetCORS(c.Writer.Header())
}

// accessLog はリクエストごとにアクセスログとメトリクスを記録する
func (s *StreamingService) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		latency := time.Since(start)
		status := c.Writer.Status()

		s.metrics.RequestCount.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(latency.Seconds())

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Int64("latency_ms", latency.Milliseconds()).
			Str("client", c.ClientIP()).
			Msg("request")
	}
}

// recovery はハンドラーのパニックをログに記録して 500 を返す
func (s *StreamingService) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		s.logger.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("ハンドラーでパニックが発生しました")
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
