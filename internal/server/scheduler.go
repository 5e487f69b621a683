package server

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// cronLogger は cron のログを zerolog に流す
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// startScheduler は統計ログの定期出力を開始する
func (s *StreamingService) startScheduler() error {
	if s.config.Stats.Schedule == "" {
		return nil
	}

	logger := cronLogger{logger: s.logger.With().Str("component", "scheduler").Logger()}
	s.scheduler = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := s.scheduler.AddFunc(s.config.Stats.Schedule, s.logStats); err != nil {
		return fmt.Errorf("統計ログのスケジュール登録に失敗: %w", err)
	}

	s.scheduler.Start()
	return nil
}

// logStats はフレームソースの計数値を記録する
// 処理中の接続がないのに貸出中のフレームがあれば返却漏れとして警告する
func (s *StreamingService) logStats() {
	st := s.source.Stats()
	active := s.ActiveConnections()

	event := s.logger.Info()
	if st.Outstanding > 0 && active == 0 {
		event = s.logger.Warn()
	}

	event.
		Uint64("acquired", st.Acquired).
		Uint64("released", st.Released).
		Uint64("failures", st.Failures).
		Uint64("violations", st.Violations).
		Uint64("drops", st.Drops).
		Uint64("outstanding", st.Outstanding).
		Int64("active_connections", active).
		Msg("フレームソースの統計")
}
