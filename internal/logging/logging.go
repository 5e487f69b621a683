// Package logging は設定からロガーを組み立てる
package logging

import (
	"io"
	"os"

	"robocam/internal/config"

	"github.com/rs/zerolog"
)

// New は cfg に従ったロガーを作成する
// out が nil の場合は標準エラー出力に書き込む
func New(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("app", "robocam").
		Logger()
}

// ParseLevel はレベル名を zerolog のレベルに変換する
// 不明な名前は info とみなす
func ParseLevel(name string) zerolog.Level {
	switch name {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
