package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// chdirTemp は設定ファイルのないディレクトリに移動する
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// TestLoad_デフォルト値 は設定ファイルがない場合の読み込みをテストする
func TestLoad_デフォルト値(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.Equal(t, 1, cfg.Server.MaxCameraClients)

	assert.Equal(t, "ffmpeg", cfg.Camera.Driver)
	assert.Equal(t, 10_000_000, cfg.Camera.XCLKHz)
	assert.Equal(t, 5*time.Second, cfg.Camera.AcquireTimeout)
	assert.Equal(t, 33*time.Millisecond, cfg.Camera.FrameInterval)

	assert.Equal(t, "192.168.4.1", cfg.Network.AdvertiseIP)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "@every 1m", cfg.Stats.Schedule)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
}

func TestLoad_設定ファイル(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
server:
  port: 9000
  max_camera_clients: 2
camera:
  driver: testpattern
  acquire_timeout: 250ms
  testpattern:
    fps: 10
    expanded: true
network:
  advertise_ip: 10.0.0.5
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.MaxCameraClients)
	assert.Equal(t, "testpattern", cfg.Camera.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Camera.AcquireTimeout)
	assert.Equal(t, 10, cfg.Camera.TestPattern.FPS)
	assert.True(t, cfg.Camera.TestPattern.Expanded)
	assert.Equal(t, "10.0.0.5", cfg.Network.AdvertiseIP)
	assert.Equal(t, "json", cfg.Log.Format)

	// ファイルにないキーはデフォルト値
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 33*time.Millisecond, cfg.Camera.FrameInterval)
}

func TestLoad_カレントディレクトリの設定ファイル(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "robocam.yaml"), []byte("server:\n  port: 8181\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
}

func TestLoad_環境変数で上書き(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ROBOCAM_SERVER_PORT", "9100")
	t.Setenv("ROBOCAM_CAMERA_DRIVER", "testpattern")
	t.Setenv("ROBOCAM_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "testpattern", cfg.Camera.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_従来の環境変数(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("PORT", "9200")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9200, cfg.Server.Port)
}

func TestLoad_エラー(t *testing.T) {
	dir := chdirTemp(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("server:\n  port: 0\n"), 0o644))
	_, err = Load(invalid)
	assert.Error(t, err)
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		modify    func(c *Config)
		expectErr bool
	}{
		{"正常な設定", func(*Config) {}, false},
		{"無効なポート番号", func(c *Config) { c.Server.Port = 0 }, true},
		{"ポート番号が範囲外", func(c *Config) { c.Server.Port = 70000 }, true},
		{"同時処理数が0", func(c *Config) { c.Server.MaxCameraClients = 0 }, true},
		{"未知のドライバー", func(c *Config) { c.Camera.Driver = "gstreamer" }, true},
		{"ffmpegでデバイス未指定", func(c *Config) { c.Camera.Device = "" }, true},
		{"テストパターンならデバイス不要", func(c *Config) {
			c.Camera.Driver = "testpattern"
			c.Camera.Device = ""
		}, false},
		{"フレーム間隔が0", func(c *Config) { c.Camera.FrameInterval = 0 }, true},
		{"負のタイムアウト", func(c *Config) { c.Camera.AcquireTimeout = -time.Second }, true},
		{"無制限のタイムアウト", func(c *Config) { c.Camera.AcquireTimeout = 0 }, false},
		{"無効なIPアドレス", func(c *Config) { c.Network.AdvertiseIP = "not-an-ip" }, true},
		{"無効なログレベル", func(c *Config) { c.Log.Level = "trace" }, true},
		{"メトリクス有効でアドレスなし", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, true},
		{"無効な統計スケジュール", func(c *Config) { c.Stats.Schedule = "every minute" }, true},
		{"統計スケジュールなし", func(c *Config) { c.Stats.Schedule = "" }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Dump(&buf))

	out := buf.String()
	assert.Contains(t, out, "max_camera_clients: 1")
	assert.Contains(t, out, "frame_interval: 33ms")
	assert.Contains(t, out, "advertise_ip: 192.168.4.1")

	// 書き出した内容を読み戻せる
	dir := chdirTemp(t)
	path := filepath.Join(dir, "dump.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &raw))
	assert.Contains(t, raw, "server")
}
