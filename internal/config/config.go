package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は設定を上書きする環境変数の接頭辞
const EnvPrefix = "ROBOCAM"

// Config はアプリケーション全体の設定を保持する構造体
// 読み込み後は変更しない
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Camera  CameraConfig  `yaml:"camera"`
	Network NetworkConfig `yaml:"network"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Stats   StatsConfig   `yaml:"stats"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"`                            // リッスンするホスト
	Port int    `yaml:"port" validate:"min=1,max=65535"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // 書き込みタイムアウト（ストリーミングのため通常は0）
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // グレースフルシャットダウンの待機時間

	// MaxCameraClients は /capture と /stream を同時に処理する数
	MaxCameraClients int `yaml:"max_camera_clients" validate:"min=1"`
}

// CameraConfig はフレームソースの設定
type CameraConfig struct {
	Driver string `yaml:"driver" validate:"oneof=ffmpeg testpattern"`  // 撮像ドライバー
	Device string `yaml:"device" validate:"required_if=Driver ffmpeg"` // デバイスパス（"auto" で自動検出）

	XCLKHz         int           `yaml:"xclk_hz" validate:"gt=0"` // センサークロック
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`         // フレーム取得の最大待機時間（0 は無制限）
	FrameInterval  time.Duration `yaml:"frame_interval"`          // ストリームのフレーム間隔

	// LargeMemoryThresholdMB 以上の物理メモリがあれば高解像度プロファイルを選ぶ
	LargeMemoryThresholdMB int `yaml:"large_memory_threshold_mb" validate:"min=0"`

	TestPattern TestPatternConfig `yaml:"testpattern"`
}

// TestPatternConfig はテストパターンドライバーの設定
type TestPatternConfig struct {
	FPS      int  `yaml:"fps" validate:"min=1,max=120"`
	Expanded bool `yaml:"expanded"` // 拡張メモリありとして振る舞う
}

// NetworkConfig はクライアントに通知するアドレスの設定
type NetworkConfig struct {
	AdvertiseIP string `yaml:"advertise_ip" validate:"required,ip"` // 既定のアドレス
	Interface   string `yaml:"interface"`                           // アドレスを取得するインターフェース名
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// MetricsConfig はメトリクス用リスナーの設定
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"required_if=Enabled true"`
}

// StatsConfig は統計ログの設定
type StatsConfig struct {
	Schedule string `yaml:"schedule"` // cron形式（空なら無効）
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     0, // ストリーミング用にタイムアウト無効化
			ShutdownTimeout:  5 * time.Second,
			MaxCameraClients: 1,
		},
		Camera: CameraConfig{
			Driver:                 "ffmpeg",
			Device:                 "/dev/video0",
			XCLKHz:                 10_000_000,
			AcquireTimeout:         5 * time.Second,
			FrameInterval:          33 * time.Millisecond,
			LargeMemoryThresholdMB: 1024,
			TestPattern: TestPatternConfig{
				FPS: 30,
			},
		},
		Network: NetworkConfig{
			AdvertiseIP: "192.168.4.1",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Stats: StatsConfig{
			Schedule: "@every 1m",
		},
	}
}

// Load は設定を読み込む
// path が空の場合は ./robocam.yaml と /etc/robocam/robocam.yaml を探し、見つからなければデフォルト値を使う
// 環境変数 ROBOCAM_<SECTION>_<KEY> はファイルより優先される
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("robocam")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/robocam")
	}

	// 例: ROBOCAM_SERVER_PORT
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 従来の環境変数も受け付ける
	_ = v.BindEnv("server.host", EnvPrefix+"_SERVER_HOST", "SERVER_HOST")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return &cfg, nil
}

// setDefaults は既定値をキーごとに登録する
// AutomaticEnv は登録済みのキーしか環境変数を参照しない
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_camera_clients", d.Server.MaxCameraClients)

	v.SetDefault("camera.driver", d.Camera.Driver)
	v.SetDefault("camera.device", d.Camera.Device)
	v.SetDefault("camera.xclk_hz", d.Camera.XCLKHz)
	v.SetDefault("camera.acquire_timeout", d.Camera.AcquireTimeout)
	v.SetDefault("camera.frame_interval", d.Camera.FrameInterval)
	v.SetDefault("camera.large_memory_threshold_mb", d.Camera.LargeMemoryThresholdMB)
	v.SetDefault("camera.testpattern.fps", d.Camera.TestPattern.FPS)
	v.SetDefault("camera.testpattern.expanded", d.Camera.TestPattern.Expanded)

	v.SetDefault("network.advertise_ip", d.Network.AdvertiseIP)
	v.SetDefault("network.interface", d.Network.Interface)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)

	v.SetDefault("stats.schedule", d.Stats.Schedule)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("無効な設定値 %s=%v (%s)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}

	// タイムアウト設定の検証
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("タイムアウトに負の値は指定できません")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("無効なシャットダウン待機時間: %s", c.Server.ShutdownTimeout)
	}
	if c.Camera.AcquireTimeout < 0 {
		return fmt.Errorf("無効なフレーム取得タイムアウト: %s", c.Camera.AcquireTimeout)
	}
	if c.Camera.FrameInterval <= 0 {
		return fmt.Errorf("無効なフレーム間隔: %s", c.Camera.FrameInterval)
	}

	if c.Stats.Schedule != "" {
		if _, err := cron.ParseStandard(c.Stats.Schedule); err != nil {
			return fmt.Errorf("無効な統計スケジュール %q: %w", c.Stats.Schedule, err)
		}
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Dump は設定をYAMLとして書き出す
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("設定の書き出しに失敗: %w", err)
	}
	return enc.Close()
}
