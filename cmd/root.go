// Package cmd は robocam コマンドの実装です
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"robocam/internal/camera"
	"robocam/internal/config"
	"robocam/internal/logging"
	"robocam/internal/network"
	"robocam/internal/server"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// overrides はコマンドラインで指定された設定の上書き
type overrides struct {
	configPath string
	host       string
	port       int
	driver     string
	device     string
	logLevel   string
}

// NewRootCommand は robocam のルートコマンドを作成する
// 引数なしで実行するとサーバーを起動する
func NewRootCommand() *cobra.Command {
	opts := &overrides{}

	rootCmd := &cobra.Command{
		Use:           "robocam",
		Short:         "カメラのフレームをHTTPで配信するサーバー",
		Long:          "robocam は撮像センサーのフレームを単体のJPEGまたはMJPEGストリームとしてHTTPで配信します。",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "設定ファイルのパス")
	flags.StringVar(&opts.host, "host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	flags.IntVarP(&opts.port, "port", "p", 0, "サーバーのポート (デフォルト: 8080)")
	flags.StringVar(&opts.driver, "driver", "", "撮像ドライバー (ffmpeg, testpattern)")
	flags.StringVar(&opts.device, "device", "", "カメラデバイスのパス (auto で自動検出)")
	flags.StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCommand(opts))
	rootCmd.AddCommand(newChannelsCommand())

	return rootCmd
}

// Execute はルートコマンドを実行する
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// loadConfig は設定を読み込み、指定されたフラグで上書きする
func loadConfig(cmd *cobra.Command, opts *overrides) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("driver") {
		cfg.Camera.Driver = opts.driver
	}
	if flags.Changed("device") {
		cfg.Camera.Device = opts.device
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newConfigCommand(opts *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "有効な設定をYAMLで表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return cfg.Dump(cmd.OutOrStdout())
		},
	}
}

// serve はフレームソースを初期化してサーバーを起動する
// 初期化に失敗した場合はポートを開かずにエラーを返す
func serve(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger := logging.New(cfg.Log, nil)

	driver, err := newDriver(ctx, cfg.Camera, camera.NewLinuxDiscovery(), logger)
	if err != nil {
		return err
	}

	sourceOpts := camera.DefaultOptions()
	sourceOpts.XCLKHz = cfg.Camera.XCLKHz
	sourceOpts.AcquireTimeout = cfg.Camera.AcquireTimeout

	source := camera.NewSource(driver, sourceOpts, logger)
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn().Err(err).Msg("カメラの停止に失敗しました")
		}
	}()

	if err := source.Initialize(); err != nil {
		return err
	}

	provider := network.New(cfg.Network.AdvertiseIP, cfg.Network.Interface)
	srv := server.New(cfg, source, provider, logger)

	printBanner(out, cfg, provider, source.Config())

	return srv.Start(ctx)
}

// newDriver は設定に応じた撮像ドライバーを作成する
func newDriver(ctx context.Context, cfg config.CameraConfig, discovery camera.Discovery, logger zerolog.Logger) (camera.Driver, error) {
	switch cfg.Driver {
	case "testpattern":
		return camera.NewTestPatternDriver(cfg.TestPattern.Expanded, cfg.TestPattern.FPS), nil
	case "ffmpeg":
		device := cfg.Device
		if device == "auto" {
			devices, err := discovery.ScanDevices(ctx)
			if err != nil {
				return nil, &camera.InitError{Code: camera.CodeCameraNotDetected, Err: err}
			}
			if len(devices) == 0 {
				return nil, &camera.InitError{Code: camera.CodeCameraNotDetected, Err: errors.New("カメラデバイスが見つかりません")}
			}
			device = devices[0]
			logger.Info().Str("device", device).Int("found", len(devices)).Msg("カメラデバイスを検出しました")
		}
		return camera.NewFFmpegDriver(device, cfg.LargeMemoryThresholdMB, discovery, logger), nil
	default:
		return nil, fmt.Errorf("未対応の撮像ドライバー: %s", cfg.Driver)
	}
}

// printBanner は配信エンドポイントの一覧を表示する
func printBanner(out io.Writer, cfg *config.Config, provider network.Provider, camCfg camera.Config) {
	base := fmt.Sprintf("http://%s:%d", provider.Address(), cfg.Server.Port)

	title := color.New(color.FgGreen, color.Bold)
	_, _ = title.Fprintln(out, "robocam")
	_, _ = fmt.Fprintf(out, "  カメラ: %s, %d バッファ (%s)\n", camCfg.Resolution, camCfg.FBCount, camCfg.Location)
	_, _ = fmt.Fprintf(out, "  静止画:     %s\n", color.CyanString(base+"/capture"))
	_, _ = fmt.Fprintf(out, "  ストリーム: %s\n", color.CyanString(base+"/stream"))
	_, _ = fmt.Fprintf(out, "  状態:       %s\n", color.CyanString(base+"/status"))
	if cfg.Metrics.Enabled {
		_, _ = fmt.Fprintf(out, "  メトリクス: %s\n", color.CyanString("http://"+cfg.Metrics.Addr+"/metrics"))
	}
	_, _ = fmt.Fprintf(out, "(%s で停止)\n", color.New(color.FgYellow, color.Bold).Sprint("Ctrl+C"))
}

// exitCode はエラーに応じた終了コードを返す
func exitCode(err error) int {
	var initErr *camera.InitError
	if errors.As(err, &initErr) {
		return 2
	}
	return 1
}

// Main はコマンドを実行して終了する
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("エラー: %v", err))
		os.Exit(exitCode(err))
	}
}
