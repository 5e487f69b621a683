package camera

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options はフレームソースの生成オプション
type Options struct {
	Pins   Pins // ピン配置
	XCLKHz int  // センサークロック

	// AcquireTimeout は1回の Acquire の最大待機時間（0 は無制限）
	AcquireTimeout time.Duration

	// Serialize が true の場合、Acquire から Release までの区間を直列化する
	Serialize bool
}

// DefaultOptions は既定のオプションを返す
func DefaultOptions() Options {
	return Options{
		Pins:           DefaultPins(),
		XCLKHz:         DefaultXCLKHz,
		AcquireTimeout: 5 * time.Second,
		Serialize:      true,
	}
}

// dropCounter はパイプライン内の破棄数を報告できるドライバーが実装する
type dropCounter interface {
	Drops() uint64
}

// Source は撮像ハードウェアを所有し、1回の要求につき1枚のフレームを貸し出す
// プロセス起動時に1つだけ生成し、プロセス終了まで使い続ける
type Source struct {
	driver Driver
	opts   Options
	logger zerolog.Logger

	initMu sync.Mutex
	cfg    Config
	ready  atomic.Bool
	closed atomic.Bool

	// Acquire から Release までの区間を保持するトークン
	gate chan struct{}

	acquired   atomic.Uint64
	released   atomic.Uint64
	failures   atomic.Uint64
	violations atomic.Uint64
}

// NewSource は新しいフレームソースを作成する
// ハードウェアには触れないため、使用前に Initialize が必要
func NewSource(driver Driver, opts Options, logger zerolog.Logger) *Source {
	s := &Source{
		driver: driver,
		opts:   opts,
		logger: logger.With().Str("component", "camera").Logger(),
	}
	if opts.Serialize {
		s.gate = make(chan struct{}, 1)
	}
	return s
}

// Initialize はハードウェアを初期化し、構成プロファイルを確定する
// 失敗した場合は *InitError を返し、以後 Acquire を呼んではならない
func (s *Source) Initialize() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.ready.Load() {
		return &InitError{Code: CodeInvalidState, Err: errors.New("既に初期化されています")}
	}

	if err := s.opts.Pins.Validate(); err != nil {
		return &InitError{Code: CodeInvalidArg, Err: err}
	}

	// 拡張メモリの有無でプロファイルを決める
	expanded := s.driver.ExpandedMemory()
	profile := SelectProfile(expanded)

	cfg := Config{
		Pins:        s.opts.Pins,
		XCLKHz:      s.opts.XCLKHz,
		Resolution:  profile.Resolution,
		JPEGQuality: profile.JPEGQuality,
		FBCount:     profile.FBCount,
		Location:    profile.Location,
	}

	s.logger.Info().
		Bool("expanded_memory", expanded).
		Str("profile", profile.Name).
		Str("resolution", cfg.Resolution.String()).
		Int("jpeg_quality", cfg.JPEGQuality).
		Int("fb_count", cfg.FBCount).
		Str("fb_location", string(cfg.Location)).
		Int("xclk_hz", cfg.XCLKHz).
		Msg("カメラ構成を選択しました")

	if err := s.driver.Init(cfg); err != nil {
		var initErr *InitError
		if !errors.As(err, &initErr) {
			initErr = &InitError{Code: CodeFail, Err: err}
		}
		s.logger.Error().Err(initErr.Err).Msgf("カメラの初期化に失敗しました (エラー 0x%x)", initErr.Code)
		return initErr
	}

	if sensor, ok := s.driver.SensorID(); ok {
		s.logger.Info().
			Str("sensor", sensor.Name).
			Str("model", SensorName(sensor.PID)).
			Msgf("カメラセンサー PID: 0x%x", sensor.PID)
	}

	s.cfg = cfg
	s.ready.Store(true)
	s.logger.Info().Msg("カメラを初期化しました")
	return nil
}

// Config は確定済みの構成を返す
func (s *Source) Config() Config {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	return s.cfg
}

// Acquire は完全なフレームが得られるまでブロックし、その貸出を返す
// 失敗は *CaptureError で返す（リトライするかは呼び出し側が決める）
// ctx がキャンセルされた場合は ctx.Err() をそのまま返す
func (s *Source) Acquire(ctx context.Context) (*Lease, error) {
	if !s.ready.Load() {
		s.failures.Add(1)
		return nil, &CaptureError{Err: ErrNotInitialized}
	}
	if s.closed.Load() {
		s.failures.Add(1)
		return nil, &CaptureError{Err: ErrSourceClosed}
	}

	waitCtx := ctx
	if s.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.opts.AcquireTimeout)
		defer cancel()
	}

	if s.gate != nil {
		select {
		case s.gate <- struct{}{}:
		case <-waitCtx.Done():
			// 呼び出し側の切断は失敗として数えない
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.failures.Add(1)
			return nil, s.captureError(ctx, waitCtx.Err())
		}
	}

	frame, err := s.driver.Get(waitCtx)
	if err != nil {
		if s.gate != nil {
			<-s.gate
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.failures.Add(1)
		return nil, s.captureError(ctx, err)
	}

	s.acquired.Add(1)
	return &Lease{source: s, frame: frame}, nil
}

// WithLease はフレームを1枚借りて fn に渡し、fn の終了後に必ず返却する
func (s *Source) WithLease(ctx context.Context, fn func(*Lease) error) error {
	lease, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	return fn(lease)
}

// captureError は待機の失敗を CaptureError に変換する
// 呼び出し元の ctx が生きたまま期限切れになった場合はタイムアウトとして扱う
func (s *Source) captureError(parent context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return &CaptureError{Err: ErrAcquireTimeout}
	}
	return &CaptureError{Err: err}
}

// release は Lease.Release から呼ばれる
func (s *Source) release(frame *Frame) {
	s.driver.Return(frame)
	s.released.Add(1)
	if s.gate != nil {
		<-s.gate
	}
}

func (s *Source) recordViolation(seq uint64) {
	s.violations.Add(1)
	s.logger.Warn().Uint64("seq", seq).Msg("返却済みのフレームバッファが再度返却されました")
}

// Stats は計数値のスナップショットを返す
func (s *Source) Stats() Stats {
	released := s.released.Load()
	acquired := s.acquired.Load()
	st := Stats{
		Acquired:   acquired,
		Released:   released,
		Failures:   s.failures.Load(),
		Violations: s.violations.Load(),
	}
	if acquired > released {
		st.Outstanding = acquired - released
	}
	if dc, ok := s.driver.(dropCounter); ok {
		st.Drops = dc.Drops()
	}
	return st
}

// Close はハードウェアを停止する
// 通常はプロセス終了時にのみ呼ぶ
func (s *Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.driver.Close()
}
