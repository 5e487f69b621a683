package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"time"
)

// TestPatternDriver は撮像ハードウェアなしで動作する合成フレームのドライバー
// 一定間隔でフレームを生成し、実機と同じパイプラインに流す
type TestPatternDriver struct {
	expanded bool
	interval time.Duration

	pipeline
	cfg Config
}

// NewTestPatternDriver は fps で合成フレームを生成するドライバーを作成する
// expanded は拡張メモリ検査の結果として返す値
func NewTestPatternDriver(expanded bool, fps int) *TestPatternDriver {
	interval := time.Second / 30
	if fps > 0 {
		interval = time.Second / time.Duration(fps)
	}
	return &TestPatternDriver{
		expanded: expanded,
		interval: interval,
	}
}

// ExpandedMemory は生成時に指定した値を返す
func (d *TestPatternDriver) ExpandedMemory() bool {
	return d.expanded
}

// Init はフレーム生成を開始する
func (d *TestPatternDriver) Init(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool != nil {
		return &InitError{Code: CodeInvalidState, Err: errors.New("ドライバーは既に初期化されています")}
	}
	if cfg.Resolution.Width <= 0 || cfg.Resolution.Height <= 0 {
		return &InitError{Code: CodeFailedToSetFrameSize, Err: fmt.Errorf("無効な解像度: %s", cfg.Resolution)}
	}

	d.cfg = cfg
	d.startLocked(cfg.FBCount, d.generate)

	return nil
}

// generate は一定間隔でフレームを生成する
func (d *TestPatternDriver) generate(ctx context.Context, pool *bufferPool) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			data, err := renderPattern(d.cfg, n)
			if err != nil {
				pool.close(fmt.Errorf("%w: %v", ErrCaptureFailed, err))
				return
			}
			pool.push(&Frame{Data: data, Location: d.cfg.Location})
		}
	}
}

// renderPattern は n に応じて動く縦帯を描いたJPEGを生成する
func renderPattern(cfg Config, n uint64) ([]byte, error) {
	w, h := cfg.Resolution.Width, cfg.Resolution.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	bars := []color.RGBA{
		{255, 255, 255, 255}, {255, 255, 0, 255}, {0, 255, 255, 255}, {0, 255, 0, 255},
		{255, 0, 255, 255}, {255, 0, 0, 255}, {0, 0, 255, 255}, {0, 0, 0, 255},
	}
	barWidth := w / len(bars)
	if barWidth == 0 {
		barWidth = 1
	}
	offset := int(n % uint64(w))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := ((x + offset) % w) / barWidth
			if idx >= len(bars) {
				idx = len(bars) - 1
			}
			img.SetRGBA(x, y, bars[idx])
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(cfg.JPEGQuality)}); err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}
	return buf.Bytes(), nil
}

// jpegQuality はセンサーのJPEG品質（0-63、小さいほど高品質）を image/jpeg の 1-100 に変換する
func jpegQuality(quality int) int {
	q := 100 - quality*100/63
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// SensorID は合成センサーの情報を返す
func (d *TestPatternDriver) SensorID() (SensorInfo, bool) {
	return SensorInfo{Name: "test pattern"}, true
}
