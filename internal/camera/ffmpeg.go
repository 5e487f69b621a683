package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FFmpegDriver は ffmpeg 経由で V4L2 デバイスからJPEGフレームを取得するドライバー
type FFmpegDriver struct {
	device         string
	memThresholdMB int
	meminfoPath    string
	discovery      Discovery
	logger         zerolog.Logger

	pipeline
	cfg    Config
	sensor SensorInfo
}

// NewFFmpegDriver は新しい FFmpegDriver を作成する
// memThresholdMB 以上の物理メモリがあれば拡張メモリありとみなす
func NewFFmpegDriver(device string, memThresholdMB int, discovery Discovery, logger zerolog.Logger) *FFmpegDriver {
	return &FFmpegDriver{
		device:         device,
		memThresholdMB: memThresholdMB,
		meminfoPath:    "/proc/meminfo",
		discovery:      discovery,
		logger:         logger.With().Str("component", "ffmpeg").Str("device", device).Logger(),
	}
}

// ExpandedMemory は /proc/meminfo の MemTotal が閾値以上かを返す
func (d *FFmpegDriver) ExpandedMemory() bool {
	f, err := os.Open(d.meminfoPath)
	if err != nil {
		d.logger.Warn().Err(err).Msg("メモリ情報を読み取れません")
		return false
	}
	defer func() {
		_ = f.Close()
	}()

	totalKB, err := parseMemTotalKB(f)
	if err != nil {
		d.logger.Warn().Err(err).Msg("メモリ情報の解析に失敗しました")
		return false
	}

	return totalKB >= d.memThresholdMB*1024
}

// Init はデバイスを検査し、連続キャプチャを開始する
func (d *FFmpegDriver) Init(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool != nil {
		return &InitError{Code: CodeInvalidState, Err: errors.New("ドライバーは既に初期化されています")}
	}

	ctx := context.Background()

	if !d.discovery.IsDeviceAvailable(ctx, d.device) {
		return &InitError{Code: CodeCameraNotDetected, Err: fmt.Errorf("デバイスが利用できません: %s", d.device)}
	}

	// タイムアウト付きでテストキャプチャ
	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := d.captureOnce(testCtx, cfg); err != nil {
		return &InitError{Code: CodeFailedToSetFrameSize, Err: err}
	}

	d.sensor = SensorInfo{Name: d.device}
	if info, err := d.discovery.GetDeviceInfo(ctx, d.device); err == nil && info != nil {
		d.sensor = SensorInfo{PID: sensorPIDFromName(info.Name), Name: info.Name}
	}

	d.cfg = cfg
	d.startLocked(cfg.FBCount, d.stream)

	return nil
}

// args は ffmpeg のコマンドライン引数を組み立てる
func (d *FFmpegDriver) args(cfg Config, extra ...string) []string {
	args := []string{
		"-nostdin",
		"-loglevel", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Resolution.Width, cfg.Resolution.Height),
		"-i", d.device,
	}
	args = append(args, extra...)
	return append(args, "-c:v", "mjpeg", "-q:v", strconv.Itoa(ffmpegQuality(cfg.JPEGQuality)), "-")
}

// captureOnce は1フレームだけキャプチャする
func (d *FFmpegDriver) captureOnce(ctx context.Context, cfg Config) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", d.args(cfg, "-vframes", "1", "-f", "image2")...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("テストキャプチャに失敗: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	if !mimetype.Detect(stdout.Bytes()).Is("image/jpeg") {
		return nil, errors.New("テストキャプチャの出力がJPEGではありません")
	}

	return stdout.Bytes(), nil
}

// stream は ffmpeg を起動し、出力をJPEGフレームに分割してパイプラインへ送る
func (d *FFmpegDriver) stream(ctx context.Context, pool *bufferPool) {
	cmd := exec.CommandContext(ctx, "ffmpeg", d.args(d.cfg, "-f", "image2pipe")...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		pool.close(fmt.Errorf("%w: stdoutパイプの作成に失敗: %v", ErrCaptureFailed, err))
		return
	}

	if err := cmd.Start(); err != nil {
		pool.close(fmt.Errorf("%w: ffmpegの起動に失敗: %v", ErrCaptureFailed, err))
		return
	}

	readErr := d.pump(stdout, pool)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		// Close による停止
		return
	}

	d.logger.Error().
		AnErr("read_error", readErr).
		AnErr("exit_error", waitErr).
		Str("stderr", strings.TrimSpace(stderr.String())).
		Msg("ffmpegのストリームが終了しました")
	pool.close(fmt.Errorf("%w: ffmpegのストリームが終了しました", ErrCaptureFailed))
}

// pump は r を読み切るまでフレームを分割してパイプラインに入れる
func (d *FFmpegDriver) pump(r io.Reader, pool *bufferPool) error {
	var splitter jpegSplitter
	buf := make([]byte, 64*1024)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			overflows := splitter.overflows
			frames := splitter.feed(buf[:n])
			if splitter.overflows != overflows {
				d.logger.Warn().Uint64("overflows", splitter.overflows).Msg("上限を超えたフレームを破棄しました")
			}
			for _, frame := range frames {
				if !mimetype.Detect(frame).Is("image/jpeg") {
					d.logger.Debug().Int("bytes", len(frame)).Msg("JPEGではない断片を破棄しました")
					continue
				}
				pool.push(&Frame{Data: frame, Location: d.cfg.Location})
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("フレーム読み取りエラー: %w", err)
		}
	}
}

// Close は ffmpeg を停止する
func (d *FFmpegDriver) Close() error {
	return d.pipeline.Close()
}

// SensorID は v4l2-ctl から得たカード名を返す
func (d *FFmpegDriver) SensorID() (SensorInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sensor, d.pool != nil
}

// ffmpegQuality はセンサーのJPEG品質（0-63）を ffmpeg の -q:v（2-31）に丸める
func ffmpegQuality(quality int) int {
	switch {
	case quality < 2:
		return 2
	case quality > 31:
		return 31
	default:
		return quality
	}
}

// parseMemTotalKB は /proc/meminfo 形式から MemTotal を kB 単位で取り出す
func parseMemTotalKB(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "MemTotal:" {
			continue
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, fmt.Errorf("MemTotal の値が不正です: %w", err)
		}
		return kb, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("MemTotal が見つかりません")
}

// maxFrameBytes は未完のフレームとして保持するデータの上限
const maxFrameBytes = 8 << 20

// jpegSplitter は連続したバイト列を SOI/EOI マーカーでJPEGフレームに分割する
// 上限を超えたフレームは捨てて次の SOI から同期し直す
type jpegSplitter struct {
	buf       []byte
	max       int    // 0 なら maxFrameBytes
	overflows uint64 // 上限超過で捨てたフレーム数
}

func (s *jpegSplitter) limit() int {
	if s.max > 0 {
		return s.max
	}
	return maxFrameBytes
}

// feed はデータを追加し、完成したフレームを返す
func (s *jpegSplitter) feed(p []byte) [][]byte {
	s.buf = append(s.buf, p...)

	var frames [][]byte
	for {
		// JPEGの開始マーカー（FF D8）を探す
		start := bytes.Index(s.buf, jpegSOI)
		if start == -1 {
			s.keepTrailingFF()
			return frames
		}

		// JPEGの終了マーカー（FF D9）を探す
		end := bytes.Index(s.buf[start+2:], jpegEOI)
		if end == -1 {
			if len(s.buf)-start > s.limit() {
				if s.resync(start) {
					continue
				}
				return frames
			}
			// 完全なフレームがまだない
			if start > 0 {
				s.buf = append(s.buf[:0], s.buf[start:]...)
			}
			return frames
		}

		end += start + 2 + 2 // マーカーのサイズを含める
		if end-start > s.limit() {
			if s.resync(start) {
				continue
			}
			return frames
		}

		frame := make([]byte, end-start)
		copy(frame, s.buf[start:end])
		frames = append(frames, frame)

		s.buf = append(s.buf[:0], s.buf[end:]...)
	}
}

// resync は start から始まるフレームを捨て、次の SOI まで読み飛ばす
// 次の SOI が見つかれば true を返す
func (s *jpegSplitter) resync(start int) bool {
	s.overflows++
	next := bytes.Index(s.buf[start+2:], jpegSOI)
	if next == -1 {
		s.keepTrailingFF()
		return false
	}
	s.buf = append(s.buf[:0], s.buf[start+2+next:]...)
	return true
}

// keepTrailingFF はマーカーの途中で切れている可能性がある末尾の FF だけを残す
func (s *jpegSplitter) keepTrailingFF() {
	if n := len(s.buf); n > 0 && s.buf[n-1] == 0xFF {
		s.buf = append(s.buf[:0], 0xFF)
	} else {
		s.buf = s.buf[:0]
	}
}
