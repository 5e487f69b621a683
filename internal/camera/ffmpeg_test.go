package camera

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJPEGSplitter(t *testing.T) {
	a := MockJPEG("a")
	b := MockJPEG("b")

	tests := []struct {
		name   string
		chunks [][]byte
		want   [][]byte
	}{
		{
			name:   "1チャンクに1フレーム",
			chunks: [][]byte{a},
			want:   [][]byte{a},
		},
		{
			name:   "1チャンクに2フレーム",
			chunks: [][]byte{append(append([]byte{}, a...), b...)},
			want:   [][]byte{a, b},
		},
		{
			name:   "フレームがチャンクをまたぐ",
			chunks: [][]byte{a[:5], a[5:]},
			want:   [][]byte{a},
		},
		{
			name:   "SOIマーカーがチャンク境界で分断",
			chunks: [][]byte{{0x00, 0x01, 0xFF}, a[1:]},
			want:   [][]byte{a},
		},
		{
			name:   "前後のゴミは捨てる",
			chunks: [][]byte{[]byte("garbage"), a, []byte("trailing")},
			want:   [][]byte{a},
		},
		{
			name:   "終端のないフレーム",
			chunks: [][]byte{a[:len(a)-2]},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s jpegSplitter
			var got [][]byte
			for _, c := range tt.chunks {
				got = append(got, s.feed(c)...)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJPEGSplitter_上限を超えたフレームは捨てる(t *testing.T) {
	b := MockJPEG("b")
	oversized := append([]byte{0xFF, 0xD8}, make([]byte, 64)...)

	tests := []struct {
		name   string
		chunks [][]byte
	}{
		{"終端のないまま上限を超える", [][]byte{oversized, oversized, b}},
		{"終端はあるが上限を超える", [][]byte{append(append(append([]byte{}, oversized...), 0xFF, 0xD9), b...)}},
		{"上限超過の途中に次のフレーム", [][]byte{append(append([]byte{}, oversized...), b...)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := jpegSplitter{max: 32}
			var got [][]byte
			for _, c := range tt.chunks {
				got = append(got, s.feed(c)...)
				assert.LessOrEqual(t, len(s.buf), s.max+len(c))
			}
			assert.Equal(t, [][]byte{b}, got)
			assert.NotZero(t, s.overflows)
			assert.Empty(t, s.buf)
		})
	}
}

func TestParseMemTotalKB(t *testing.T) {
	meminfo := "MemTotal:        8041512 kB\nMemFree:          123456 kB\n"
	kb, err := parseMemTotalKB(strings.NewReader(meminfo))
	require.NoError(t, err)
	assert.Equal(t, 8041512, kb)

	_, err = parseMemTotalKB(strings.NewReader("MemFree: 1 kB\n"))
	assert.Error(t, err)

	_, err = parseMemTotalKB(strings.NewReader("MemTotal: many kB\n"))
	assert.Error(t, err)
}

func TestFFmpegDriver_ExpandedMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meminfo")
	require.NoError(t, os.WriteFile(path, []byte("MemTotal: 524288 kB\n"), 0o644))

	tests := []struct {
		name        string
		thresholdMB int
		want        bool
	}{
		{"閾値未満", 1024, false},
		{"閾値ちょうど", 512, true},
		{"閾値超過", 256, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewFFmpegDriver("/dev/video0", tt.thresholdMB, NewMockDiscovery(nil), zerolog.Nop())
			d.meminfoPath = path
			assert.Equal(t, tt.want, d.ExpandedMemory())
		})
	}

	d := NewFFmpegDriver("/dev/video0", 1, NewMockDiscovery(nil), zerolog.Nop())
	d.meminfoPath = filepath.Join(dir, "missing")
	assert.False(t, d.ExpandedMemory())
}

func TestFFmpegDriver_Init_デバイスなし(t *testing.T) {
	d := NewFFmpegDriver("/dev/video9", 0, NewMockDiscovery(nil), zerolog.Nop())

	err := d.Init(Config{Resolution: FrameSizeQVGA, JPEGQuality: 12, FBCount: 1})
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, CodeCameraNotDetected, initErr.Code)

	_, ok := d.SensorID()
	assert.False(t, ok)
	assert.NoError(t, d.Close())
}

func TestFFmpegDriver_pump(t *testing.T) {
	d := NewFFmpegDriver("/dev/video0", 0, NewMockDiscovery(nil), zerolog.Nop())
	pool := newBufferPool(2)

	// SOI/EOI で囲まれていてもJPEGでない断片は捨てる
	notJPEG := []byte{0xFF, 0xD8, 0x00, 0x00, 0xFF, 0xD9}
	stream := bytes.Join([][]byte{MockJPEG("1"), notJPEG, MockJPEG("2")}, nil)

	require.NoError(t, d.pump(bytes.NewReader(stream), pool))

	frame, err := pool.take(t.Context())
	require.NoError(t, err)
	assert.Equal(t, MockJPEG("2"), frame.Data)
	assert.Equal(t, uint64(2), frame.Seq)
}

func TestFFmpegQuality(t *testing.T) {
	assert.Equal(t, 2, ffmpegQuality(0))
	assert.Equal(t, 10, ffmpegQuality(10))
	assert.Equal(t, 12, ffmpegQuality(12))
	assert.Equal(t, 31, ffmpegQuality(63))
}

func TestFFmpegDriver_args(t *testing.T) {
	d := NewFFmpegDriver("/dev/video2", 0, NewMockDiscovery(nil), zerolog.Nop())
	args := d.args(Config{Resolution: FrameSizeVGA, JPEGQuality: 10}, "-f", "image2pipe")

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-video_size 640x480")
	assert.Contains(t, joined, "-i /dev/video2")
	assert.Contains(t, joined, "-q:v 10")
	assert.Equal(t, "-", args[len(args)-1])
}
