package camera

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_未初期化(t *testing.T) {
	var p pipeline

	_, err := p.Get(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, uint64(0), p.Drops())
	p.Return(&Frame{})
	assert.NoError(t, p.Close())
}

func TestPipeline_撮像ゴルーチンを停止する(t *testing.T) {
	var p pipeline
	pushed := make(chan struct{})
	stopped := make(chan struct{})

	p.mu.Lock()
	p.startLocked(1, func(ctx context.Context, pool *bufferPool) {
		defer close(stopped)
		pool.push(tagged(1))
		pool.push(tagged(2))
		close(pushed)
		<-ctx.Done()
	})
	p.mu.Unlock()
	<-pushed

	frame, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MockJPEG("frame-2"), frame.Data)
	assert.Equal(t, uint64(1), p.Drops())
	p.Return(frame)

	require.NoError(t, p.Close())
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("撮像ゴルーチンが停止しませんでした")
	}

	_, err = p.Get(context.Background())
	assert.ErrorIs(t, err, ErrSourceClosed)

	// 2回目の Close は何もしない
	assert.NoError(t, p.Close())
}

func TestDrivers_パイプラインを共有する(t *testing.T) {
	tests := []struct {
		name   string
		driver Driver
	}{
		{"モック", NewMockDriver(false)},
		{"テストパターン", NewTestPatternDriver(false, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSource(t, tt.driver, DefaultOptions())

			lease, err := s.Acquire(context.Background())
			require.NoError(t, err)
			assert.NotEmpty(t, lease.Bytes())
			lease.Release()

			require.NoError(t, s.Close())
			_, err = tt.driver.Get(context.Background())
			assert.ErrorIs(t, err, ErrSourceClosed)
		})
	}
}
