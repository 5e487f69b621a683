package camera

import (
	"context"
	"sync"
)

// pipeline はドライバーが埋め込むバッファプールの所有者
// mu はドライバー自身の状態の保護にも使う
type pipeline struct {
	mu     sync.Mutex
	pool   *bufferPool
	cancel context.CancelFunc
	done   chan struct{}
}

// startLocked はプールを作成し、run があれば撮像ゴルーチンとして起動する（mu を保持して呼ぶ）
func (p *pipeline) startLocked(fbCount int, run func(ctx context.Context, pool *bufferPool)) {
	p.pool = newBufferPool(fbCount)
	if run == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func(pool *bufferPool, done chan<- struct{}) {
		defer close(done)
		run(ctx, pool)
	}(p.pool, p.done)
}

// current は現在のプールを返す（未初期化なら nil）
func (p *pipeline) current() *bufferPool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool
}

// Get はパイプラインから最新のフレームを借りる
func (p *pipeline) Get(ctx context.Context) (*Frame, error) {
	pool := p.current()
	if pool == nil {
		return nil, ErrNotInitialized
	}
	return pool.take(ctx)
}

// Return はフレームバッファを返却する
func (p *pipeline) Return(frame *Frame) {
	if pool := p.current(); pool != nil {
		pool.put(frame)
	}
}

// Drops はパイプライン内で破棄されたフレーム数を返す
func (p *pipeline) Drops() uint64 {
	pool := p.current()
	if pool == nil {
		return 0
	}
	return pool.dropped()
}

// Close は撮像ゴルーチンの終了を待ってプールを閉じる
func (p *pipeline) Close() error {
	p.mu.Lock()
	pool, cancel, done := p.pool, p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if pool != nil {
		pool.close(ErrSourceClosed)
	}
	return nil
}
