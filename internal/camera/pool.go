package camera

import (
	"context"
	"sync"
)

// bufferPool はハードウェアのフレームバッファ群を模したパイプライン
//
// スロット数は FBCount 個で、各スロットは「空き」「取得待ち」「貸出中」のいずれか。
// 取得ポリシーは「最新」で、古い取得待ちフレームは新しいフレームで押し出される。
// 貸出中のスロットが返却されない限り、そのスロットは二度と埋まらない。
type bufferPool struct {
	mu      sync.Mutex
	size    int
	pending []*Frame // 取得待ちのフレーム（古い順）
	leased  int      // 貸出中のスロット数
	seq     uint64   // 最後に割り当てた通し番号
	drops   uint64   // 破棄したフレーム数
	closed  bool
	cause   error

	// 状態が変わるたびに close されて作り直される
	changed chan struct{}
}

func newBufferPool(size int) *bufferPool {
	if size < 1 {
		size = 1
	}
	return &bufferPool{
		size:    size,
		pending: make([]*Frame, 0, size),
		changed: make(chan struct{}),
	}
}

// broadcast は待機中の take を起こす（mu を保持して呼ぶ）
func (p *bufferPool) broadcast() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// push は撮像済みのフレームをパイプラインに入れる
// 格納できなかった場合は false を返す
func (p *bufferPool) push(frame *Frame) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	p.seq++
	frame.Seq = p.seq

	free := p.size - p.leased
	if free <= 0 {
		// 全スロットが貸出中: 書き込み先がない
		p.drops++
		return false
	}

	if len(p.pending) >= free {
		// 最も古い取得待ちフレームを破棄する
		p.pending[0] = nil
		p.pending = p.pending[1:]
		p.drops++
	}

	p.pending = append(p.pending, frame)
	p.broadcast()
	return true
}

// take は最新のフレームを1枚貸し出す
// 取得待ちのフレームがなければ、届くまでブロックする
func (p *bufferPool) take(ctx context.Context) (*Frame, error) {
	for {
		p.mu.Lock()
		if p.closed {
			cause := p.cause
			p.mu.Unlock()
			return nil, cause
		}

		if n := len(p.pending); n > 0 {
			frame := p.pending[n-1]
			p.drops += uint64(n - 1)
			for i := range p.pending {
				p.pending[i] = nil
			}
			p.pending = p.pending[:0]
			p.leased++
			p.mu.Unlock()
			return frame, nil
		}

		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// put は貸出中のスロットを空きに戻す
func (p *bufferPool) put(_ *Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.leased > 0 {
		p.leased--
	}
	p.broadcast()
}

// close はパイプラインを停止し、待機中の take に cause を返させる
func (p *bufferPool) close(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if cause == nil {
		cause = ErrSourceClosed
	}
	p.closed = true
	p.cause = cause
	p.pending = nil
	p.broadcast()
}

// dropped は破棄したフレーム数を返す
func (p *bufferPool) dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drops
}

// leasedCount は貸出中のスロット数を返す
func (p *bufferPool) leasedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased
}
