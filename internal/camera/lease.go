package camera

import (
	"sync/atomic"
)

// noCopy は go vet の copylocks 検査で Lease のコピーを検出させるためのマーカー
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Lease は貸し出された1枚のフレームバッファへのハンドル
//
// Source.Acquire だけが生成する。ポインタで受け渡し、値としてコピーしてはならない。
// 取得に成功したら、どの終了経路でも Release をちょうど1回呼ぶこと:
//
//	lease, err := source.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer lease.Release()
type Lease struct {
	_ noCopy

	source   *Source
	frame    *Frame
	released atomic.Bool
}

// Bytes はJPEGデータを返す。返却後は nil を返す
// 呼び出し側はデータを書き換えてはならない
func (l *Lease) Bytes() []byte {
	if l.released.Load() {
		return nil
	}
	return l.frame.Data
}

// Len はJPEGデータのバイト数を返す
func (l *Lease) Len() int {
	if l.released.Load() {
		return 0
	}
	return len(l.frame.Data)
}

// Seq はフレームの通し番号を返す
func (l *Lease) Seq() uint64 {
	return l.frame.Seq
}

// Location はフレームバッファの配置先を返す
func (l *Lease) Location() Location {
	return l.frame.Location
}

// Release はフレームバッファをフレームソースに返却する
// 2回目以降の呼び出しは返却せず、違反として記録する
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		l.source.recordViolation(l.frame.Seq)
		return
	}
	l.source.release(l.frame)
}
