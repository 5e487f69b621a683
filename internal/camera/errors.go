package camera

import (
	"errors"
	"fmt"
)

// ハードウェアが返すステータスコード
const (
	CodeFail                 = -1
	CodeNoMem                = 0x101
	CodeInvalidArg           = 0x102
	CodeInvalidState         = 0x103
	CodeNotFound             = 0x105
	CodeNotSupported         = 0x106
	CodeTimeout              = 0x107
	CodeCameraNotDetected    = 0x20001
	CodeFailedToSetFrameSize = 0x20002
)

var (
	// ErrNotInitialized は初期化前に Acquire が呼ばれたことを示す
	ErrNotInitialized = errors.New("フレームソースが初期化されていません")

	// ErrAcquireTimeout は待機時間内にフレームが得られなかったことを示す
	ErrAcquireTimeout = errors.New("フレーム取得がタイムアウトしました")

	// ErrSourceClosed はフレームソースが停止済みであることを示す
	ErrSourceClosed = errors.New("フレームソースは停止しています")

	// ErrCaptureFailed はセンサーまたは転送経路がキャプチャ失敗を報告したことを示す
	ErrCaptureFailed = errors.New("キャプチャに失敗しました")
)

// InitError はハードウェア初期化の失敗を表す
// 起動処理にとって致命的であり、Code は診断のために保持される
type InitError struct {
	Code int
	Err  error
}

func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("カメラの初期化に失敗 (0x%x): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("カメラの初期化に失敗 (0x%x)", e.Code)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// CaptureError は1回のフレーム取得の失敗を表す
// 現在のリクエストまたはストリームだけを終了させ、プロセスは継続する
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("フレーム取得エラー: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
