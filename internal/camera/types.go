package camera

import (
	"context"
	"fmt"
)

// Location はフレームバッファを配置するメモリ領域を表す
type Location string

const (
	LocationDRAM  Location = "dram"  // 高速な内部メモリ
	LocationPSRAM Location = "psram" // 低速な拡張メモリ
)

// Resolution はセンサーの出力解像度クラスを表す
type Resolution struct {
	Name   string // 解像度クラス名（例: VGA）
	Width  int    // 画像幅
	Height int    // 画像高さ
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d)", r.Name, r.Width, r.Height)
}

var (
	FrameSizeQVGA = Resolution{Name: "QVGA", Width: 320, Height: 240}
	FrameSizeVGA  = Resolution{Name: "VGA", Width: 640, Height: 480}
)

// Frame はドライバーが生成した1枚のJPEGフレーム
type Frame struct {
	Data     []byte   // JPEGデータ
	Seq      uint64   // ハードウェアパイプライン内の通し番号（単調増加）
	Location Location // 配置先メモリ
}

// Config はフレームソースの確定済み構成
// Source.Initialize で一度だけ組み立てられ、以後変更されない
type Config struct {
	Pins        Pins       // ピン配置（固定のハードウェア構成）
	XCLKHz      int        // センサーに供給するクロック周波数
	Resolution  Resolution // 出力解像度
	JPEGQuality int        // JPEG品質（0-63、小さいほど高品質）
	FBCount     int        // フレームバッファ数
	Location    Location   // フレームバッファの配置先
}

// SensorInfo は撮像センサーの識別情報
type SensorInfo struct {
	PID  uint16 // センサーのプロダクトID（不明な場合は0）
	Name string // センサー名
}

// Driver は撮像ハードウェアのドライバーを抽象化するインターフェース
type Driver interface {
	// ExpandedMemory は拡張メモリ（PSRAM相当）が存在するかを調べる
	ExpandedMemory() bool

	// Init はハードウェアを初期化する
	// 失敗した場合はステータスコード付きの *InitError を返す
	Init(cfg Config) error

	// Get は完全なフレームが得られるまでブロックする
	Get(ctx context.Context) (*Frame, error)

	// Return はフレームバッファをドライバーに返却する
	Return(frame *Frame)

	// SensorID はセンサーの識別情報を返す
	SensorID() (SensorInfo, bool)

	// Close はハードウェアを停止する
	Close() error
}

// Stats はフレームソースの計数値のスナップショット
type Stats struct {
	Acquired    uint64 // 貸出に成功した回数
	Released    uint64 // 返却された回数
	Failures    uint64 // 取得に失敗した回数
	Violations  uint64 // 二重返却などの不正な返却の回数
	Drops       uint64 // パイプライン内で破棄された古いフレームの数
	Outstanding uint64 // 現在貸出中のフレーム数
}
