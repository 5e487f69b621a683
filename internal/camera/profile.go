package camera

import (
	"fmt"
	"strings"
)

// DefaultXCLKHz はセンサーへの既定クロック（20MHzで不安定な個体があるため10MHz）
const DefaultXCLKHz = 10_000_000

// Profile は起動時に選択される構成プロファイル
type Profile struct {
	Name        string
	Resolution  Resolution
	JPEGQuality int
	FBCount     int
	Location    Location
}

var (
	// ProfileLarge は拡張メモリがある場合の構成（高解像度・ダブルバッファ）
	ProfileLarge = Profile{
		Name:        "large",
		Resolution:  FrameSizeVGA,
		JPEGQuality: 10,
		FBCount:     2,
		Location:    LocationPSRAM,
	}

	// ProfileSmall は拡張メモリがない場合の構成（低解像度・高圧縮・シングルバッファ）
	ProfileSmall = Profile{
		Name:        "small",
		Resolution:  FrameSizeQVGA,
		JPEGQuality: 12,
		FBCount:     1,
		Location:    LocationDRAM,
	}
)

// SelectProfile はメモリ検査の結果からプロファイルを選ぶ
func SelectProfile(expandedMemory bool) Profile {
	if expandedMemory {
		return ProfileLarge
	}
	return ProfileSmall
}

// Pins は ESP-WROVER-KIT 互換のカメラピン配置
// 未接続のピンは -1
type Pins struct {
	PWDN  int
	RESET int
	XCLK  int
	SIOD  int
	SIOC  int
	Y9    int
	Y8    int
	Y7    int
	Y6    int
	Y5    int
	Y4    int
	Y3    int
	Y2    int
	VSYNC int
	HREF  int
	PCLK  int
}

// DefaultPins は OV5640 を載せた ESP-WROVER-KIT のピン配置を返す
func DefaultPins() Pins {
	return Pins{
		PWDN:  -1,
		RESET: -1,
		XCLK:  21,
		SIOD:  26,
		SIOC:  27,
		Y9:    35,
		Y8:    34,
		Y7:    39,
		Y6:    36,
		Y5:    19,
		Y4:    18,
		Y3:    5,
		Y2:    4,
		VSYNC: 25,
		HREF:  23,
		PCLK:  22,
	}
}

// Validate は同じピン番号が複数の信号に割り当てられていないか検証する
func (p Pins) Validate() error {
	assigned := []struct {
		name string
		pin  int
	}{
		{"PWDN", p.PWDN}, {"RESET", p.RESET}, {"XCLK", p.XCLK},
		{"SIOD", p.SIOD}, {"SIOC", p.SIOC},
		{"Y9", p.Y9}, {"Y8", p.Y8}, {"Y7", p.Y7}, {"Y6", p.Y6},
		{"Y5", p.Y5}, {"Y4", p.Y4}, {"Y3", p.Y3}, {"Y2", p.Y2},
		{"VSYNC", p.VSYNC}, {"HREF", p.HREF}, {"PCLK", p.PCLK},
	}

	seen := make(map[int]string, len(assigned))
	for _, a := range assigned {
		if a.pin < 0 {
			continue
		}
		if other, dup := seen[a.pin]; dup {
			return fmt.Errorf("ピン %d が %s と %s に重複して割り当てられています", a.pin, other, a.name)
		}
		seen[a.pin] = a.name
	}

	return nil
}

// knownSensors はセンサーPIDと型番の対応表
var knownSensors = map[uint16]string{
	0x2640: "OV2640",
	0x3660: "OV3660",
	0x5640: "OV5640",
}

// SensorName はPIDからセンサーの型番を返す
func SensorName(pid uint16) string {
	if name, ok := knownSensors[pid]; ok {
		return name
	}
	return "unknown"
}

// sensorPIDFromName はカード名に含まれる型番からPIDを推定する
func sensorPIDFromName(name string) uint16 {
	for pid, model := range knownSensors {
		if strings.Contains(strings.ToUpper(name), model) {
			return pid
		}
	}
	return 0
}
