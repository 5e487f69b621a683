// Package servo はサーボドライバーのチャンネル番号とパルス幅の定数を定義する
// 四足歩行ロボットの脚の配置に対応する。制御は行わない
package servo

// パルス幅（4096 分割）
const (
	PulseMin = 120
	PulseMax = 600
)

// 左前脚
const (
	LeftFrontHip   = 0
	LeftFrontKnee  = 1
	LeftFrontAnkle = 2
)

// 右前脚
const (
	RightFrontHip   = 4
	RightFrontKnee  = 5
	RightFrontAnkle = 6
)

// 左後脚
const (
	LeftBackHip   = 8
	LeftBackKnee  = 9
	LeftBackAnkle = 10
)

// 右後脚
const (
	RightBackHip   = 12
	RightBackKnee  = 13
	RightBackAnkle = 14
)

// Channel は名前付きのサーボチャンネル
type Channel struct {
	Name   string
	Number int
}

// Channels はすべてのチャンネルを脚の順に返す
func Channels() []Channel {
	return []Channel{
		{"left_front_hip", LeftFrontHip},
		{"left_front_knee", LeftFrontKnee},
		{"left_front_ankle", LeftFrontAnkle},
		{"right_front_hip", RightFrontHip},
		{"right_front_knee", RightFrontKnee},
		{"right_front_ankle", RightFrontAnkle},
		{"left_back_hip", LeftBackHip},
		{"left_back_knee", LeftBackKnee},
		{"left_back_ankle", LeftBackAnkle},
		{"right_back_hip", RightBackHip},
		{"right_back_knee", RightBackKnee},
		{"right_back_ankle", RightBackAnkle},
	}
}
