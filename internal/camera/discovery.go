package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Discovery は V4L2 デバイスの検出と識別を行う
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)
}

// DeviceInfo はカメラデバイスの詳細情報を表す
type DeviceInfo struct {
	Device  string   // デバイスパス
	Name    string   // カード名（センサー名を含むことが多い）
	Driver  string   // ドライバー名
	Formats []string // サポートされるピクセルフォーマット
}

var videoDevicePattern = regexp.MustCompile(`^/dev/video(\d+)$`)

// LinuxDiscovery は v4l2-ctl を使ったデバイス検出の実装
type LinuxDiscovery struct{}

// NewLinuxDiscovery は新しいLinuxDiscoveryを作成する
func NewLinuxDiscovery() Discovery {
	return &LinuxDiscovery{}
}

// ScanDevices はカラーフォーマットを出力できる /dev/video* を番号順に返す
func (d *LinuxDiscovery) ScanDevices(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	var devices []string
	for _, match := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if !d.IsDeviceAvailable(ctx, match) {
			continue
		}

		info, err := d.GetDeviceInfo(ctx, match)
		if err != nil || !hasColorFormat(info.Formats) {
			// メタデータ専用ノードやグレースケールのみのデバイスは除外
			continue
		}
		devices = append(devices, match)
	}

	return devices, nil
}

// IsDeviceAvailable はデバイスファイルが存在し、読み取り可能かチェックする
func (d *LinuxDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	if !videoDevicePattern.MatchString(device) {
		return false
	}

	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}

// GetDeviceInfo は v4l2-ctl の出力からカード名・ドライバー名・フォーマットを取得する
func (d *LinuxDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !d.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが利用できません: %s", device)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "v4l2-ctl", "--device", device, "--info").Output()
	if err != nil {
		return nil, fmt.Errorf("デバイス情報の取得に失敗: %w", err)
	}

	fields := parseV4L2Info(string(output))
	info := &DeviceInfo{
		Device: device,
		Name:   fields["Card type"],
		Driver: fields["Driver name"],
	}
	if info.Name == "" {
		info.Name = fmt.Sprintf("カメラ %d", extractDeviceNumber(device))
	}

	if formats, err := exec.CommandContext(ctx, "v4l2-ctl", "--device", device, "--list-formats").Output(); err == nil {
		info.Formats = parseV4L2Formats(string(formats))
	}

	return info, nil
}

// parseV4L2Info は "key : value" 形式の行を読み取る
func parseV4L2Info(output string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, exists := fields[key]; exists {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

// parseV4L2Formats は "[0]: 'MJPG' (Motion-JPEG, compressed)" 形式の行からフォーマット名を取り出す
func parseV4L2Formats(output string) []string {
	var formats []string
	for _, line := range strings.Split(output, "\n") {
		_, rest, ok := strings.Cut(line, "'")
		if !ok {
			continue
		}
		name, _, ok := strings.Cut(rest, "'")
		if ok && name != "" {
			formats = append(formats, name)
		}
	}
	return formats
}

func hasColorFormat(formats []string) bool {
	for _, f := range formats {
		if f == "MJPG" || f == "YUYV" || f == "JPEG" {
			return true
		}
	}
	return false
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) int {
	matches := videoDevicePattern.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return num
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	devices     []string
	deviceInfos map[string]*DeviceInfo
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices []string) *MockDiscovery {
	m := &MockDiscovery{deviceInfos: make(map[string]*DeviceInfo)}
	for _, device := range devices {
		m.AddDevice(device, fmt.Sprintf("テストカメラ %d", len(m.devices)+1))
	}
	return m
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	return m.devices, nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	_, exists := m.deviceInfos[device]
	return exists
}

// GetDeviceInfo はモックデバイス情報を取得する
func (m *MockDiscovery) GetDeviceInfo(_ context.Context, device string) (*DeviceInfo, error) {
	info, exists := m.deviceInfos[device]
	if !exists {
		return nil, fmt.Errorf("デバイスが見つかりません: %s", device)
	}

	// コピーを返す
	result := *info
	return &result, nil
}

// AddDevice はテスト用にデバイスを追加する
func (m *MockDiscovery) AddDevice(device, name string) {
	if _, exists := m.deviceInfos[device]; !exists {
		m.devices = append(m.devices, device)
	}
	m.deviceInfos[device] = &DeviceInfo{
		Device:  device,
		Name:    name,
		Driver:  "mock",
		Formats: []string{"MJPG"},
	}
}

// RemoveDevice はテスト用にデバイスを削除する
func (m *MockDiscovery) RemoveDevice(device string) {
	for i, d := range m.devices {
		if d == device {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			break
		}
	}
	delete(m.deviceInfos, device)
}
