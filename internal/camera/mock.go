package camera

import (
	"context"
	"errors"
	"fmt"
)

// MockJPEG は tag を埋め込んだ最小限のJPEG風バイト列を返す
// SOI と APP0 で始まり EOI で終わるため、JPEGとして判定される
func MockJPEG(tag string) []byte {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	data = append(data, tag...)
	return append(data, 0xFF, 0xD9)
}

// MockDriver はテスト用のモックドライバー
// 既定では Get のたびに新しいフレームを1枚撮像する
type MockDriver struct {
	pipeline

	expanded bool
	initErr  error
	failNext int
	auto     bool
	sensor   SensorInfo

	cfg    Config
	frames int
	closed bool

	initCalls   int
	getCalls    int
	returnCalls int
}

// NewMockDriver は新しいMockDriverを作成する
func NewMockDriver(expanded bool) *MockDriver {
	return &MockDriver{
		expanded: expanded,
		auto:     true,
		sensor:   SensorInfo{PID: 0x5640, Name: "mock OV5640"},
	}
}

// SetInitFailure は次の Init を code で失敗させる
func (m *MockDriver) SetInitFailure(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = &InitError{Code: code, Err: errors.New("モックの初期化エラー")}
}

// SetInitError は次の Init を err で失敗させる
func (m *MockDriver) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// FailNextCaptures は続く n 回の Get を失敗させる
func (m *MockDriver) FailNextCaptures(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// SetAutoEmit は Get のたびに撮像するかを切り替える
// false の場合、フレームは Emit でのみ供給される
func (m *MockDriver) SetAutoEmit(auto bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auto = auto
}

// Emit はフレームを1枚パイプラインに入れる
func (m *MockDriver) Emit(data []byte) bool {
	m.mu.Lock()
	pool, location := m.pool, m.cfg.Location
	m.mu.Unlock()

	if pool == nil {
		return false
	}
	return pool.push(&Frame{Data: data, Location: location})
}

// ExpandedMemory は生成時に指定した値を返す
func (m *MockDriver) ExpandedMemory() bool {
	return m.expanded
}

// Init は構成を記録してパイプラインを作成する
func (m *MockDriver) Init(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initCalls++
	if m.initErr != nil {
		err := m.initErr
		m.initErr = nil
		return err
	}
	if m.pool != nil {
		return &InitError{Code: CodeInvalidState, Err: errors.New("ドライバーは既に初期化されています")}
	}

	m.cfg = cfg
	m.startLocked(cfg.FBCount, nil)
	return nil
}

// Get はフレームを1枚借りる
func (m *MockDriver) Get(ctx context.Context) (*Frame, error) {
	m.mu.Lock()
	m.getCalls++
	pool := m.pool
	if pool == nil {
		m.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if m.failNext > 0 {
		m.failNext--
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: モックのキャプチャエラー", ErrCaptureFailed)
	}
	auto := m.auto
	if auto {
		m.frames++
	}
	n, location := m.frames, m.cfg.Location
	m.mu.Unlock()

	if auto {
		pool.push(&Frame{Data: MockJPEG(fmt.Sprintf("frame-%d", n)), Location: location})
	}
	return pool.take(ctx)
}

// Return はフレームバッファを返却する
func (m *MockDriver) Return(frame *Frame) {
	m.mu.Lock()
	m.returnCalls++
	m.mu.Unlock()

	m.pipeline.Return(frame)
}

// SensorID はモックセンサーの情報を返す
func (m *MockDriver) SensorID() (SensorInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sensor, m.pool != nil
}

// Close はパイプラインを停止する
func (m *MockDriver) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	return m.pipeline.Close()
}

// LastConfig は Init に渡された構成を返す
func (m *MockDriver) LastConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Calls は Init・Get・Return の呼び出し回数を返す
func (m *MockDriver) Calls() (initCalls, getCalls, returnCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls, m.getCalls, m.returnCalls
}

// Closed は Close が呼ばれたかを返す
func (m *MockDriver) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
