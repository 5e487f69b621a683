// Package network はクライアントから到達可能なアドレスを提供する
//
// アクセスポイントの起動や認証情報の管理は扱わない。
// 既定のアドレスはソフトAPの既定値 192.168.4.1。
package network

import (
	"net"
)

// DefaultAddress はソフトAPモードの既定アドレス
const DefaultAddress = "192.168.4.1"

// Provider は到達可能なアドレスを報告する
type Provider interface {
	Address() string
}

// Static は固定のアドレスを返す
type Static string

// Address は設定されたアドレスを返す（空なら既定値）
func (s Static) Address() string {
	if s == "" {
		return DefaultAddress
	}
	return string(s)
}

// Interface は名前付きインターフェースの最初の IPv4 アドレスを返す
// 取得できない場合は Fallback を使う
type Interface struct {
	Name     string
	Fallback Provider

	// addrs はテストで差し替える
	addrs func(name string) ([]net.Addr, error)
}

// NewInterface は新しい Interface を作成する
func NewInterface(name string, fallback Provider) *Interface {
	return &Interface{
		Name:     name,
		Fallback: fallback,
		addrs:    interfaceAddrs,
	}
}

// Address はインターフェースのアドレスを返す
// 呼び出しのたびに引き直すため、DHCP による変更にも追従する
func (i *Interface) Address() string {
	if addrs, err := i.addrs(i.Name); err == nil {
		if ip := firstIPv4(addrs); ip != "" {
			return ip
		}
	}
	if i.Fallback != nil {
		return i.Fallback.Address()
	}
	return DefaultAddress
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}

func firstIPv4(addrs []net.Addr) string {
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4.String()
		}
	}
	return ""
}

// New は設定からプロバイダーを組み立てる
// iface が空なら advertiseIP を固定で返す
func New(advertiseIP, iface string) Provider {
	static := Static(advertiseIP)
	if iface == "" {
		return static
	}
	return NewInterface(iface, static)
}
