package network

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	assert.Equal(t, "192.168.4.1", Static("").Address())
	assert.Equal(t, "10.0.0.7", Static("10.0.0.7").Address())
}

func TestInterface_Address(t *testing.T) {
	tests := []struct {
		name  string
		addrs []net.Addr
		err   error
		want  string
	}{
		{
			name: "IPv4を返す",
			addrs: []net.Addr{
				&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
				&net.IPNet{IP: net.ParseIP("192.168.10.20"), Mask: net.CIDRMask(24, 32)},
			},
			want: "192.168.10.20",
		},
		{
			name:  "IPAddr形式",
			addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("172.16.0.3")}},
			want:  "172.16.0.3",
		},
		{
			name:  "ループバックのみならフォールバック",
			addrs: []net.Addr{&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)}},
			want:  "10.1.1.1",
		},
		{
			name: "インターフェースがなければフォールバック",
			err:  errors.New("no such network interface"),
			want: "10.1.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iface := NewInterface("wlan0", Static("10.1.1.1"))
			iface.addrs = func(string) ([]net.Addr, error) { return tt.addrs, tt.err }
			assert.Equal(t, tt.want, iface.Address())
		})
	}
}

func TestInterface_フォールバックなし(t *testing.T) {
	iface := NewInterface("missing0", nil)
	iface.addrs = func(string) ([]net.Addr, error) { return nil, errors.New("missing") }
	assert.Equal(t, DefaultAddress, iface.Address())
}

func TestNew(t *testing.T) {
	assert.Equal(t, Static("10.0.0.1"), New("10.0.0.1", ""))

	p := New("10.0.0.1", "definitely-not-an-interface0")
	assert.IsType(t, &Interface{}, p)
	assert.Equal(t, "10.0.0.1", p.Address())
}
