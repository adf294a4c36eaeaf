package logx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ipv4 with port", "203.0.113.42:51234", "203.0.113.0"},
		{"ipv4 bare", "198.51.100.7", "198.51.100.0"},
		{"loopback", "127.0.0.1:8080", "127.0.0.1"},
		{"ipv6", "[2001:db8:85a3::8a2e:370:7334]:443", "2001:db8:85a3::"},
		{"garbage", "not-an-ip", "unknown_ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, anonymizeIP(tt.in))
		})
	}
}
