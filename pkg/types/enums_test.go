package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocol(t *testing.T) {
	tests := []struct {
		p    Protocol
		want string
		v4   bool
		v6   bool
	}{
		{ProtocolDualStack, "dual", true, true},
		{ProtocolIPv4Only, "ipv4", true, false},
		{ProtocolIPv6Only, "ipv6", false, true},
		{Protocol(99), "unknown", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.String())
			assert.Equal(t, tt.v4, tt.p.UsesIPv4())
			assert.Equal(t, tt.v6, tt.p.UsesIPv6())
		})
	}
}

func TestParseProtocol(t *testing.T) {
	for _, s := range []string{"", "dual", "Dual-Stack"} {
		p, err := ParseProtocol(s)
		require.NoError(t, err)
		assert.Equal(t, ProtocolDualStack, p)
	}

	p, err := ParseProtocol(" IPv4 ")
	require.NoError(t, err)
	assert.Equal(t, ProtocolIPv4Only, p)

	p, err = ParseProtocol("v6")
	require.NoError(t, err)
	assert.Equal(t, ProtocolIPv6Only, p)

	_, err = ParseProtocol("ipx")
	assert.Error(t, err)
}
