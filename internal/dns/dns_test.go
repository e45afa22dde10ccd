package dns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPassesThroughLiteralIPs(t *testing.T) {
	ip, err := Lookup("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)

	ip, err = Lookup("::1")
	require.NoError(t, err)
	assert.Equal(t, "::1", ip)
}

func TestPickIPPrefersIPv4(t *testing.T) {
	ip, err := pickIP([]string{"2606:4700::6810:84e5", "104.16.132.229"})
	require.NoError(t, err)
	assert.Equal(t, "104.16.132.229", ip)
}

func TestPickIPFallsBackToIPv6(t *testing.T) {
	ip, err := pickIP([]string{"2606:4700::6810:84e5"})
	require.NoError(t, err)
	assert.Equal(t, "2606:4700::6810:84e5", ip)
}

func TestPickIPEmpty(t *testing.T) {
	_, err := pickIP(nil)
	assert.Error(t, err)
}
