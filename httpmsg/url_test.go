package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURLRoundTrip(t *testing.T) {
	cases := []string{
		"http://192.168.1.5:8080/description.xml",
		"http://device.local/upnp/control/cd1",
		"http://10.0.0.1:8200/icon.png?size=large",
	}
	for _, raw := range cases {
		u, err := ParseURL(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, u.String())
	}
}

func TestParseURLDefaultsPort80(t *testing.T) {
	u, err := ParseURL("http://device.local/x")
	require.NoError(t, err)
	assert.Equal(t, 80, u.Port)
	assert.Equal(t, "device.local", u.HostHeader())
}

func TestParseURLNonAbsoluteIsError(t *testing.T) {
	_, err := ParseURL("/just/a/path")
	assert.Error(t, err)
}

func TestHostHeaderIncludesNonDefaultPort(t *testing.T) {
	u, err := ParseURL("http://device.local:8200/x")
	require.NoError(t, err)
	assert.Equal(t, "device.local:8200", u.HostHeader())
}
