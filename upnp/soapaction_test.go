package upnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceType(t *testing.T) {
	st, err := ParseServiceType("urn:schemas-upnp-org:service:ContentDirectory:1")
	require.NoError(t, err)
	assert.Equal(t, "schemas-upnp-org", st.Domain)
	assert.Equal(t, "ContentDirectory", st.Type)
	assert.Equal(t, 1, st.Version)
}

func TestParseServiceTypeMalformed(t *testing.T) {
	_, err := ParseServiceType("not-a-urn")
	assert.Error(t, err)
}

func TestSoapActionHeaderRoundTrip(t *testing.T) {
	header := FormatSoapActionHeader("urn:schemas-upnp-org:service:AVTransport:1", "Play")
	sa, err := ParseActionHTTPHeader(header)
	require.NoError(t, err)
	assert.Equal(t, "Play", sa.Action)
	assert.Equal(t, "urn:schemas-upnp-org:service:AVTransport:1", sa.ServiceURN.URN)
}
