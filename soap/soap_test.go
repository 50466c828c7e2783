package soap

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeActionRoundTrip(t *testing.T) {
	args := []Arg{
		{XMLName: xml.Name{Local: "InstanceID"}, Value: "0"},
		{XMLName: xml.Name{Local: "CurrentURI"}, Value: "http://x/media.mp4"},
	}
	data, err := EncodeAction("urn:schemas-upnp-org:service:AVTransport:1", "SetAVTransportURI", args)
	require.NoError(t, err)

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Contains(t, string(env.Body.Action), "<InstanceID>0</InstanceID>")
	assert.Contains(t, string(env.Body.Action), "CurrentURI")
}

func TestDecodeReplyArgsFlat(t *testing.T) {
	inner := []byte(`<u:GetPositionInfoResponse><Track>1</Track><TrackURI>http://x</TrackURI></u:GetPositionInfoResponse>`)
	args, err := DecodeReplyArgs(inner)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Track", "1"}, {"TrackURI", "http://x"}}, args)
}

func TestNewFault(t *testing.T) {
	f := NewFault("UPnPError", 402, "Invalid Args")
	assert.Equal(t, "s:Client", f.FaultCode)
	assert.Equal(t, 402, f.Detail.UPnPError.ErrorCode)
	assert.Equal(t, "Invalid Args", f.Detail.UPnPError.ErrorDesc)
}
