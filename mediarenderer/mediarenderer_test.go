package mediarenderer

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/anacrolix/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dlna/dlnacp/controlpoint"
	"github.com/go-dlna/dlnacp/httpclient"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/ssdp"
	"github.com/go-dlna/dlnacp/transport"
)

type fakeAnnouncer struct{}

func (fakeAnnouncer) Search(string, int) error             { return nil }
func (fakeAnnouncer) Poll() ([]ssdp.Advertisement, error)   { return nil, nil }
func (fakeAnnouncer) Close() error                          { return nil }

// fakeConn answers one queued reply per Request call.
type fakeConn struct {
	replies [][]byte
	idx     int
	out     bytes.Buffer
}

func (c *fakeConn) Read(buf []byte) (int, error) {
	if c.idx >= len(c.replies) {
		return 0, nil
	}
	data := c.replies[c.idx]
	n := copy(buf, data)
	c.replies[c.idx] = data[n:]
	if len(c.replies[c.idx]) == 0 {
		c.idx++
	}
	return n, nil
}
func (c *fakeConn) Write(buf []byte) (int, error) { c.out.Write(buf); return len(buf), nil }
func (c *fakeConn) Available() (int, error)        { return 1, nil }
func (c *fakeConn) Close() error                   { return nil }
func (c *fakeConn) SetDeadline(time.Time) error     { return nil }
func (c *fakeConn) SetNoDelay(bool) error           { return nil }
func (c *fakeConn) RemoteAddr() string              { return "device:80" }

type fakeDialer struct{ conn transport.Conn }

func (d *fakeDialer) Dial(host string, port int, timeout time.Duration) (transport.Conn, error) {
	return d.conn, nil
}

func newRenderer(t *testing.T, soapBody string) (*Renderer, *fakeConn) {
	t.Helper()
	reply := "HTTP/1.1 200 OK\r\nContent-Length: " + strconv.Itoa(len(soapBody)) + "\r\n\r\n" + soapBody
	conn := &fakeConn{replies: [][]byte{[]byte(reply)}}
	client := httpclient.NewClient(&fakeDialer{conn: conn}, httpclient.Options{}, log.Default)
	cp := controlpoint.New(client, fakeAnnouncer{}, nil, controlpoint.Options{}, log.Default, nil)

	controlURL, err := httpmsg.ParseURL("http://10.0.0.5/ctl/AVTransport")
	require.NoError(t, err)
	dev := &controlpoint.DeviceInfo{
		FriendlyName: "Living Room",
		Services: []controlpoint.ServiceInfo{
			{ServiceType: AVTransportServiceType, ControlURL: controlURL},
		},
	}
	r, err := New(cp, dev)
	require.NoError(t, err)
	return r, conn
}


func TestNewFailsWithoutAVTransportService(t *testing.T) {
	cp := controlpoint.New(httpclient.NewClient(&fakeDialer{}, httpclient.Options{}, log.Default),
		fakeAnnouncer{}, nil, controlpoint.Options{}, log.Default, nil)
	dev := &controlpoint.DeviceInfo{FriendlyName: "No Transport"}
	_, err := New(cp, dev)
	assert.Error(t, err)
}

func TestPlayIssuesSoapActionAndSucceeds(t *testing.T) {
	body := `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
		`<u:PlayResponse></u:PlayResponse></s:Body></s:Envelope>`
	r, conn := newRenderer(t, body)

	require.NoError(t, r.Play())
	assert.Contains(t, conn.out.String(), `"urn:schemas-upnp-org:service:AVTransport:1#Play"`)
	assert.Contains(t, conn.out.String(), "<Speed>1</Speed>")
}

func TestGetTransportInfoParsesReplyArgs(t *testing.T) {
	body := `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
		`<u:GetTransportInfoResponse><CurrentTransportState>PAUSED_PLAYBACK</CurrentTransportState>` +
		`<CurrentTransportStatus>OK</CurrentTransportStatus><CurrentSpeed>1</CurrentSpeed></u:GetTransportInfoResponse>` +
		`</s:Body></s:Envelope>`
	r, _ := newRenderer(t, body)

	info, err := r.GetTransportInfo()
	require.NoError(t, err)
	assert.Equal(t, "PAUSED_PLAYBACK", info.CurrentTransportState)
	assert.Equal(t, "OK", info.CurrentTransportStatus)
	assert.Equal(t, "1", info.CurrentSpeed)
}
