package controlpoint

import (
	"bytes"
	"testing"
	"time"

	"github.com/anacrolix/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dlna/dlnacp/httpclient"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/ssdp"
	"github.com/go-dlna/dlnacp/transport"
)

// fakeAnnouncer is a hand-written Announcer fake that returns one queued
// batch of advertisements on its first Poll call.
type fakeAnnouncer struct {
	advs    []ssdp.Advertisement
	polled  bool
	searchN int
}

func (a *fakeAnnouncer) Search(target string, mx int) error { a.searchN++; return nil }
func (a *fakeAnnouncer) Poll() ([]ssdp.Advertisement, error) {
	if a.polled {
		return nil, nil
	}
	a.polled = true
	return a.advs, nil
}
func (a *fakeAnnouncer) Close() error { return nil }

// fakeConn answers whatever is queued in replies, one per Request call,
// ignoring what's written.
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

const deviceDescXML = "HTTP/1.1 200 OK\r\nContent-Length: 437\r\n\r\n" +
	`<?xml version="1.0"?>` +
	`<root xmlns="urn:schemas-upnp-org:device-1-0">` +
	`<specVersion><major>1</major><minor>0</minor></specVersion>` +
	`<device>` +
	`<deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>` +
	`<friendlyName>Living Room</friendlyName>` +
	`<UDN>uuid:abc-123</UDN>` +
	`<serviceList><service>` +
	`<serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>` +
	`<serviceId>urn:upnp-org:serviceId:AVTransport</serviceId>` +
	`<controlURL>/ctl/AVTransport</controlURL>` +
	`<eventSubURL>/evt/AVTransport</eventSubURL>` +
	`</service></serviceList></device></root>`

func TestDiscoveryFetchesAndIndexesDevice(t *testing.T) {
	body := deviceDescXML[len("HTTP/1.1 200 OK\r\nContent-Length: 437\r\n\r\n"):]
	reply := "HTTP/1.1 200 OK\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body
	conn := &fakeConn{replies: [][]byte{[]byte(reply)}}

	client := httpclient.NewClient(&fakeDialer{conn: conn}, httpclient.Options{}, log.Default)
	announcer := &fakeAnnouncer{advs: []ssdp.Advertisement{{Location: "http://10.0.0.5:80/desc.xml", ST: "ssdp:all"}}}

	cp := New(client, announcer, nil, Options{}, log.Default, nil)
	require.NoError(t, cp.Begin("ssdp:all", 0, time.Millisecond))

	cp.Tick()

	devs := cp.Devices()
	require.Len(t, devs, 1)
	assert.Equal(t, "Living Room", devs[0].FriendlyName)
	assert.Equal(t, 1, announcer.searchN)

	dev, ok := cp.DeviceByUDN("uuid:abc-123")
	require.True(t, ok)
	svc, ok := dev.ServiceByType("urn:schemas-upnp-org:service:AVTransport:1")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", svc.ControlURL.Host)
	assert.Equal(t, "/ctl/AVTransport", svc.ControlURL.Path)
}

func TestExecuteActionDecodesReplyArgs(t *testing.T) {
	soapReply := "HTTP/1.1 200 OK\r\nContent-Length: 231\r\n\r\n" +
		`<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
		`<u:GetTransportInfoResponse><CurrentTransportState>PLAYING</CurrentTransportState></u:GetTransportInfoResponse>` +
		`</s:Body></s:Envelope>`
	body := soapReply[len("HTTP/1.1 200 OK\r\nContent-Length: 231\r\n\r\n"):]
	reply := "HTTP/1.1 200 OK\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body
	conn := &fakeConn{replies: [][]byte{[]byte(reply)}}

	client := httpclient.NewClient(&fakeDialer{conn: conn}, httpclient.Options{}, log.Default)
	cp := New(client, &fakeAnnouncer{}, nil, Options{}, log.Default, nil)

	controlURL, err := httpmsg.ParseURL("http://10.0.0.5/ctl/AVTransport")
	require.NoError(t, err)
	svc := ServiceInfo{ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", ControlURL: controlURL}

	a := NewAction(svc, "GetTransportInfo", [][2]string{{"InstanceID", "0"}})
	cp.Enqueue(a)
	cp.ExecuteAll()

	require.NoError(t, a.Err)
	assert.True(t, a.OK())
	state, ok := a.Reply("CurrentTransportState")
	require.True(t, ok)
	assert.Equal(t, "PLAYING", state)
}

func TestEndUnsubscribesAndClears(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{[]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")}}
	client := httpclient.NewClient(&fakeDialer{conn: conn}, httpclient.Options{}, log.Default)
	cp := New(client, &fakeAnnouncer{}, nil, Options{}, log.Default, nil)

	cp.Subs.Add("urn:x", "http://10.0.0.5/evt/x", "uuid:sid-1", 1800, "/evt/x")
	cp.End()

	assert.Empty(t, cp.Subs.All())
	assert.Empty(t, cp.Devices())
	assert.False(t, cp.Discovering())
}
