// Package controlpoint implements the orchestrator described in
// spec.md §4.6: SSDP discovery, device description fetch, SOAP action
// execution and GENA subscription lifecycle, all driven forward by a
// single cooperative Tick, matching the HTTP engine's scheduling model.
package controlpoint

import (
	"strconv"
	"time"

	"github.com/go-dlna/dlnacp/httpmsg"
)

// ServiceInfo is one service advertised by a device description,
// resolved to absolute control/event URLs against the device's
// location, per spec.md §4.6.2.
type ServiceInfo struct {
	ServiceType string
	ServiceId   string
	ControlURL  httpmsg.URL
	EventSubURL httpmsg.URL
}

// DeviceInfo is one discovered device: its description, keyed by the
// location URL it was fetched from (spec.md §3's uniqueness invariant),
// plus the UDN index SPEC_FULL.md adds so a device surviving an address
// change is still recognized as the same device.
type DeviceInfo struct {
	Location     string
	UDN          string
	FriendlyName string
	DeviceType   string
	Services     []ServiceInfo
}

// ServiceByType returns the first service whose ServiceType matches, or
// false if the device has none.
func (d *DeviceInfo) ServiceByType(serviceType string) (ServiceInfo, bool) {
	for _, s := range d.Services {
		if s.ServiceType == serviceType {
			return s, true
		}
	}
	return ServiceInfo{}, false
}

// Action is one queued or completed SOAP action invocation, per spec.md
// §3's Action lifecycle: queued, then executed, then holding its reply
// or failure status.
type Action struct {
	Service     ServiceInfo
	Name        string
	ArgsRequest [][2]string
	ArgsReply   [][2]string

	// Status is the HTTP status of the control reply, or -1 if the
	// request never reached the device (dial/write/read failure).
	Status int
	Err    error

	// xmlProcessor, if set, receives the raw reply instead of the
	// default SOAP-envelope decode, for large bodies the caller wants
	// to stream-parse (spec.md's xmlProcessor hook; used by the
	// GetProtocolInfo convenience wrapper).
	xmlProcessor ReplyProcessor
}

// ReplyProcessor consumes a control reply's body directly, bypassing
// the default buffered SOAP-envelope decode. The returned error is
// stored in the action's Err field.
type ReplyProcessor func(reply *Action, status int, headers *httpmsg.Header, body BodyReader) error

// BodyReader is the subset of httpclient.Reply's Body the processor
// needs, kept narrow so controlpoint doesn't leak httpclient's Reply
// type into action results.
type BodyReader interface {
	Read(buf []byte) (int, error)
	Done() bool
}

// OK reports whether the action's control reply was a 2xx success.
func (a *Action) OK() bool {
	return a.Status >= 200 && a.Status < 300
}

// Reply looks up one reply argument by name.
func (a *Action) Reply(name string) (string, bool) {
	for _, p := range a.ArgsReply {
		if p[0] == name {
			return p[1], true
		}
	}
	return "", false
}

// Options configures discovery, subscription and allow-listing policy.
type Options struct {
	AllowLocalhost    bool
	DeviceTypeFilter  string // empty means "accept any device type"
	SubscribeSeconds  int    // TIMEOUT requested on SUBSCRIBE, default 1800
	CallbackBaseURL   string // e.g. "http://192.168.1.50:7676", this control point's own HTTP server address
	EvtRoutePrefix    string // default "/evt/"
}

func (o *Options) setDefaults() {
	if o.SubscribeSeconds == 0 {
		o.SubscribeSeconds = 1800
	}
	if o.EvtRoutePrefix == "" {
		o.EvtRoutePrefix = "/evt/"
	}
}

func timeoutHeader(seconds int) string {
	return "Second-" + itoa(seconds)
}

func parseTimeoutHeader(v string) int {
	const prefix = "Second-"
	if len(v) <= len(prefix) || v[:len(prefix)] != prefix {
		return 0
	}
	n := 0
	for _, c := range v[len(prefix):] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }

func isSuccess(status int) bool { return status >= 200 && status < 300 }

func now() time.Time { return time.Now() }
