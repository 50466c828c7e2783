package controlpoint

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/anacrolix/log"

	"github.com/go-dlna/dlnacp/httpclient"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/httpserver"
	"github.com/go-dlna/dlnacp/ssdp"
	"github.com/go-dlna/dlnacp/subscription"
	"github.com/go-dlna/dlnacp/upnp"
)

// ControlPoint drives discovery, description, action invocation and
// eventing for one logical control point, per spec.md §4.6. It owns no
// socket of its own for inbound traffic: NOTIFY delivery rides on a
// caller-supplied httpserver.Server, shared with whatever other routes
// the host process serves.
type ControlPoint struct {
	Client    *httpclient.Client
	Announcer ssdp.Announcer
	Server    *httpserver.Server
	Subs      *subscription.Manager
	Logger    log.Logger
	Opts      Options

	devicesByLocation map[string]*DeviceInfo
	devicesByUDN      map[string]*DeviceInfo

	pending    []*Action
	lastAction *Action

	discovering     bool
	discoveryTarget string
	discoveryUntil  time.Time
}

// New builds a ControlPoint. server may be nil if the caller doesn't
// intend to subscribe to events (discovery and action invocation work
// without one); onEvent is invoked once per evented variable delivered
// by a NOTIFY.
func New(client *httpclient.Client, announcer ssdp.Announcer, server *httpserver.Server, opts Options, logger log.Logger, onEvent subscription.EventCallback) *ControlPoint {
	opts.setDefaults()
	cp := &ControlPoint{
		Client:            client,
		Announcer:         announcer,
		Server:            server,
		Opts:              opts,
		Logger:            logger,
		devicesByLocation: make(map[string]*DeviceInfo),
		devicesByUDN:      make(map[string]*DeviceInfo),
	}
	cp.Subs = subscription.NewManager(logger, onEvent, cp)
	if server != nil {
		server.Router.Handle(opts.EvtRoutePrefix+"*", string(httpmsg.NOTIFY), "", httpserver.CallbackHandler[*ControlPoint]{
			Context: cp,
			Call: func(ctx *httpserver.RequestContext, value *ControlPoint) {
				value.serveNotify(ctx)
			},
		})
	}
	return cp
}

// Begin starts an SSDP search for target (e.g. "ssdp:all" or a specific
// service type URN) and opens the discovery window [minWait, maxWait],
// per spec.md §4.6.1. minWait only raises maxWait if it exceeds it (via
// SearchWindow), guaranteeing the window is at least minWait long;
// responses and unsolicited NOTIFY advertisements are drained by Tick
// until maxWait elapses.
func (cp *ControlPoint) Begin(target string, minWait, maxWait time.Duration) error {
	_, maxWait = ssdp.SearchWindow(minWait, maxWait)
	if err := cp.Announcer.Search(target, int(maxWait.Seconds())); err != nil {
		return err
	}
	cp.discoveryTarget = target
	cp.discoveryUntil = now().Add(maxWait)
	cp.discovering = true
	return nil
}

// Discovering reports whether the discovery window from the most recent
// Begin is still open.
func (cp *ControlPoint) Discovering() bool { return cp.discovering }

// Devices returns every currently known device, in no particular order.
func (cp *ControlPoint) Devices() []*DeviceInfo {
	out := make([]*DeviceInfo, 0, len(cp.devicesByLocation))
	for _, d := range cp.devicesByLocation {
		out = append(out, d)
	}
	return out
}

// DeviceByUDN looks up a device by its UDN, surviving a change of
// location (e.g. a DHCP lease renewal), per SPEC_FULL.md's supplemented
// UDN index.
func (cp *ControlPoint) DeviceByUDN(udn string) (*DeviceInfo, bool) {
	d, ok := cp.devicesByUDN[udn]
	return d, ok
}

// Enqueue queues action for execution on a future Tick or ExecuteAll
// call.
func (cp *ControlPoint) Enqueue(a *Action) {
	cp.pending = append(cp.pending, a)
}

// LastAction returns the most recently completed action, if any.
func (cp *ControlPoint) LastAction() *Action { return cp.lastAction }

// Tick performs one cooperative step: drain discovery, execute at most
// one queued action, fire any subscriptions due for renewal, and
// advance the shared HTTP server, per spec.md §5's per-tick protocol.
// It returns true if any of those made progress.
func (cp *ControlPoint) Tick() bool {
	progressed := false
	if cp.pollDiscovery() {
		progressed = true
	}
	if cp.executeNext() {
		progressed = true
	}
	if cp.renewDue(now()) {
		progressed = true
	}
	if cp.Server != nil && cp.Server.Tick() {
		progressed = true
	}
	return progressed
}

// End unsubscribes from every active subscription, clears discovered
// devices, and stops any in-progress discovery, per spec.md §4.6's
// shutdown semantics. It does not close the shared HTTP server or
// client; callers own those.
func (cp *ControlPoint) End() {
	for _, rec := range cp.Subs.All() {
		cp.unsubscribe(rec)
	}
	cp.Subs.Clear()
	cp.devicesByLocation = make(map[string]*DeviceInfo)
	cp.devicesByUDN = make(map[string]*DeviceInfo)
	cp.discovering = false
}

func (cp *ControlPoint) pollDiscovery() bool {
	if !cp.discovering {
		return false
	}
	advs, err := cp.Announcer.Poll()
	if err != nil {
		cp.Logger.Levelf(log.Debug, "ssdp poll error: %s", err)
	}
	progressed := len(advs) > 0
	for _, adv := range advs {
		if adv.NTS == "ssdp:byebye" {
			cp.forget(adv.Location)
			continue
		}
		if !cp.shouldConsider(adv) {
			continue
		}
		cp.describeDevice(adv.Location)
	}
	if now().After(cp.discoveryUntil) {
		cp.discovering = false
	}
	return progressed
}

func (cp *ControlPoint) shouldConsider(adv ssdp.Advertisement) bool {
	if adv.Location == "" {
		return false
	}
	if !cp.Opts.AllowLocalhost && isLocalhostURL(adv.Location) {
		return false
	}
	if _, ok := cp.devicesByLocation[adv.Location]; ok {
		return false
	}
	return true
}

func isLocalhostURL(raw string) bool {
	u, err := httpmsg.ParseURL(raw)
	if err != nil {
		return false
	}
	return u.Host == "127.0.0.1" || u.Host == "localhost" || u.Host == "::1"
}

func (cp *ControlPoint) forget(location string) {
	dev, ok := cp.devicesByLocation[location]
	if !ok {
		return
	}
	delete(cp.devicesByLocation, location)
	delete(cp.devicesByUDN, dev.UDN)
}

// describeDevice fetches and parses location's device description, and
// indexes the result by both location and UDN. A fetch or parse failure
// for one device is logged and does not abort discovery of the others,
// per spec.md §4.6.2's isolation of per-device description failures.
func (cp *ControlPoint) describeDevice(location string) {
	u, err := httpmsg.ParseURL(location)
	if err != nil {
		cp.Logger.Levelf(log.Debug, "bad device location %q: %s", location, err)
		return
	}
	reply, err := cp.Client.Request(httpmsg.GET, u, "", nil, nil)
	if err != nil {
		cp.Logger.Levelf(log.Debug, "fetch device description %s: %s", location, err)
		return
	}
	if !isSuccess(reply.Status) {
		cp.Logger.Levelf(log.Debug, "device description %s returned %d", location, reply.Status)
		return
	}
	body, err := io.ReadAll(bodyReader{reply.Body})
	if err != nil {
		cp.Logger.Levelf(log.Debug, "read device description %s: %s", location, err)
		return
	}

	var desc upnp.DeviceDesc
	if err := xml.Unmarshal(body, &desc); err != nil {
		cp.Logger.Levelf(log.Debug, "parse device description %s: %s", location, err)
		return
	}
	if cp.Opts.DeviceTypeFilter != "" && desc.Device.DeviceType != cp.Opts.DeviceTypeFilter {
		return
	}

	dev := &DeviceInfo{
		Location:     location,
		UDN:          desc.Device.UDN,
		FriendlyName: desc.Device.FriendlyName,
		DeviceType:   desc.Device.DeviceType,
	}
	for _, svc := range desc.Device.ServiceList {
		control, err := resolveAgainst(u, svc.ControlURL)
		if err != nil {
			continue
		}
		eventSub, err := resolveAgainst(u, svc.EventSubURL)
		if err != nil {
			continue
		}
		dev.Services = append(dev.Services, ServiceInfo{
			ServiceType: svc.ServiceType,
			ServiceId:   svc.ServiceId,
			ControlURL:  control,
			EventSubURL: eventSub,
		})
	}

	cp.devicesByLocation[location] = dev
	if dev.UDN != "" {
		cp.devicesByUDN[dev.UDN] = dev
	}
	cp.Logger.Levelf(log.Info, "discovered device %q (%s) at %s", dev.FriendlyName, dev.DeviceType, location)
}

// resolveAgainst resolves ref, which may be a full URL or a path
// relative to base, per spec.md §4.6.2's note that SCPDURL/
// controlURL/eventSubURL in a device description are frequently
// relative.
func resolveAgainst(base httpmsg.URL, ref string) (httpmsg.URL, error) {
	if u, err := httpmsg.ParseURL(ref); err == nil {
		return u, nil
	}
	out := base
	if len(ref) > 0 && ref[0] == '/' {
		out.Path = ref
	} else {
		out.Path = joinPath(base.Path, ref)
	}
	out.Query = ""
	return out, nil
}

func joinPath(base, rel string) string {
	i := len(base)
	for i > 0 && base[i-1] != '/' {
		i--
	}
	return base[:i] + rel
}

type bodyReader struct {
	r interface {
		Read(buf []byte) (int, error)
		Done() bool
	}
}

func (b bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 && b.r.Done() {
		return 0, io.EOF
	}
	return n, nil
}
