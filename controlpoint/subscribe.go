package controlpoint

import (
	"time"

	"github.com/anacrolix/log"

	"github.com/go-dlna/dlnacp/dlnaerr"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/subscription"
	"github.com/go-dlna/dlnacp/upnp"
)

// SubscribeFilter selects which services to subscribe to; nil means
// "every service with an EventSubURL".
type SubscribeFilter func(dev *DeviceInfo, svc ServiceInfo) bool

// SubscribeNotifications issues SUBSCRIBE against every service
// matching filter across all known devices, per spec.md §4.6.3. A
// per-service failure is logged and does not abort the others.
func (cp *ControlPoint) SubscribeNotifications(filter SubscribeFilter) {
	for _, dev := range cp.devicesByLocation {
		for _, svc := range dev.Services {
			if filter != nil && !filter(dev, svc) {
				continue
			}
			cp.subscribeOne(dev, svc)
		}
	}
}

func (cp *ControlPoint) subscribeOne(dev *DeviceInfo, svc ServiceInfo) {
	callbackPath := cp.Opts.EvtRoutePrefix + svc.ServiceId
	callbackURL := cp.Opts.CallbackBaseURL + callbackPath

	extra := map[string]string{
		"CALLBACK": upnp.FormatCallbackHeader([]string{callbackURL}),
		"NT":       "upnp:event",
		"TIMEOUT":  timeoutHeader(cp.Opts.SubscribeSeconds),
	}
	reply, err := cp.Client.Request(httpmsg.SUBSCRIBE, svc.EventSubURL, "", nil, extra)
	if err != nil {
		cp.Logger.Levelf(log.Debug, "subscribe %s: %s", svc.ServiceType, err)
		return
	}
	if !isSuccess(reply.Status) {
		cp.Logger.Levelf(log.Debug, "subscribe %s: status %d", svc.ServiceType, reply.Status)
		return
	}
	sid := reply.Headers.Get("SID")
	if sid == "" {
		cp.Logger.Levelf(log.Debug, "subscribe %s: missing SID", svc.ServiceType)
		return
	}
	timeout := parseTimeoutHeader(reply.Headers.Get("TIMEOUT"))
	cp.Subs.Add(svc.ServiceType, svc.EventSubURL.String(), sid, timeout, callbackPath)
}

// renewDue issues a renewal SUBSCRIBE (carrying SID, no CALLBACK/NT) for
// every subscription whose renewAt deadline has passed, per spec.md
// §4.6.3's "scheduled at ~0.5*TIMEOUT before expiry" rule.
func (cp *ControlPoint) renewDue(at time.Time) bool {
	due := cp.Subs.DueForRenewal(at)
	if len(due) == 0 {
		return false
	}
	for _, rec := range due {
		cp.renewOne(rec)
	}
	return true
}

func (cp *ControlPoint) renewOne(rec *subscription.Record) {
	u, err := httpmsg.ParseURL(rec.EventURL)
	if err != nil {
		cp.Logger.Levelf(log.Debug, "renew %s: bad event url: %s", rec.SID, err)
		return
	}
	extra := map[string]string{
		"SID":     rec.SID,
		"TIMEOUT": timeoutHeader(cp.Opts.SubscribeSeconds),
	}
	reply, err := cp.Client.Request(httpmsg.SUBSCRIBE, u, "", nil, extra)
	if err != nil {
		// A transport failure is always retryable: left as-is, the next
		// Tick will see renewAt still due and try again, bounded only by
		// the subscription's own expiry.
		subErr := dlnaerr.SubscriptionError{ServiceType: rec.ServiceType, Reason: err.Error(), Cause: dlnaerr.TransportError{Op: "renew", Err: err}}
		if !now().Before(rec.ExpiresAt) {
			cp.Logger.Levelf(log.Info, "renew %s failed after expiry, dropping subscription: %s", rec.SID, subErr)
			cp.Subs.Remove(rec.SID)
			return
		}
		cp.Logger.Levelf(log.Debug, "renew %s failed, will retry: %s", rec.SID, subErr)
		return
	}
	if !isSuccess(reply.Status) {
		subErr := dlnaerr.SubscriptionError{
			ServiceType: rec.ServiceType,
			Reason:      reply.ReasonPhrase,
			Cause:       dlnaerr.RemoteError{Status: reply.Status, Reason: reply.ReasonPhrase},
		}
		if !subErr.Retryable() {
			cp.Logger.Levelf(log.Info, "renew %s rejected permanently, dropping subscription: %s", rec.SID, subErr)
			cp.Subs.Remove(rec.SID)
			return
		}
		if !now().Before(rec.ExpiresAt) {
			cp.Logger.Levelf(log.Info, "renew %s failed after expiry, dropping subscription: %s", rec.SID, subErr)
			cp.Subs.Remove(rec.SID)
			return
		}
		cp.Logger.Levelf(log.Debug, "renew %s failed, will retry: %s", rec.SID, subErr)
		return
	}
	timeout := parseTimeoutHeader(reply.Headers.Get("TIMEOUT"))
	if err := cp.Subs.Renew(rec.SID, timeout); err != nil {
		cp.Logger.Levelf(log.Debug, "renew %s: %s", rec.SID, err)
	}
}

// unsubscribe issues UNSUBSCRIBE for rec. Failures are logged only; the
// record is removed from the manager by the caller regardless, since a
// device that's gone unreachable can't be un-subscribed from anyway.
func (cp *ControlPoint) unsubscribe(rec *subscription.Record) {
	u, err := httpmsg.ParseURL(rec.EventURL)
	if err != nil {
		return
	}
	_, err = cp.Client.Request(httpmsg.UNSUBSCRIBE, u, "", nil, map[string]string{"SID": rec.SID})
	if err != nil {
		cp.Logger.Levelf(log.Debug, "unsubscribe %s: %s", rec.SID, err)
	}
}
