// Package subscription tracks active GENA subscriptions: their SIDs,
// expiry and scheduled renewal, and routes inbound NOTIFY bodies to the
// event callback, per spec.md §4.6.3–§4.6.4.
package subscription

import (
	"fmt"
	"time"

	"github.com/anacrolix/log"

	"github.com/go-dlna/dlnacp/dlnaerr"
)

// Record is one active subscription (spec.md's SubscriptionRecord).
type Record struct {
	ServiceType  string
	EventURL     string
	SID          string
	ExpiresAt    time.Time
	CallbackPath string

	renewAt time.Time
}

// EventCallback is invoked once per evented variable change delivered by
// a NOTIFY, per spec.md's (sid, variableName, newValue, userRef)
// signature.
type EventCallback func(sid, variable, value string, userRef interface{})

// Manager tracks subscriptions keyed by SID, schedules renewals at
// ~0.5*TIMEOUT before expiry, and dispatches NOTIFY bodies.
type Manager struct {
	Logger   log.Logger
	OnEvent  EventCallback
	UserRef  interface{}

	bySID map[string]*Record
}

func NewManager(logger log.Logger, onEvent EventCallback, userRef interface{}) *Manager {
	return &Manager{Logger: logger, OnEvent: onEvent, UserRef: userRef, bySID: make(map[string]*Record)}
}

// Add records a new subscription after a successful SUBSCRIBE. A
// subscription's SID is unique across active subscriptions, per spec.md's
// invariant; Add overwrites silently if the device somehow reuses one
// (shouldn't happen, but the invariant is the caller's to guarantee, not
// this method's to defend against failing loudly).
func (m *Manager) Add(serviceType, eventURL, sid string, timeoutSeconds int, callbackPath string) *Record {
	rec := &Record{
		ServiceType:  serviceType,
		EventURL:     eventURL,
		SID:          sid,
		CallbackPath: callbackPath,
	}
	m.setTimeout(rec, timeoutSeconds)
	m.bySID[sid] = rec
	return rec
}

// setTimeout applies a TIMEOUT value (seconds, with "Second-0" meaning
// immediate expiry per spec.md's boundary behavior) and schedules the
// next renewal at half the remaining lifetime.
func (m *Manager) setTimeout(rec *Record, timeoutSeconds int) {
	now := time.Now()
	if timeoutSeconds <= 0 {
		rec.ExpiresAt = now
		rec.renewAt = now
		return
	}
	d := time.Duration(timeoutSeconds) * time.Second
	rec.ExpiresAt = now.Add(d)
	rec.renewAt = now.Add(d / 2)
}

// Renew updates an existing record in place after a successful renewal
// SUBSCRIBE, preserving its SID per spec.md's invariant.
func (m *Manager) Renew(sid string, timeoutSeconds int) error {
	rec, ok := m.bySID[sid]
	if !ok {
		return dlnaerr.SubscriptionError{ServiceType: sid, Reason: "renew of unknown SID"}
	}
	m.setTimeout(rec, timeoutSeconds)
	return nil
}

// Remove deletes sid, e.g. after UNSUBSCRIBE or shutdown.
func (m *Manager) Remove(sid string) {
	delete(m.bySID, sid)
}

// Get returns the record for sid, if active.
func (m *Manager) Get(sid string) (*Record, bool) {
	rec, ok := m.bySID[sid]
	return rec, ok
}

// All returns every active record, in no particular order.
func (m *Manager) All() []*Record {
	out := make([]*Record, 0, len(m.bySID))
	for _, r := range m.bySID {
		out = append(out, r)
	}
	return out
}

// DueForRenewal returns records whose renewAt deadline has passed as of
// now, for the control point's tick to act on.
func (m *Manager) DueForRenewal(now time.Time) []*Record {
	var due []*Record
	for _, r := range m.bySID {
		if !r.renewAt.IsZero() && !now.Before(r.renewAt) {
			due = append(due, r)
		}
	}
	return due
}

// HandleNotify dispatches a decoded GENA propertyset to OnEvent, one
// callback invocation per (name,value) pair. An unknown SID is reported
// back to the caller so the HTTP handler can answer 412 Precondition
// Failed, per spec.md §4.6.5's failure semantics.
func (m *Manager) HandleNotify(sid string, pairs [][2]string) error {
	if _, ok := m.bySID[sid]; !ok {
		return fmt.Errorf("unknown subscription SID %q", sid)
	}
	for _, pair := range pairs {
		m.OnEvent(sid, pair[0], pair[1], m.UserRef)
	}
	return nil
}

// Clear empties the manager, used by ControlPoint.End after issuing
// UNSUBSCRIBE for every record.
func (m *Manager) Clear() {
	m.bySID = make(map[string]*Record)
}
