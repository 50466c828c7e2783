// Package mediarenderer is a thin convenience layer over
// controlpoint.ControlPoint for the AVTransport service, the kind of
// external collaborator spec.md's design notes describe as "a thin
// layer that calls the action pipeline and parses named reply
// arguments" rather than a core runtime concern.
package mediarenderer

import (
	"fmt"

	"github.com/go-dlna/dlnacp/controlpoint"
)

// AVTransportServiceType is the standard service type these helpers
// target.
const AVTransportServiceType = "urn:schemas-upnp-org:service:AVTransport:1"

// Renderer wraps one device's AVTransport service.
type Renderer struct {
	cp  *controlpoint.ControlPoint
	svc controlpoint.ServiceInfo
}

// New builds a Renderer from a discovered device, failing if it has no
// AVTransport service.
func New(cp *controlpoint.ControlPoint, dev *controlpoint.DeviceInfo) (*Renderer, error) {
	svc, ok := dev.ServiceByType(AVTransportServiceType)
	if !ok {
		return nil, fmt.Errorf("mediarenderer: device %q has no AVTransport service", dev.FriendlyName)
	}
	return &Renderer{cp: cp, svc: svc}, nil
}

func (r *Renderer) invoke(action string, args [][2]string) (*controlpoint.Action, error) {
	a := controlpoint.NewAction(r.svc, action, args)
	r.cp.Enqueue(a)
	r.cp.ExecuteAll()
	if a.Err != nil {
		return a, a.Err
	}
	if !a.OK() {
		return a, fmt.Errorf("mediarenderer: %s returned status %d", action, a.Status)
	}
	return a, nil
}

func instanceArg() [2]string { return [2]string{"InstanceID", "0"} }

// SetAVTransportURI points the renderer at a media URL with no metadata
// (an empty CurrentURIMetaData, which most renderers tolerate).
func (r *Renderer) SetAVTransportURI(uri string) error {
	_, err := r.invoke("SetAVTransportURI", [][2]string{
		instanceArg(),
		{"CurrentURI", uri},
		{"CurrentURIMetaData", ""},
	})
	return err
}

// Play starts playback at normal (1) speed.
func (r *Renderer) Play() error {
	_, err := r.invoke("Play", [][2]string{instanceArg(), {"Speed", "1"}})
	return err
}

// Pause pauses playback.
func (r *Renderer) Pause() error {
	_, err := r.invoke("Pause", [][2]string{instanceArg()})
	return err
}

// Stop stops playback.
func (r *Renderer) Stop() error {
	_, err := r.invoke("Stop", [][2]string{instanceArg()})
	return err
}

// TransportInfo is the parsed reply of GetTransportInfo.
type TransportInfo struct {
	CurrentTransportState  string
	CurrentTransportStatus string
	CurrentSpeed           string
}

// GetTransportInfo reports the renderer's current transport state, e.g.
// "PLAYING", "PAUSED_PLAYBACK", "STOPPED" — the concrete observable the
// GENA event callback design is meant to let a caller watch change over
// time without polling this action.
func (r *Renderer) GetTransportInfo() (TransportInfo, error) {
	a, err := r.invoke("GetTransportInfo", [][2]string{instanceArg()})
	if err != nil {
		return TransportInfo{}, err
	}
	var info TransportInfo
	info.CurrentTransportState, _ = a.Reply("CurrentTransportState")
	info.CurrentTransportStatus, _ = a.Reply("CurrentTransportStatus")
	info.CurrentSpeed, _ = a.Reply("CurrentSpeed")
	return info, nil
}

// PositionInfo is the parsed reply of GetPositionInfo.
type PositionInfo struct {
	Track         string
	TrackDuration string
	TrackURI      string
	RelTime       string
	AbsTime       string
}

// GetPositionInfo reports the renderer's current track and position.
func (r *Renderer) GetPositionInfo() (PositionInfo, error) {
	a, err := r.invoke("GetPositionInfo", [][2]string{instanceArg()})
	if err != nil {
		return PositionInfo{}, err
	}
	var info PositionInfo
	info.Track, _ = a.Reply("Track")
	info.TrackDuration, _ = a.Reply("TrackDuration")
	info.TrackURI, _ = a.Reply("TrackURI")
	info.RelTime, _ = a.Reply("RelTime")
	info.AbsTime, _ = a.Reply("AbsTime")
	return info, nil
}
