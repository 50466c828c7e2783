package controlpoint

import (
	"encoding/xml"
	"io"

	"github.com/anacrolix/log"

	"github.com/go-dlna/dlnacp/dlnaerr"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/soap"
	"github.com/go-dlna/dlnacp/upnp"
)

func xmlNameFor(name string) xml.Name { return xml.Name{Local: name} }

func unmarshalFault(data []byte, fault *soap.Fault) error {
	return xml.Unmarshal(data, fault)
}

// NewAction builds an action ready for Enqueue.
func NewAction(svc ServiceInfo, name string, args [][2]string) *Action {
	return &Action{Service: svc, Name: name, ArgsRequest: args, Status: -1}
}

// WithReplyProcessor attaches a streaming reply processor, bypassing
// the default buffered SOAP decode (spec.md's xmlProcessor hook).
func (a *Action) WithReplyProcessor(p ReplyProcessor) *Action {
	a.xmlProcessor = p
	return a
}

// executeNext dequeues and runs at most one pending action, matching
// the tick's "service at most one queued action per call" rule (spec.md
// §5). It returns true if an action was executed.
func (cp *ControlPoint) executeNext() bool {
	if len(cp.pending) == 0 {
		return false
	}
	a := cp.pending[0]
	cp.pending = cp.pending[1:]
	cp.runAction(a)
	cp.lastAction = a
	return true
}

// ExecuteAll drains the entire pending queue synchronously, for callers
// that don't want to wait out several Tick calls for a batch of
// actions (spec.md §4.6.2's executeActions entry point).
func (cp *ControlPoint) ExecuteAll() {
	for len(cp.pending) > 0 {
		a := cp.pending[0]
		cp.pending = cp.pending[1:]
		cp.runAction(a)
		cp.lastAction = a
	}
}

func (cp *ControlPoint) runAction(a *Action) {
	args := make([]soap.Arg, 0, len(a.ArgsRequest))
	for _, kv := range a.ArgsRequest {
		args = append(args, soap.Arg{XMLName: xmlNameFor(kv[0]), Value: kv[1]})
	}
	envelope, err := soap.EncodeAction(a.Service.ServiceType, a.Name, args)
	if err != nil {
		a.Status = -1
		a.Err = dlnaerr.ParseError{Context: "encode-action", Err: err}
		return
	}

	extra := map[string]string{
		"SOAPACTION": upnp.FormatSoapActionHeader(a.Service.ServiceType, a.Name),
	}
	reply, err := cp.Client.Request(httpmsg.POST, a.Service.ControlURL, `text/xml; charset="utf-8"`, envelope, extra)
	if err != nil {
		a.Status = -1
		a.Err = err
		cp.Logger.Levelf(log.Debug, "action %s on %s failed: %s", a.Name, a.Service.ServiceType, err)
		return
	}
	a.Status = reply.Status

	if a.xmlProcessor != nil {
		a.Err = a.xmlProcessor(a, reply.Status, reply.Headers, reply.Body)
		return
	}

	body, err := io.ReadAll(bodyReader{reply.Body})
	if err != nil {
		a.Err = dlnaerr.TransportError{Op: "read-action-reply", Err: err}
		return
	}

	if !isSuccess(reply.Status) {
		a.Err = decodeFault(body, reply.Status)
		return
	}

	env, err := soap.DecodeEnvelope(body)
	if err != nil {
		a.Err = dlnaerr.ParseError{Context: "decode-envelope", Err: err}
		return
	}
	pairs, err := soap.DecodeReplyArgs(env.Body.Action)
	if err != nil {
		a.Err = dlnaerr.ParseError{Context: "decode-reply-args", Err: err}
		return
	}
	a.ArgsReply = pairs
}

func decodeFault(body []byte, status int) error {
	var fault soap.Fault
	env, err := soap.DecodeEnvelope(body)
	if err == nil {
		if ferr := unmarshalFault(env.Body.Action, &fault); ferr == nil && fault.Detail.UPnPError.ErrorCode != 0 {
			return upnp.Errorf(fault.Detail.UPnPError.ErrorCode, "%s", fault.Detail.UPnPError.ErrorDesc)
		}
	}
	return dlnaerr.RemoteError{Status: status, Reason: "action failed"}
}
