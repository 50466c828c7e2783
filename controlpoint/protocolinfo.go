package controlpoint

import (
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/xmlscan"
)

// ConnectionManagerServiceType is the standard service type a
// GetProtocolInfo action targets.
const ConnectionManagerServiceType = "urn:schemas-upnp-org:service:ConnectionManager:1"

// GetProtocolInfo issues the ConnectionManager:GetProtocolInfo action
// against svc and streams its reply through a xmlscan.ProtocolInfoParser
// instead of buffering the whole SOAP body, per spec.md §4.5's
// non-buffering design. It blocks the calling goroutine until the
// action completes (bounded by the client's read/write timeouts); call
// it outside the tick loop, or from a dedicated goroutine that doesn't
// otherwise share the ControlPoint.
func (cp *ControlPoint) GetProtocolInfo(svc ServiceInfo, onEntry xmlscan.EntryFunc) error {
	a := NewAction(svc, "GetProtocolInfo", nil)
	a.WithReplyProcessor(func(a *Action, status int, headers *httpmsg.Header, body BodyReader) error {
		if !isSuccess(status) {
			return nil
		}
		parser := xmlscan.NewProtocolInfoParser(onEntry)
		buf := make([]byte, 512)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				parser.Feed(buf[:n])
			}
			if err != nil {
				return err
			}
			if n == 0 && body.Done() {
				return nil
			}
		}
	})
	cp.runAction(a)
	return a.Err
}
