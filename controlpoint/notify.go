package controlpoint

import (
	"io"

	"github.com/anacrolix/log"

	"github.com/go-dlna/dlnacp/chunked"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/httpserver"
	"github.com/go-dlna/dlnacp/upnp"
)

// serveNotify handles an inbound GENA NOTIFY on this control point's
// evt route, per spec.md §4.6.5: decode the propertyset body, dispatch
// each variable to the subscription manager's OnEvent callback, and
// answer 412 Precondition Failed for an unrecognized SID.
func (cp *ControlPoint) serveNotify(ctx *httpserver.RequestContext) {
	sid := ctx.Request.Headers.Get("SID")
	body, err := readNotifyBody(ctx)
	if err != nil {
		cp.Logger.Levelf(log.Debug, "notify %s: read body: %s", sid, err)
		ctx.ReplyError(400, "Bad Request")
		return
	}
	pairs, err := upnp.DecodePropertySet(body)
	if err != nil {
		cp.Logger.Levelf(log.Debug, "notify %s: decode propertyset: %s", sid, err)
		ctx.ReplyError(400, "Bad Request")
		return
	}
	if err := cp.Subs.HandleNotify(sid, pairs); err != nil {
		ctx.ReplyError(412, "Precondition Failed")
		return
	}
	ctx.ReplyOK()
}

// readNotifyBody reads a NOTIFY request body according to its own
// framing headers, mirroring httpclient's reply-framing rule on the
// server side (spec.md §3's shared BodyFraming rule applies to any
// message with a body, not only replies).
func readNotifyBody(ctx *httpserver.RequestContext) ([]byte, error) {
	framing, length := ctx.Request.Framing()
	switch framing {
	case httpmsg.FramingChunked:
		dec := chunked.NewDecoder(ctx.Body)
		return io.ReadAll(chunkedBody{dec})
	case httpmsg.FramingContentLength:
		buf := make([]byte, length)
		_, err := io.ReadFull(ctx.Body, buf)
		return buf, err
	default:
		return nil, errUnframedNotifyBody
	}
}

type chunkedBody struct {
	dec *chunked.Decoder
}

func (c chunkedBody) Read(p []byte) (int, error) {
	n, err := c.dec.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 && c.dec.Done() {
		return 0, io.EOF
	}
	return n, nil
}

var errUnframedNotifyBody = &notifyFramingError{}

type notifyFramingError struct{}

func (*notifyFramingError) Error() string {
	return "notify body has neither Content-Length nor chunked framing"
}
