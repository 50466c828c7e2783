package httpserver

// Design note (spec.md §9): the reference source stores handler state as
// an array of untyped pointers. Here each handler kind is its own typed
// variant instead, so a route's context can't be misread as the wrong
// shape.

// StaticStringHandler replies with a fixed string body on every request.
type StaticStringHandler struct {
	ContentType string
	Body        string
}

func (h StaticStringHandler) Serve(ctx *RequestContext) {
	ctx.Reply(h.ContentType, h.Body)
}

// StaticBytesHandler replies with a fixed binary body on every request.
type StaticBytesHandler struct {
	ContentType string
	Body        []byte
}

func (h StaticBytesHandler) Serve(ctx *RequestContext) {
	ctx.ReplyBytes(h.ContentType, h.Body)
}

// RedirectHandler always answers 301 Moved to Location.
type RedirectHandler struct {
	Location string
}

func (h RedirectHandler) Serve(ctx *RequestContext) {
	ctx.ReplyRedirect(h.Location)
}

// TunnelHandler forwards the matched request to a callback that owns a
// downstream connection of its own (e.g. a SOAP control endpoint talking
// to a device-side service implementation). It's the "tunnel target"
// variant spec.md's design note calls for.
type TunnelHandler struct {
	Forward func(ctx *RequestContext)
}

func (h TunnelHandler) Serve(ctx *RequestContext) {
	h.Forward(ctx)
}

// CallbackHandler wraps a plain function with a typed, caller-owned
// context value (e.g. *subscription.Manager), avoiding an untyped
// interface{} capture.
type CallbackHandler[T any] struct {
	Context T
	Call    func(ctx *RequestContext, value T)
}

func (h CallbackHandler[T]) Serve(ctx *RequestContext) {
	h.Call(ctx, h.Context)
}
