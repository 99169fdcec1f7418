// Package audit relays security-relevant events to a sink without blocking
// the request path.
//
// [Dispatcher] buffers events and drains them on a background goroutine; with
// DropIfFull it never blocks and counts what it drops. Sinks: [NoOpSink],
// [ChannelSink], [JSONWriterSink] and [SlogSink].
package audit
