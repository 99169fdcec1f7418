package storefront

import "github.com/MrEthical07/storefront/internal/audit"

// AuditEvent is one security-relevant engine occurrence.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// AuditStats reports audit delivery and drop counts.
type AuditStats = audit.Stats

// SlogSink logs audit events through the service logger.
type SlogSink = audit.SlogSink

var (
	NewChannelSink    = audit.NewChannelSink
	NewJSONWriterSink = audit.NewJSONWriterSink
	NewSlogSink       = audit.NewSlogSink
)
