// Package natssink publishes goSession audit events to NATS as JSON, one message
// per event on DefaultSubject + "." + event type.
//
// [Sink] never blocks the manager beyond a single Publish call; failures are
// counted and exposed through [Sink.Failed].
package natssink
