// Package notifier delivers reminder notifications without blocking the caller.
//
// Notify only enqueues. A small worker pool drains the queue under a token
// bucket rate limit and hands each notification to every configured Sink,
// retrying a failing sink with jittered exponential backoff. Lifecycle events
// (queued, sent, failed, dropped) go to the event bus, and the most recent
// deliveries are kept in memory for status output.
package notifier
