// Package broadcast implements the real-time delivery pipeline: per-queue
// long-poll loops that drain SQS and a WebSocket hub that fans each message
// out to the queue's live subscribers.
//
// The Hub is an actor: a single goroutine owning all registry state, driven
// by a command channel (no mutexes). Per-connection write goroutines absorb
// slow clients. Poll loops start with the first subscriber of a queue and
// stop with the last.
package broadcast
