// Package actor implements the message-passing backbone of the monome
// subsystem: each device session and each application listener runs as
// an actor with a private mailbox drained by a single goroutine, and a
// Registry routes messages to actors by slash-separated path.
//
// Delivery is asynchronous and best effort. Ordering is preserved per
// mailbox because exactly one goroutine consumes it; messages enqueued
// against a full mailbox are dropped and counted rather than blocking
// the sender, which may be a UDP socket goroutine.
package actor
