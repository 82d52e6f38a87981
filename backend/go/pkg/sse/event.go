// Package sse reads Server-Sent Events from a response body. Writing is left
// to the HTTP framework.
//
// See https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is one SSE event, delimited by a blank line.
type Event struct {
	// Type comes from "event:". Empty means the default "message" type.
	Type string

	// Data joins every "data:" line of the event with "\n".
	Data string

	ID string
}
