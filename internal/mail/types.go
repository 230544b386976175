package mail

import "time"

// Email is one inbound message from the mail source. The body is the cleaned
// plain text, never the raw HTML.
type Email struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	From     string    `json:"from_email"`
	To       string    `json:"to_email"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	SendTime time.Time `json:"send_time"`
}
