package mail

import (
	"context"
	"io"
)

// Message is a plain-text email.
type Message struct {
	// From overrides the sender configured on the client.
	From    string
	To      []string
	Subject string
	Body    string
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
