package entity

import "errors"

var (
	// ErrChannelDisabled is returned for a channel left out of notification.channels.
	ErrChannelDisabled = errors.New("notification: channel disabled")
	// ErrChannelNotConfigured is returned when a channel has no backing client.
	ErrChannelNotConfigured = errors.New("notification: channel not configured")
	// ErrRecipientMissing is returned when the user has no address for the channel.
	ErrRecipientMissing = errors.New("notification: recipient has no address for channel")
)

// SMS is the broker payload consumed by the SMS gateway.
type SMS struct {
	To              string `json:"to"`
	Text            string `json:"text"`
	OperationNumber int    `json:"operationNumber"`
}
