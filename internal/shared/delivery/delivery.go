// Package delivery holds the contract between modules that issue one-time
// codes and the notification module that delivers them.
package delivery

import (
	"context"
	"path"
	"strings"
)

// Channel selects how a code reaches the user.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelTelegram Channel = "TELEGRAM"
	ChannelFile     Channel = "FILE"
)

// Channels lists every known channel.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelTelegram, ChannelFile}

// ParseChannel normalizes s and reports whether it names a known channel.
func ParseChannel(s string) (Channel, bool) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Channels {
		if c == known {
			return c, true
		}
	}
	return "", false
}

func (c Channel) String() string {
	return string(c)
}

// Recipient carries the addresses a channel may need.
type Recipient struct {
	UserID         int64
	Username       string
	Email          string
	Phone          string
	TelegramChatID string
}

// Notice is one code delivery request.
type Notice struct {
	Channel         Channel
	Recipient       Recipient
	Code            string
	OperationNumber int
}

// Dispatcher delivers a code over the channel named in the notice.
type Dispatcher interface {
	Send(ctx context.Context, n Notice) error
}

// FilePrefix is the object prefix holding every FILE delivery for username.
func FilePrefix(prefix, username string) string {
	return path.Join(strings.Trim(prefix, "/"), username) + "/"
}
