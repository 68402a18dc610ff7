package mail

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("PlainText", func(t *testing.T) {
		raw, err := compose("otp@stepup.local", Message{
			To:      []string{"bob@example.com"},
			Subject: "Your OTP Code",
			Body:    "line one\nline two",
		}, now)
		require.NoError(t, err)

		head, body, ok := strings.Cut(string(raw), "\r\n\r\n")
		require.True(t, ok)
		assert.Contains(t, head, "From: otp@stepup.local\r\n")
		assert.Contains(t, head, "To: bob@example.com\r\n")
		assert.Contains(t, head, "Subject: Your OTP Code\r\n")
		assert.Contains(t, head, "Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n")
		assert.Contains(t, head, "Content-Type: text/plain; charset=UTF-8")
		assert.Equal(t, "line one\r\nline two", body)
	})

	t.Run("Rejects", func(t *testing.T) {
		_, err := compose("a@b", Message{}, now)
		assert.ErrorIs(t, err, ErrSMTPNoRecipients)

		_, err = compose("", Message{To: []string{"x@y"}}, now)
		assert.ErrorIs(t, err, ErrSMTPNoSender)

		_, err = compose("a@b", Message{To: []string{"x@y"}, Subject: "hi\r\nBcc: evil@z"}, now)
		assert.ErrorIs(t, err, ErrSMTPHeaderInjection)
	})
}

func TestNewSMTP(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{Host: "localhost"})
	assert.ErrorIs(t, err, ErrSMTPHostPortRequired)
}

// fakeServer speaks just enough SMTP to accept one message.
func fakeServer(t *testing.T, stall bool) (host string, port int, got chan string) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	got = make(chan string, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		if stall {
			_, _ = r.ReadString('\n')
			return
		}

		write("220 fake")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					got <- data.String()
					write("250 ok")
					continue
				}
				data.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"):
				write("250 fake")
			case cmd == "DATA":
				inData = true
				write("354 go ahead")
			case cmd == "QUIT":
				write("221 bye")
				return
			default:
				write("250 ok")
			}
		}
	}()

	addr := l.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, got
}

func TestSMTPSend(t *testing.T) {
	t.Run("Delivers", func(t *testing.T) {
		host, port, got := fakeServer(t, false)
		client, err := NewSMTP(SMTPConfig{Host: host, Port: port, From: "otp@stepup.local"})
		require.NoError(t, err)

		err = client.Send(context.Background(), Message{
			To:      []string{"bob@example.com"},
			Subject: "Your OTP Code",
			Body:    "Your one-time confirmation code is: 482913",
		})
		require.NoError(t, err)

		select {
		case data := <-got:
			assert.Contains(t, data, "To: bob@example.com")
			assert.Contains(t, data, "482913")
		case <-time.After(5 * time.Second):
			t.Fatal("message not received")
		}
	})

	t.Run("ContextCancelsStalledServer", func(t *testing.T) {
		host, port, _ := fakeServer(t, true)
		client, err := NewSMTP(SMTPConfig{Host: host, Port: port, From: "otp@stepup.local"})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err = client.Send(ctx, Message{To: []string{"bob@example.com"}, Subject: "s", Body: "b"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
