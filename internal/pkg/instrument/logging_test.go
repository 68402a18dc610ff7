package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	buf.Reset()
	return line
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{ServiceName: "stepup", MaskFields: []string{"Email"}}, nil)

	t.Run("CredentialsMasked", func(t *testing.T) {
		logger.InfoContext(context.Background(), "login",
			"password", "hunter2",
			"email", "bob@example.com",
			"user_id", 7,
			"body", `{"code":"123456","operationNumber":101}`,
		)

		line := decodeLine(t, &buf)
		assert.Equal(t, "***", line["password"])
		assert.Equal(t, "***", line["email"])
		assert.EqualValues(t, 7, line["user_id"])
		assert.JSONEq(t, `{"code":"***","operationNumber":101}`, line["body"].(string))
		assert.Equal(t, "INFO", line["severity"])
		assert.Equal(t, "stepup", line["service"])
	})

	t.Run("WithAttrsMasked", func(t *testing.T) {
		logger.With("token", "abc").Info("issued")

		line := decodeLine(t, &buf)
		assert.Equal(t, "***", line["token"])
		assert.Equal(t, "stepup", line["service"])
	})

	t.Run("CorrelationID", func(t *testing.T) {
		ctx := SetCorrelationID(context.Background(), "cid-1")
		logger.InfoContext(ctx, "hello")

		line := decodeLine(t, &buf)
		assert.Equal(t, "cid-1", line["_cID"])
	})

	t.Run("LevelFromConfig", func(t *testing.T) {
		quiet := newLogger(&buf, &Config{LogLevel: "warn"}, nil)
		quiet.Info("dropped")
		assert.Zero(t, buf.Len())

		quiet.Log(context.Background(), slog.LevelWarn, "kept")
		assert.Equal(t, "kept", decodeLine(t, &buf)["msg"])
	})
}
