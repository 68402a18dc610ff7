package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	tokens map[string]session.Identity
	err    error
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (session.Identity, error) {
	if f.err != nil {
		return session.Identity{}, f.err
	}
	id, ok := f.tokens[token]
	if !ok {
		return session.Identity{}, session.ErrInvalidToken
	}
	return id, nil
}

type createdResponse struct {
	ID int64 `json:"id"`
}

func (createdResponse) StatusCode() int { return http.StatusCreated }
func (createdResponse) Message() string { return "created" }

func newTestRouter(resolver SessionResolver) *Router {
	return NewRouter(Config{
		Sessions:   resolver,
		Instrument: instrument.NewNoop(),
	})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestRouterAuthentication(t *testing.T) {
	alice := session.Identity{UserID: 7, Username: "alice", Role: "USER"}
	ro := newTestRouter(&fakeResolver{tokens: map[string]session.Identity{"good": alice}})

	ro.GET("/api/v1/me", func(r *Request) (any, error) {
		id, ok := session.GetIdentity(r.Context())
		if !ok {
			return nil, errors.New("identity missing")
		}
		return id, nil
	})

	t.Run("PublicHealth", func(t *testing.T) {
		rec, body := do(t, ro, http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "UP", body["data"].(map[string]any)["status"])
	})

	t.Run("MissingToken", func(t *testing.T) {
		rec, body := do(t, ro, http.MethodGet, "/api/v1/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authentication required", body["message"])
	})

	t.Run("InvalidToken", func(t *testing.T) {
		rec, body := do(t, ro, http.MethodGet, "/api/v1/me", "bad", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid or expired token", body["message"])
	})

	t.Run("ValidToken", func(t *testing.T) {
		rec, body := do(t, ro, http.MethodGet, "/api/v1/me", "good", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", body["data"].(map[string]any)["username"])
	})

	t.Run("ResolverFailure", func(t *testing.T) {
		broken := newTestRouter(&fakeResolver{err: errors.New("redis down")})
		broken.GET("/api/v1/me", func(*Request) (any, error) { return nil, nil })

		rec, _ := do(t, broken, http.MethodGet, "/api/v1/me", "good", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRouterCodecs(t *testing.T) {
	ro := newTestRouter(&fakeResolver{})

	ro.POST("/api/v1/register", func(r *Request) (any, error) {
		var in struct {
			Name string `json:"name"`
		}
		if err := r.DecodeBody(&in); err != nil {
			return nil, err
		}
		if in.Name == "taken" {
			return nil, goerror.NewBusiness("Username already exists", goerror.CodeConflict)
		}
		return createdResponse{ID: 1}, nil
	})
	ro.POST("/api/v1/login", func(*Request) (any, error) {
		return nil, goerror.NewInvalidInput(nil, "code", "Required parameter is missing or invalid")
	})

	t.Run("CustomStatusAndMessage", func(t *testing.T) {
		rec, body := do(t, ro, http.MethodPost, "/api/v1/register", "", `{"name":"alice"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "created", body["message"])
	})

	t.Run("BusinessError", func(t *testing.T) {
		rec, body := do(t, ro, http.MethodPost, "/api/v1/register", "", `{"name":"taken"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Username already exists", body["message"])
	})

	t.Run("UnknownFieldRejected", func(t *testing.T) {
		rec, _ := do(t, ro, http.MethodPost, "/api/v1/register", "", `{"name":"a","extra":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("FieldErrors", func(t *testing.T) {
		rec, body := do(t, ro, http.MethodPost, "/api/v1/login", "", `{}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Required parameter is missing or invalid", body["error"].(map[string]any)["code"])
	})

	t.Run("NotFound", func(t *testing.T) {
		rec, _ := do(t, ro, http.MethodGet, "/nope", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "bearer abc", want: "abc", ok: true},
		{header: "Basic abc"},
		{header: "Bearer"},
		{header: ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tt.header)
		got, ok := BearerToken(req)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestDecodeBodyLoose(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"code":"123456","amount":50}`))
	var m map[string]any
	require.NoError(t, (&Request{Request: req}).DecodeBodyLoose(&m))

	assert.Equal(t, "123456", m["code"])
	assert.Equal(t, json.Number("50"), m["amount"])
}

func TestMaskSet(t *testing.T) {
	mask := newMaskSet(nil)

	t.Run("SecretFieldsAlwaysMasked", func(t *testing.T) {
		got := mask.body([]byte(`{"code":"123456","Password":"x","data":{"token":"t","username":"bob"}}`), false)
		assert.Equal(t, map[string]any{
			"code":     "***",
			"Password": "***",
			"data":     map[string]any{"token": "***", "username": "bob"},
		}, got)
	})

	t.Run("AuthorizationHeader", func(t *testing.T) {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		h.Set("Accept", "application/json")

		got := mask.headers(h)
		assert.Equal(t, "***", got.Get("Authorization"))
		assert.Equal(t, "application/json", got.Get("Accept"))
		assert.Equal(t, "Bearer abc", h.Get("Authorization"))
	})

	t.Run("NonJSON", func(t *testing.T) {
		assert.Nil(t, mask.body(nil, false))
		assert.Equal(t, "plain", mask.body([]byte("plain"), false))
		assert.Equal(t, "<binary body omitted>", mask.body([]byte{0xff, 0xfe}, false))
		assert.Equal(t, map[string]any{"body": "plain", "truncated": true}, mask.body([]byte("plain"), true))
	})
}
