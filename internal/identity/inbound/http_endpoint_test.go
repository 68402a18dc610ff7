package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/stepup/internal/identity/entity"
	"github.com/shandysiswandi/stepup/internal/identity/usecase"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/router"
	"github.com/shandysiswandi/stepup/internal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolver struct{}

func (resolver) Resolve(_ context.Context, token string) (session.Identity, error) {
	if token != "good" {
		return session.Identity{}, session.ErrInvalidToken
	}
	return session.Identity{UserID: 9, Username: "root", Role: "ADMIN"}, nil
}

type fakeUC struct {
	register usecase.RegisterInput
	login    usecase.LoginInput
	logout   string
	deleted  int64
	err      error
}

func (f *fakeUC) Register(_ context.Context, in usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	f.register = in
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.RegisterOutput{ID: 42, Username: in.Username, Role: "USER"}, nil
}

func (f *fakeUC) Login(_ context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error) {
	f.login = in
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.LoginOutput{Token: "tok", UserID: 42, Username: in.Username, Role: "USER"}, nil
}

func (f *fakeUC) Logout(_ context.Context, token string) error {
	f.logout = token
	return f.err
}

func (f *fakeUC) ListUsers(context.Context) ([]entity.User, error) {
	return []entity.User{{ID: 1, Username: "alice", PasswordHash: "$2a$secret", Role: "USER"}}, f.err
}

func (f *fakeUC) DeleteUser(_ context.Context, in usecase.DeleteUserInput) error {
	f.deleted = in.ID
	return f.err
}

func setup(t *testing.T) (*router.Router, *fakeUC) {
	t.Helper()
	ro := router.NewRouter(router.Config{Sessions: resolver{}, Instrument: instrument.NewNoop()})
	uc := &fakeUC{}
	RegisterHTTPEndpoint(ro, uc)
	return ro, uc
}

func call(t *testing.T, h http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
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

func TestRegister(t *testing.T) {
	ro, uc := setup(t)

	rec, body := call(t, ro, http.MethodPost, "/api/v1/register",
		`{"username":"alice","password":"password1","email":"a@example.com","telegramChatId":"77"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "77", uc.register.TelegramChatID)

	data := body["data"].(map[string]any)
	assert.Equal(t, "42", data["id"])
	assert.Equal(t, "USER", data["role"])

	uc.err = goerror.NewBusiness("Username already exists", goerror.CodeConflict)
	rec, body = call(t, ro, http.MethodPost, "/api/v1/register",
		`{"username":"alice","password":"password1","email":"a@example.com"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already exists", body["message"])
}

func TestLoginLogout(t *testing.T) {
	ro, uc := setup(t)

	rec, body := call(t, ro, http.MethodPost, "/api/v1/login", `{"username":"alice","password":"password1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", body["data"].(map[string]any)["token"])
	assert.Equal(t, "alice", uc.login.Username)

	rec, _ = call(t, ro, http.MethodPost, "/api/v1/logout", "", "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "good", uc.logout)

	rec, _ = call(t, ro, http.MethodPost, "/api/v1/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminUsers(t *testing.T) {
	ro, uc := setup(t)

	rec, _ := call(t, ro, http.MethodGet, "/api/v1/admin/users", "", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	rec, _ = call(t, ro, http.MethodDelete, "/api/v1/admin/users/5", "", "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualValues(t, 5, uc.deleted)

	for _, id := range []string{"abc", "0"} {
		rec, _ = call(t, ro, http.MethodDelete, "/api/v1/admin/users/"+id, "", "good")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}

	uc.err = goerror.NewBusiness("user not found", goerror.CodeNotFound)
	rec, body := call(t, ro, http.MethodDelete, "/api/v1/admin/users/6", "", "good")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user not found", body["message"])
}
