package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/stepup/internal/pkg/goerror"
)

const maxBodyBytes = 1 << 20

// Request is what endpoint handlers receive.
type Request struct {
	*http.Request
}

// GetParamInt64 parses a positive integer path parameter such as a user id.
func (r *Request) GetParamInt64(name string) (int64, error) {
	raw := httprouter.ParamsFromContext(r.Context()).ByName(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, goerror.NewInvalidFormat(name + " must be a positive integer")
	}
	return id, nil
}

func (r *Request) GetHeader(name string) string {
	return strings.TrimSpace(r.Header.Get(name))
}

// DecodeBody reads one JSON document into dst and rejects unknown fields.
func (r *Request) DecodeBody(dst any) error {
	return r.decode(dst, true)
}

// DecodeBodyLoose accepts unknown fields. Numbers stay json.Number inside
// maps so operation payloads keep their exact text.
func (r *Request) DecodeBodyLoose(dst any) error {
	return r.decode(dst, false)
}

func (r *Request) decode(dst any, strict bool) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if strict {
		dec.DisallowUnknownFields()
	}

	if dec.Decode(dst) != nil {
		return goerror.NewInvalidFormat()
	}
	// trailing data after the document
	if !errors.Is(dec.Decode(&struct{}{}), io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}

// Token returns the bearer token of the request, if present.
func (r *Request) Token() (string, bool) {
	return BearerToken(r.Request)
}

// BearerToken reads "Authorization: Bearer <token>"; the scheme is case
// insensitive.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !ok || token == "" || strings.ContainsRune(token, ' ') || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return token, true
}
