package httputil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "referrals/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("foreign errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeCodeNotFound:            http.StatusNotFound,
		dErrors.CodeCodeInactive:            http.StatusConflict,
		dErrors.CodeCodeExpired:             http.StatusGone,
		dErrors.CodeUsageLimitReached:       http.StatusConflict,
		dErrors.CodeAlreadyReferred:         http.StatusConflict,
		dErrors.CodeSelfReferral:            http.StatusUnprocessableEntity,
		dErrors.CodeNotPending:              http.StatusConflict,
		dErrors.CodeHasReferralHistory:      http.StatusConflict,
		dErrors.CodeHasPendingReferrals:     http.StatusConflict,
		dErrors.CodeCodeGenerationExhausted: http.StatusServiceUnavailable,
		dErrors.CodeCodeTaken:               http.StatusConflict,
		dErrors.CodeNotFound:                http.StatusNotFound,
		dErrors.CodeForbidden:               http.StatusForbidden,
		dErrors.CodeUnauthorized:            http.StatusUnauthorized,
		dErrors.CodeValidation:              http.StatusBadRequest,
		dErrors.CodeRetryExhausted:          http.StatusServiceUnavailable,
		dErrors.CodeTimeout:                 http.StatusGatewayTimeout,
		dErrors.CodeInternal:                http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

type greetRequest struct {
	Name string `json:"name"`
}

func (g *greetRequest) Normalize() { g.Name = strings.TrimSpace(g.Name) }

func (g *greetRequest) Validate() error {
	if g.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decode := func(body string) (*greetRequest, *httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, ok := DecodeAndPrepare[greetRequest](w, r, logger, context.Background(), "req-1")
		return req, w, ok
	}

	t.Run("normalizes and validates", func(t *testing.T) {
		req, _, ok := decode(`{"name":"  ada "}`)
		if !ok || req.Name != "ada" {
			t.Fatalf("expected normalized name, got %+v ok=%v", req, ok)
		}
	})

	t.Run("validation failure writes 400", func(t *testing.T) {
		_, w, ok := decode(`{"name":"   "}`)
		if ok || w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d ok=%v", w.Code, ok)
		}
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, w, ok := decode(`{"name":"ada","admin":true}`)
		if ok || w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d ok=%v", w.Code, ok)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		_, w, ok := decode(``)
		if ok || !strings.Contains(w.Body.String(), "request body is required") {
			t.Fatalf("expected body required error, got %s", w.Body.String())
		}
	})
}
