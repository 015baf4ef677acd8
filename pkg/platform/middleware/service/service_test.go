package service

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"referrals/pkg/requestcontext"
)

func TestRequireServiceToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var trusted bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trusted = requestcontext.IsTrustedService(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("matching token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(HeaderServiceToken, "s3cret")
		rr := httptest.NewRecorder()
		RequireServiceToken("s3cret", logger)(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.True(t, trusted)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(HeaderServiceToken, "guess")
		rr := httptest.NewRecorder()
		RequireServiceToken("s3cret", logger)(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unconfigured token rejects everything", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rr := httptest.NewRecorder()
		RequireServiceToken("", logger)(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
