package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWriteTimeoutOutlastsRequestTimeout(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), 10*time.Second)
	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, 15*time.Second, srv.WriteTimeout)
	assert.Greater(t, srv.WriteTimeout, 10*time.Second)
	assert.NotZero(t, srv.ReadHeaderTimeout)
}
