package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), 3*time.Minute)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 3*time.Minute+10*time.Second, srv.WriteTimeout)

	unbounded := New(":0", http.NotFoundHandler(), 0)
	assert.Zero(t, unbounded.WriteTimeout)
}
