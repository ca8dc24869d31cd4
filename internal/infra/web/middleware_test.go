package web

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:54321"
	if got := clientIP(r); got != "10.1.2.3" {
		t.Errorf("clientIP = %q, want remote host", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := clientIP(r); got != "203.0.113.7" {
		t.Errorf("clientIP = %q, want forwarded address", got)
	}

	// First hop wins when the header carries a chain.
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")
	if got := clientIP(r); got != "203.0.113.7" {
		t.Errorf("clientIP = %q, want first hop", got)
	}
}
