package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expected   Method
		recognized bool
	}{
		{"get", "GET", MethodGet, true},
		{"post", "POST", MethodPost, true},
		{"lowercase post", "post", MethodPost, true},
		{"padded", " GET ", MethodGet, true},
		{"put falls back", "PUT", MethodGet, false},
		{"empty falls back", "", MethodGet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := ParseMethod(tt.input)
			if m != tt.expected || ok != tt.recognized {
				t.Errorf("ParseMethod(%q) = (%s, %v), want (%s, %v)", tt.input, m, ok, tt.expected, tt.recognized)
			}
		})
	}
}

func TestClientAttachesDefaultHeaders(t *testing.T) {
	var gotOrigin, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrigin = r.Header.Get("Access-Control-Allow-Origin")
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(Options{Timeout: time.Second})
	out := c.Do(context.Background(), MethodPost, server.URL)

	if !out.Success() {
		t.Fatalf("Expected success, got %+v", out)
	}
	if gotOrigin != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin '*', got %q", gotOrigin)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("Expected POST, got %s", gotMethod)
	}
	if out.Elapsed <= 0 {
		t.Errorf("Expected positive elapsed time, got %v", out.Elapsed)
	}
}

func TestNonSuccessStatusIsStillOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	out := New(Options{}).Get(context.Background(), server.URL)
	if !out.OK() {
		t.Errorf("Expected 500 to count as OK, got error %v", out.Err)
	}
	if out.Success() {
		t.Error("Expected 500 not to count as success")
	}
	if out.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", out.StatusCode)
	}
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestTransportErrorIsNotOK(t *testing.T) {
	out := NewWithDoer(failingDoer{}, nil).Get(context.Background(), "http://example.test")
	if out.OK() || out.Success() {
		t.Errorf("Expected transport failure, got %+v", out)
	}
}

func TestInvalidURLIsNotOK(t *testing.T) {
	out := NewWithDoer(failingDoer{}, nil).Get(context.Background(), "://bad")
	if out.Err == nil {
		t.Error("Expected error for malformed URL")
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	out := New(Options{Timeout: 20 * time.Millisecond}).Get(context.Background(), server.URL)
	if out.OK() {
		t.Error("Expected timeout to surface as a transport error")
	}
}
