package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func trustedConfig(srv *httptest.Server) Config {
	cfg := DefaultConfig()
	cfg.TLSConfig = srv.Client().Transport.(*http.Transport).TLSClientConfig
	return cfg
}

func TestGet_OK(t *testing.T) {
	var gotUA, gotHeader string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotHeader = r.Header.Get("X-Test")
		io.WriteString(w, "status=ok")
	}))
	defer srv.Close()

	cfg := trustedConfig(srv)
	cfg.UserAgent = "vidgrab-test"
	cfg.Headers = map[string]string{"X-Test": "yes"}
	c := New(cfg)

	resp, err := c.Get(context.Background(), srv.URL+"/get_video_info?video_id=x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "status=ok" {
		t.Errorf("body = %q", body)
	}
	if gotUA != "vidgrab-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotHeader != "yes" {
		t.Errorf("X-Test = %q", gotHeader)
	}
}

func TestGet_DefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	cfg := trustedConfig(srv)
	cfg.UserAgent = ""
	resp, err := New(cfg).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
	}
}

func TestGet_Errors(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		cfg        Config
		url        string
		wantStatus bool
	}{
		{name: "non-2xx status", cfg: trustedConfig(srv), url: srv.URL + "/missing", wantStatus: true},
		{name: "plain http refused", cfg: trustedConfig(srv), url: "http://example.invalid/"},
		{name: "unparseable url", cfg: trustedConfig(srv), url: "https://%zz"},
		{name: "untrusted certificate", cfg: DefaultConfig(), url: srv.URL},
		{name: "connection refused", cfg: trustedConfig(srv), url: "https://127.0.0.1:1/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := New(tt.cfg).Get(context.Background(), tt.url)
			if err == nil {
				resp.Body.Close()
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrNetwork) {
				t.Errorf("error = %v, want ErrNetwork", err)
			}
			if errors.Is(err, ErrUnexpectedStatus) != tt.wantStatus {
				t.Errorf("errors.Is(ErrUnexpectedStatus) = %v, want %v", !tt.wantStatus, tt.wantStatus)
			}
		})
	}
}

func TestGet_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("abc"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := trustedConfig(srv)
	cfg.ReadTimeout = 50 * time.Millisecond
	resp, err := New(cfg).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	start := time.Now()
	got, err := io.ReadAll(resp.Body)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("ReadAll error = %v, want ErrNetwork", err)
	}
	if string(got) != "abc" {
		t.Errorf("partial body = %q, want %q", got, "abc")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("read took %s; timeout not applied", elapsed)
	}
}

func TestGet_RateLimitedBodyIsExact(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 8*1024) // 128 KiB
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	cfg := trustedConfig(srv)
	cfg.RateLimit = 64 << 20
	resp, err := New(cfg).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("body differs: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestIdleTimeoutBody_LateTimerIsIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &idleTimeoutBody{
		r:       io.NopCloser(bytes.NewReader([]byte("abcdef"))),
		timeout: time.Hour,
		cancel:  cancel,
		ctx:     ctx,
	}

	buf := make([]byte, 3)
	if n, err := b.Read(buf); n != 3 || err != nil {
		t.Fatalf("first Read() = %d, %v", n, err)
	}
	// the first read's timer firing after it returned
	b.expire(1)
	if ctx.Err() != nil {
		t.Fatalf("late timer cancelled the request: %v", ctx.Err())
	}
	if n, err := b.Read(buf); n != 3 || err != nil || string(buf) != "def" {
		t.Fatalf("second Read() = %d, %v, %q", n, err, buf)
	}
}

func TestIdleTimeoutBody_ExpireDuringReadCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := &idleTimeoutBody{timeout: time.Hour, cancel: cancel, ctx: ctx}
	b.seq, b.reading = 4, true

	b.expire(3)
	if ctx.Err() != nil {
		t.Fatal("timer of an earlier read must not cancel the current one")
	}
	b.expire(4)
	if ctx.Err() == nil || !b.stalled {
		t.Fatal("timer of the blocked read should cancel the request")
	}
}
