// Package httpclient provides the HTTPS client shared by the metadata fetch
// and the stream transfer.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"vidgrab/internal/logging"
)

const DefaultUserAgent = "vidgrab/1.0"

var (
	ErrNetwork          = errors.New("network error")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Getter issues GET requests. *Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// Config holds client tuning. Zero values fall back to defaults.
type Config struct {
	ConnectTimeout time.Duration // dial + TLS handshake + response headers
	ReadTimeout    time.Duration // max wait for any single body read
	UserAgent      string
	Headers        map[string]string
	RateLimit      int64 // body bytes per second, 0 = unlimited

	// TLSConfig replaces the default verified TLS settings (tests inject a
	// trusted root pool here).
	TLSConfig *tls.Config
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    60 * time.Second,
		UserAgent:      DefaultUserAgent,
	}
}

type Client struct {
	client  *http.Client
	config  Config
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	tlsCfg := cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          4,
		DisableCompression:    true, // bodies are written verbatim
		ForceAttemptHTTP2:     true,
	}

	c := &Client{
		client: &http.Client{Transport: transport},
		config: cfg,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 64*1024 {
			burst = 64 * 1024
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// Get issues an HTTPS GET. Only 2xx responses are returned; everything else
// is an ErrNetwork. The caller must close the body.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrNetwork, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: refusing non-https URL scheme %q", ErrNetwork, u.Scheme)
	}

	// The body reader owns cancel so the idle timer can abort a stalled read.
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: creating request: %v", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	log := logging.Component("httpclient")
	log.Debug().Str("host", u.Host).Msg("GET")
	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %w: %s", ErrNetwork, ErrUnexpectedStatus, resp.Status)
	}
	log.Debug().Int("status", resp.StatusCode).Int64("length", resp.ContentLength).Msg("response")

	resp.Body = &idleTimeoutBody{
		r:       resp.Body,
		timeout: c.config.ReadTimeout,
		cancel:  cancel,
		ctx:     ctx,
		limiter: c.limiter,
	}
	return resp, nil
}

// idleTimeoutBody cancels the request when a single Read blocks longer than
// timeout, and optionally throttles reads through a token bucket.
type idleTimeoutBody struct {
	r       io.ReadCloser
	timeout time.Duration
	cancel  context.CancelFunc
	ctx     context.Context
	limiter *rate.Limiter

	mu      sync.Mutex
	seq     uint64 // identifies the Read a timer belongs to
	reading bool
	stalled bool
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	if b.limiter != nil {
		if burst := b.limiter.Burst(); len(p) > burst {
			p = p[:burst]
		}
		if err := b.limiter.WaitN(b.ctx, len(p)); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
	}

	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.reading = true
	b.mu.Unlock()

	timer := time.AfterFunc(b.timeout, func() { b.expire(seq) })
	n, err := b.r.Read(p)
	timer.Stop()

	b.mu.Lock()
	b.reading = false
	stalled := b.stalled
	b.mu.Unlock()

	switch {
	case err == nil, err == io.EOF:
	case stalled:
		err = fmt.Errorf("%w: no data for %s: %v", ErrNetwork, b.timeout, err)
	default:
		err = fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return n, err
}

// expire cancels the request only if Read number seq is still blocked. A
// timer that fires after its Read returned is a no-op.
func (b *idleTimeoutBody) expire(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.reading || b.seq != seq {
		return
	}
	b.stalled = true
	b.cancel()
}

func (b *idleTimeoutBody) Close() error {
	err := b.r.Close()
	b.cancel()
	return err
}
