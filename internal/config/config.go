// Package config resolves settings from flags, VIDGRAB_* environment
// variables, an optional config file and defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vidgrab/internal/dirs"
	"vidgrab/internal/httpclient"
	"vidgrab/internal/transfer"
)

const (
	KeyConfig         = "config"
	KeyHost           = "host"
	KeyQuality        = "quality"
	KeyTimeout        = "timeout"
	KeyReadTimeout    = "read-timeout"
	KeyUserAgent      = "user-agent"
	KeyHeader         = "header"
	KeyChunkSize      = "chunk-size"
	KeyLimitRate      = "limit-rate"
	KeyPromptAttempts = "prompt-attempts"
	KeyVerbose        = "verbose"

	envPrefix   = "VIDGRAB"
	defaultHost = "www.youtube.com"
)

// Settings is the resolved configuration for one invocation.
type Settings struct {
	Host           string
	Quality        int // 0 means ask interactively
	Timeout        time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
	Headers        []string // "Name: value"
	ChunkSize      int
	LimitRate      int64
	PromptAttempts int // 0 means unlimited
	Verbose        bool
	ConfigFile     string // file actually read, empty when none
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	def := httpclient.DefaultConfig()
	fs.String(KeyConfig, "", "config file (default: config.{yaml,json,toml} in the user config dir)")
	fs.String(KeyHost, defaultHost, "metadata host")
	fs.IntP(KeyQuality, "q", 0, "stream ordinal to download; 0 asks interactively")
	fs.Duration(KeyTimeout, def.ConnectTimeout, "connect, TLS handshake and response header timeout")
	fs.Duration(KeyReadTimeout, def.ReadTimeout, "maximum wait for body data")
	fs.String(KeyUserAgent, def.UserAgent, "User-Agent header")
	fs.StringArrayP(KeyHeader, "H", nil, "extra request header \"Name: value\" (repeatable; newline-separated in VIDGRAB_HEADER)")
	fs.Int(KeyChunkSize, transfer.DefaultChunkSize, "read buffer size in bytes")
	fs.Int64(KeyLimitRate, 0, "bandwidth cap in bytes/s; 0 is unlimited")
	fs.Int(KeyPromptAttempts, 0, "invalid answers tolerated at the quality prompt; 0 is unlimited")
	fs.BoolP(KeyVerbose, "v", false, "debug logging")
}

// Load binds fs to a fresh viper instance and resolves Settings.
// A missing config file is not an error; an unreadable one is.
func Load(fs *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Settings{}, fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
	} else {
		if cfgDir, err := dirs.ConfigDir(); err == nil {
			v.AddConfigPath(cfgDir)
		}
		v.SetConfigName("config") // supports config.{yaml|yml|json|toml}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	s := Settings{
		Host:           v.GetString(KeyHost),
		Quality:        v.GetInt(KeyQuality),
		Timeout:        v.GetDuration(KeyTimeout),
		ReadTimeout:    v.GetDuration(KeyReadTimeout),
		UserAgent:      v.GetString(KeyUserAgent),
		Headers:        headerList(v.Get(KeyHeader)),
		ChunkSize:      v.GetInt(KeyChunkSize),
		LimitRate:      v.GetInt64(KeyLimitRate),
		PromptAttempts: v.GetInt(KeyPromptAttempts),
		Verbose:        v.GetBool(KeyVerbose),
		ConfigFile:     v.ConfigFileUsed(),
	}
	return s, s.Validate()
}

// headerList normalizes the header setting from any source. Header values
// contain spaces, so an environment string is split on newlines only.
func headerList(raw any) []string {
	switch h := raw.(type) {
	case nil:
		return nil
	case []string:
		return h
	case []any:
		out := make([]string, 0, len(h))
		for _, e := range h {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		var out []string
		for _, line := range strings.Split(h, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(h)}
	}
}

// Validate rejects values no component can work with.
func (s Settings) Validate() error {
	switch {
	case s.Host == "":
		return errors.New("host must not be empty")
	case strings.ContainsAny(s.Host, "/?#"):
		return fmt.Errorf("host %q must be a bare host name", s.Host)
	case s.Quality < 0:
		return fmt.Errorf("quality must be >= 1, got %d", s.Quality)
	case s.ChunkSize <= 0:
		return fmt.Errorf("chunk-size must be positive, got %d", s.ChunkSize)
	case s.LimitRate < 0:
		return fmt.Errorf("limit-rate must not be negative, got %d", s.LimitRate)
	case s.Timeout < 0 || s.ReadTimeout < 0:
		return errors.New("timeouts must not be negative")
	}
	_, err := s.HeaderMap()
	return err
}

// HeaderMap parses the "Name: value" header list.
func (s Settings) HeaderMap() (map[string]string, error) {
	if len(s.Headers) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(s.Headers))
	for _, h := range s.Headers {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("header %q must look like \"Name: value\"", h)
		}
		m[name] = strings.TrimSpace(value)
	}
	return m, nil
}

// ClientConfig maps the settings onto the HTTP client configuration.
func (s Settings) ClientConfig() httpclient.Config {
	headers, _ := s.HeaderMap()
	return httpclient.Config{
		ConnectTimeout: s.Timeout,
		ReadTimeout:    s.ReadTimeout,
		UserAgent:      s.UserAgent,
		Headers:        headers,
		RateLimit:      s.LimitRate,
	}
}
