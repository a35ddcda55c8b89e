package webhook

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Authentication schemes.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "api-key"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetries    = 3
	defaultRetryDelay = time.Second
	defaultMaxDelay   = 30 * time.Second
	defaultMultiplier = 2.0
)

// Config describes the endpoint that receives reports.
type Config struct {
	URL       string
	Method    string
	Headers   map[string]string
	Timeout   time.Duration // overall, across retries
	AuthType  string
	AuthToken string
}

// RetryPolicy controls exponential backoff between attempts.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy retries three times starting at one second.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   defaultRetries,
		InitialDelay: defaultRetryDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
	}
}

// FromMap decodes a merged configuration document. Recognized keys are
// url, method, headers, timeout, auth_type, auth_token, retries and
// retry_delay. A missing url returns nil, nil, nil.
func FromMap(m map[string]any) (*Config, *RetryPolicy, error) {
	url, _ := m["url"].(string)
	if url == "" {
		return nil, nil, nil
	}

	cfg := &Config{
		URL:      url,
		Method:   http.MethodPost,
		Timeout:  defaultTimeout,
		AuthType: AuthNone,
	}
	policy := DefaultRetryPolicy()

	if v, _ := m["method"].(string); v != "" {
		cfg.Method = strings.ToUpper(v)
	}
	switch cfg.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, nil, fmt.Errorf("unsupported webhook method %q", cfg.Method)
	}

	if v, _ := m["auth_type"].(string); v != "" {
		cfg.AuthType = v
	}
	switch cfg.AuthType {
	case AuthNone, AuthBearer, AuthAPIKey:
	default:
		return nil, nil, fmt.Errorf("unsupported webhook auth type %q", cfg.AuthType)
	}
	cfg.AuthToken, _ = m["auth_token"].(string)

	if h, ok := m["headers"].(map[string]any); ok {
		cfg.Headers = make(map[string]string, len(h))
		for k, v := range h {
			cfg.Headers[k] = fmt.Sprint(v)
		}
	}

	var err error
	if cfg.Timeout, err = duration(m, "timeout", defaultTimeout); err != nil {
		return nil, nil, err
	}
	if policy.InitialDelay, err = duration(m, "retry_delay", defaultRetryDelay); err != nil {
		return nil, nil, err
	}

	// JSON yields float64, key=value flags yield int.
	switch r := m["retries"].(type) {
	case int:
		policy.MaxRetries = r
	case float64:
		policy.MaxRetries = int(r)
	}
	if policy.MaxRetries < 0 {
		return nil, nil, fmt.Errorf("webhook retries must not be negative")
	}

	return cfg, policy, nil
}

func duration(m map[string]any, key string, def time.Duration) (time.Duration, error) {
	s, _ := m[key].(string)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid webhook %s: %w", key, err)
	}
	return d, nil
}
