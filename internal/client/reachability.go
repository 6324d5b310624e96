package client

import (
	"context"
	"net"
	"net/url"
	"time"

	"Story-Atlas/server/internal/interfaces"
)

const defaultDialTimeout = 2 * time.Second

// DialChecker reports the API as online when a TCP connection to its host succeeds
type DialChecker struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

var _ interfaces.Reachability = (*DialChecker)(nil)

// NewDialChecker derives host:port from the API base URL
func NewDialChecker(baseURL string, timeout time.Duration) (*DialChecker, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return &DialChecker{addr: net.JoinHostPort(u.Hostname(), port), timeout: timeout}, nil
}

func (p *DialChecker) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
