package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds the TCP connect plus TLS handshake
const DefaultTimeout = 10 * time.Second

// CertificateInfo describes the leaf certificate presented by a server
type CertificateInfo struct {
	Subject       string
	Issuer        string
	NotAfter      time.Time
	DaysRemaining int
	ChainLength   int
}

// Validator checks that a URL is served over HTTPS with a currently valid chain
type Validator struct {
	timeout time.Duration
	roots   *x509.CertPool
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Validator
type Option func(*Validator)

// WithRootCAs verifies chains against pool instead of the system roots
func WithRootCAs(pool *x509.CertPool) Option {
	return func(v *Validator) {
		v.roots = pool
	}
}

// WithClock overrides the time used for validity window checks
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a transport validator
func NewValidator(timeout time.Duration, logger *zap.Logger, opts ...Option) *Validator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Validator{
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate implements core.TransportValidator
func (v *Validator) Validate(ctx context.Context, rawURL string) bool {
	info, err := v.Inspect(ctx, rawURL)
	if err != nil {
		v.logger.Debug("Transport validation failed", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	v.logger.Debug("Transport validated",
		zap.String("url", rawURL),
		zap.String("subject", info.Subject),
		zap.Int("days_remaining", info.DaysRemaining))
	return true
}

// Inspect performs the TLS handshake and returns the leaf certificate details.
// Any failure, including an empty or out-of-window chain, is an error.
func (v *Validator) Inspect(ctx context.Context, rawURL string) (*CertificateInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %q is not https", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, errors.New("url has no host")
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	now := v.now()
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: v.timeout},
		Config: &tls.Config{
			ServerName: host,
			RootCAs:    v.roots,
			MinVersion: tls.VersionTLS12,
			Time:       func() time.Time { return now },
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, errors.New("connection is not TLS")
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, errors.New("server presented no certificates")
	}
	for _, cert := range certs {
		if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			return nil, fmt.Errorf("certificate %q outside validity window", cert.Subject.CommonName)
		}
	}

	leaf := certs[0]
	issuer := leaf.Issuer.CommonName
	if len(leaf.Issuer.Organization) > 0 {
		issuer = leaf.Issuer.Organization[0]
	}
	subject := leaf.Subject.CommonName
	if subject == "" && len(leaf.DNSNames) > 0 {
		subject = strings.Join(leaf.DNSNames, ",")
	}

	return &CertificateInfo{
		Subject:       subject,
		Issuer:        issuer,
		NotAfter:      leaf.NotAfter,
		DaysRemaining: int(leaf.NotAfter.Sub(now).Hours() / 24),
		ChainLength:   len(certs),
	}, nil
}
