package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/content-safety/internal/core"
	"go.uber.org/zap"
)

// EmailScorer scores a parsed email
type EmailScorer interface {
	Analyze(ctx context.Context, email *core.Email) *core.SpamAnalysis
}

// RelayFunc delivers an annotated message to the next hop
type RelayFunc func(ctx context.Context, from string, to []string, data []byte) error

// Headers names the headers prepended to every relayed message
type Headers struct {
	Spam     string
	Score    string
	Reason   string
	HighRisk string
}

// DefaultHeaders are used for any header name left empty
var DefaultHeaders = Headers{
	Spam:     "X-Spam-Status",
	Score:    "X-Spam-Score",
	Reason:   "X-Spam-Reason",
	HighRisk: "X-Spam-High-Risk",
}

// SMTPFilter is an SMTP content filter. It scores every message it receives,
// prepends verdict headers and relays the message unchanged otherwise.
type SMTPFilter struct {
	scorer     EmailScorer
	logger     *zap.Logger
	listenAddr string
	headers    Headers
	relay      RelayFunc
	timeout    time.Duration
	server     *smtp.Server
}

// NewSMTPFilter creates a new SMTP content filter
func NewSMTPFilter(scorer EmailScorer, logger *zap.Logger, listenAddr string, headers Headers, relay RelayFunc) *SMTPFilter {
	if headers.Spam == "" {
		headers.Spam = DefaultHeaders.Spam
	}
	if headers.Score == "" {
		headers.Score = DefaultHeaders.Score
	}
	if headers.Reason == "" {
		headers.Reason = DefaultHeaders.Reason
	}
	if headers.HighRisk == "" {
		headers.HighRisk = DefaultHeaders.HighRisk
	}
	return &SMTPFilter{
		scorer:     scorer,
		logger:     logger,
		listenAddr: listenAddr,
		headers:    headers,
		relay:      relay,
		timeout:    time.Minute,
	}
}

// Start starts the SMTP listener in the background
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	ln, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddr, err)
	}

	f.logger.Info("SMTP filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP listener
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail scores an email without relaying it
func (f *SMTPFilter) ProcessEmail(ctx context.Context, email *core.Email) *core.SpamAnalysis {
	return f.scorer.Analyze(ctx, email)
}

// Annotate prepends the verdict headers to a raw message. Inbound copies of
// those headers are removed first.
func (f *SMTPFilter) Annotate(raw []byte, result *core.SpamAnalysis) []byte {
	raw = stripHeaders(raw, f.headers.Spam, f.headers.Score, f.headers.Reason, f.headers.HighRisk)

	var out bytes.Buffer
	out.Grow(len(raw) + 256)

	fmt.Fprintf(&out, "%s: %s\r\n", f.headers.Spam, spamStatus(result))
	fmt.Fprintf(&out, "%s: %.4f\r\n", f.headers.Score, result.SpamScore)
	fmt.Fprintf(&out, "%s: %s\r\n", f.headers.Reason, headerValue(result.SpamReason))
	fmt.Fprintf(&out, "%s: %t\r\n", f.headers.HighRisk, result.IsHighRisk)
	out.Write(raw)
	return out.Bytes()
}

// stripHeaders drops the named header fields, continuation lines included,
// from the header section of raw. The body is left untouched.
func stripHeaders(raw []byte, names ...string) []byte {
	var out bytes.Buffer
	out.Grow(len(raw))

	skipping := false
	rest := raw
	for len(rest) > 0 {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
		}
		rest = rest[len(line):]

		if len(bytes.TrimRight(line, "\r\n")) == 0 {
			out.Write(line)
			out.Write(rest)
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if !skipping {
				out.Write(line)
			}
			continue
		}

		skipping = false
		if colon := bytes.IndexByte(line, ':'); colon > 0 {
			field := string(bytes.TrimSpace(line[:colon]))
			for _, name := range names {
				if name != "" && strings.EqualFold(field, name) {
					skipping = true
					break
				}
			}
		}
		if !skipping {
			out.Write(line)
		}
	}
	return out.Bytes()
}

// NewSMTPRelay returns a RelayFunc that delivers to host:port over plain SMTP
func NewSMTPRelay(host string, port int, logger *zap.Logger) RelayFunc {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	return func(ctx context.Context, from string, to []string, data []byte) error {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "localhost"
		}

		dialer := net.Dialer{Timeout: 10 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect to relay: %w", err)
		}

		deadline := time.Now().Add(30 * time.Second)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set connection deadline: %w", err)
		}

		c := smtp.NewClient(conn)
		defer c.Close()

		if err := c.Hello(hostname); err != nil {
			return fmt.Errorf("EHLO failed: %w", err)
		}
		if err := c.Mail(from, nil); err != nil {
			return fmt.Errorf("MAIL FROM failed: %w", err)
		}

		recipientOK := false
		for _, recipient := range to {
			if err := c.Rcpt(recipient, nil); err != nil {
				logger.Warn("RCPT TO failed for recipient",
					zap.String("recipient", recipient),
					zap.Error(err))
				continue
			}
			recipientOK = true
		}
		if !recipientOK {
			return fmt.Errorf("all recipients were rejected")
		}

		wc, err := c.Data()
		if err != nil {
			return fmt.Errorf("DATA command failed: %w", err)
		}
		if _, err := wc.Write(data); err != nil {
			wc.Close()
			return fmt.Errorf("failed to send email data: %w", err)
		}
		if err := wc.Close(); err != nil {
			return fmt.Errorf("failed to close data writer: %w", err)
		}

		if err := c.Quit(); err != nil {
			logger.Warn("QUIT command failed", zap.Error(err))
		}
		return nil
	}
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data scores the message and relays it with verdict headers. Mail is never rejected for being spam.
func (s *smtpSession) Data(r io.Reader) error {
	f := s.filter

	raw, err := io.ReadAll(r)
	if err != nil {
		f.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	email, err := ParseMessage(bytes.NewReader(raw))
	if err != nil {
		f.logger.Warn("Failed to parse message, relaying unscored", zap.String("sender", s.sender), zap.Error(err))
		return s.deliver(raw)
	}
	if s.sender != "" {
		email.Sender = s.sender
	}
	if len(s.recipients) > 0 {
		email.Recipient = s.recipients[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	result := f.scorer.Analyze(ctx, email)

	f.logger.Info("Processed email",
		zap.String("from", email.Sender),
		zap.Int("recipients", len(s.recipients)),
		zap.Bool("is_spam", result.IsSpam),
		zap.Bool("high_risk", result.IsHighRisk),
		zap.Float64("score", result.SpamScore))

	return s.deliver(f.Annotate(raw, result))
}

func (s *smtpSession) deliver(data []byte) error {
	f := s.filter
	if f.relay == nil {
		f.logger.Warn("No relay configured, message dropped", zap.String("sender", s.sender))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.relay(ctx, s.sender, s.recipients, data); err != nil {
		f.logger.Error("Failed to relay message", zap.String("sender", s.sender), zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 4, 1},
			Message:      "Temporary relay failure",
		}
	}
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}

func spamStatus(r *core.SpamAnalysis) string {
	if r.IsSpam {
		return "Yes"
	}
	return "No"
}

// headerValue keeps a header value on a single line
func headerValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
