package sender

import (
	"strings"

	"go.uber.org/zap"
)

// Sender reputation priors
const (
	TrustedReputation    = 0.8
	WellFormedReputation = 0.5
	UnknownReputation    = 0.1
)

// DefaultTrustedDomains are the well-known free-mail providers
var DefaultTrustedDomains = []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com"}

// Checker assigns a coarse trust prior to sender addresses based on their domain
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new sender checker over the trusted domains
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Normalize domains (lowercase)
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 {
		logger.Info("Initialized sender checker", zap.Strings("trusted_domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsTrusted checks if the sender's domain is one of the trusted domains
func (c *Checker) IsTrusted(from string) bool {
	domain := Domain(from)
	if domain == "" {
		return false
	}
	for _, trusted := range c.domains {
		if trusted == domain {
			c.logger.Debug("Sender domain is trusted",
				zap.String("domain", domain),
				zap.String("email", from))
			return true
		}
	}
	return false
}

// Reputation returns the trust prior for a sender address
func (c *Checker) Reputation(from string) float64 {
	key := strings.ToLower(strings.TrimSpace(from))
	switch {
	case c.IsTrusted(key):
		return TrustedReputation
	case wellFormed(key):
		return WellFormedReputation
	default:
		return UnknownReputation
	}
}

// Domain extracts the lowercased domain of an address, or "" when there is none
func Domain(from string) string {
	parts := strings.Split(strings.TrimSpace(from), "@")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}

// wellFormed reports whether the address has a local part, an @ and a dotted domain
func wellFormed(addr string) bool {
	at := strings.Index(addr, "@")
	if at <= 0 {
		return false
	}
	dot := strings.LastIndex(addr[at+1:], ".")
	return dot > 0 && dot < len(addr[at+1:])-1
}
