package sender

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestReputation(t *testing.T) {
	c := NewChecker([]string{" Gmail.com ", "yahoo.com", ""}, zaptest.NewLogger(t))

	tests := []struct {
		sender   string
		expected float64
	}{
		{"alice@gmail.com", TrustedReputation},
		{" Bob@GMAIL.COM ", TrustedReputation},
		{"orders@company.com", WellFormedReputation},
		{"security@bank.xyz", WellFormedReputation},
		{"user@localhost", UnknownReputation},
		{"@example.com", UnknownReputation},
		{"user@example.", UnknownReputation},
		{"not-an-address", UnknownReputation},
		{"", UnknownReputation},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			if got := c.Reputation(tt.sender); got != tt.expected {
				t.Errorf("Reputation(%q) = %v, want %v", tt.sender, got, tt.expected)
			}
		})
	}
}

func TestIsTrustedNoDomains(t *testing.T) {
	c := NewChecker(nil, nil)
	if c.IsTrusted("alice@gmail.com") {
		t.Error("expected no trusted domains")
	}
}

func TestDomain(t *testing.T) {
	if got := Domain("a@B.com"); got != "b.com" {
		t.Errorf("Domain() = %q", got)
	}
	if got := Domain("a@b@c"); got != "" {
		t.Errorf("Domain() = %q, want empty", got)
	}
}
