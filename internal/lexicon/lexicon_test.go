package lexicon

import (
	"reflect"
	"testing"
	"testing/fstest"

	"go.uber.org/zap/zaptest"
)

func TestDefaultLoadsEveryDimension(t *testing.T) {
	lex := Default(zaptest.NewLogger(t))

	if len(lex.spamKeywords) == 0 {
		t.Error("expected spam keywords")
	}
	if len(lex.scamKeywords) == 0 {
		t.Error("expected scam keywords")
	}
	if lex.LegitimateTermCount() == 0 {
		t.Error("expected legitimate terms")
	}
	if lex.PatternCount() == 0 {
		t.Error("expected spam patterns")
	}
	if len(lex.suspiciousSenders) == 0 {
		t.Error("expected suspicious sender patterns")
	}

	keywords := lex.SpamKeywords()
	for _, want := range []string{"urgent", "free money", "congratulations"} {
		found := false
		for _, kw := range keywords {
			if kw == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected keyword %q in default list", want)
		}
	}
}

func TestLoadFSMissingFileDegrades(t *testing.T) {
	fsys := fstest.MapFS{
		SpamKeywordsFile: {Data: []byte("# comment\n\nFree Money\nurgent\n")},
		SpamPatternsFile: {Data: []byte("act\\s+now\n([unclosed\n")},
	}

	lex := LoadFS(fsys, zaptest.NewLogger(t))

	if got := lex.SpamKeywords(); !reflect.DeepEqual(got, []string{"free money", "urgent"}) {
		t.Errorf("SpamKeywords() = %v", got)
	}
	if lex.PatternCount() != 1 {
		t.Errorf("PatternCount() = %d, want 1 (invalid pattern skipped)", lex.PatternCount())
	}
	if lex.LegitimacyScore("thank you for your order") != 0 {
		t.Error("missing legitimate terms should never match")
	}
	if lex.IsSuspiciousSender("winner@spam.tk") {
		t.Error("missing sender patterns should never match")
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	lex := Load(t.TempDir(), zaptest.NewLogger(t))

	if hits := lex.SpamKeywordHits("urgent free money"); len(hits) != 0 {
		t.Errorf("expected no hits from empty lexicon, got %v", hits)
	}
}

func TestMatching(t *testing.T) {
	lex := New(Sets{
		SpamKeywords:      []string{"Urgent", "act now", "urgent"},
		ScamKeywords:      []string{"get rich quick"},
		LegitimateTerms:   []string{"invoice", "order", "team", "support"},
		SpamPatterns:      []string{`within\s+\d+\s+hours?`, `act\s+now`},
		SuspiciousSenders: []string{`\.tk$`},
	}, zaptest.NewLogger(t))

	tests := []struct {
		name     string
		validate func(t *testing.T)
	}{
		{
			name: "keyword hits are case insensitive and deduplicated",
			validate: func(t *testing.T) {
				got := lex.SpamKeywordHits("URGENT: Act Now")
				if !reflect.DeepEqual(got, []string{"act now", "urgent"}) {
					t.Errorf("SpamKeywordHits() = %v", got)
				}
			},
		},
		{
			name: "scam hits include spam keywords",
			validate: func(t *testing.T) {
				got := lex.ScamKeywordHits("Get rich quick, act now")
				if !reflect.DeepEqual(got, []string{"act now", "get rich quick"}) {
					t.Errorf("ScamKeywordHits() = %v", got)
				}
			},
		},
		{
			name: "pattern hits keep lexicon order",
			validate: func(t *testing.T) {
				got := lex.PatternHits("Act now! Expires within 24 hours")
				want := []string{`within\s+\d+\s+hours?`, `act\s+now`}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("PatternHits() = %v, want %v", got, want)
				}
			},
		},
		{
			name: "legitimacy score is doubled density",
			validate: func(t *testing.T) {
				if got := lex.LegitimacyScore("your invoice"); got != 0.5 {
					t.Errorf("LegitimacyScore() = %v, want 0.5", got)
				}
				if got := lex.LegitimacyScore("invoice order team"); got != 1 {
					t.Errorf("LegitimacyScore() = %v, want capped 1", got)
				}
			},
		},
		{
			name: "suspicious sender",
			validate: func(t *testing.T) {
				if !lex.IsSuspiciousSender("  Winner@Spam.TK ") {
					t.Error("expected suspicious sender")
				}
				if lex.IsSuspiciousSender("") {
					t.Error("empty sender should not be suspicious")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.validate)
	}
}
