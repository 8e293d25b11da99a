package lexicon

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// Resource file names
const (
	SpamKeywordsFile      = "spam_keywords.txt"
	ScamKeywordsFile      = "scam_keywords.txt"
	LegitimateTermsFile   = "legitimate_terms.txt"
	SpamPatternsFile      = "spam_patterns.txt"
	SuspiciousSendersFile = "suspicious_senders.txt"
)

//go:embed resources/*.txt
var embedded embed.FS

// Lexicon holds the word lists and compiled patterns used by the analyzers.
// A Lexicon never changes after construction and is safe for concurrent use.
type Lexicon struct {
	spamKeywords      []string
	scamKeywords      []string
	legitimateTerms   []string
	spamPatterns      []*regexp.Regexp
	suspiciousSenders []*regexp.Regexp
}

// Sets is the raw content of a lexicon, used to build one in memory
type Sets struct {
	SpamKeywords      []string
	ScamKeywords      []string
	LegitimateTerms   []string
	SpamPatterns      []string
	SuspiciousSenders []string
}

// Fold case-folds text for matching against lexicon entries
func Fold(s string) string {
	// Casers keep state and are not safe for concurrent use
	return cases.Fold().String(s)
}

// New builds a lexicon from in-memory sets. Invalid patterns are skipped.
func New(sets Sets, logger *zap.Logger) *Lexicon {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lexicon{
		spamKeywords:      foldTerms(sets.SpamKeywords),
		scamKeywords:      foldTerms(sets.ScamKeywords),
		legitimateTerms:   foldTerms(sets.LegitimateTerms),
		spamPatterns:      compilePatterns(sets.SpamPatterns, "spam_patterns", logger),
		suspiciousSenders: compilePatterns(sets.SuspiciousSenders, "suspicious_senders", logger),
	}
}

// Default loads the lexicon shipped with the binary
func Default(logger *zap.Logger) *Lexicon {
	sub, err := fs.Sub(embedded, "resources")
	if err != nil {
		// Only possible if the embed directive is broken
		panic(fmt.Sprintf("lexicon: embedded resources unavailable: %v", err))
	}
	return LoadFS(sub, logger)
}

// Load reads the lexicon from dir, or the embedded resources when dir is empty
func Load(dir string, logger *zap.Logger) *Lexicon {
	if dir == "" {
		return Default(logger)
	}
	return LoadFS(os.DirFS(dir), logger)
}

// LoadFS reads the five resource files from fsys. A file that cannot be read
// leaves its collection empty and is logged; loading never fails.
func LoadFS(fsys fs.FS, logger *zap.Logger) *Lexicon {
	if logger == nil {
		logger = zap.NewNop()
	}

	sets := Sets{
		SpamKeywords:      readLines(fsys, SpamKeywordsFile, logger),
		ScamKeywords:      readLines(fsys, ScamKeywordsFile, logger),
		LegitimateTerms:   readLines(fsys, LegitimateTermsFile, logger),
		SpamPatterns:      readLines(fsys, SpamPatternsFile, logger),
		SuspiciousSenders: readLines(fsys, SuspiciousSendersFile, logger),
	}
	lex := New(sets, logger)

	logger.Info("Loaded lexicon",
		zap.Int("spam_keywords", len(lex.spamKeywords)),
		zap.Int("scam_keywords", len(lex.scamKeywords)),
		zap.Int("legitimate_terms", len(lex.legitimateTerms)),
		zap.Int("spam_patterns", len(lex.spamPatterns)),
		zap.Int("suspicious_senders", len(lex.suspiciousSenders)))

	return lex
}

func readLines(fsys fs.FS, name string, logger *zap.Logger) []string {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		logger.Warn("Failed to load lexicon file, dimension disabled",
			zap.String("file", name),
			zap.Error(err))
		return nil
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Failed to read lexicon file, dimension disabled",
			zap.String("file", name),
			zap.Error(err))
		return nil
	}
	return lines
}

func foldTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = Fold(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

func compilePatterns(sources []string, dimension string, logger *zap.Logger) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile(src)
		if err != nil {
			logger.Warn("Skipping invalid lexicon pattern",
				zap.String("dimension", dimension),
				zap.String("pattern", src),
				zap.Error(err))
			continue
		}
		out = append(out, re)
	}
	return out
}

// SpamKeywordHits returns the spam keywords contained in text, sorted
func (l *Lexicon) SpamKeywordHits(text string) []string {
	return containedTerms(Fold(text), l.spamKeywords)
}

// ScamKeywordHits returns the scam and spam keywords contained in text, sorted
func (l *Lexicon) ScamKeywordHits(text string) []string {
	folded := Fold(text)
	hits := containedTerms(folded, l.scamKeywords)
	hits = append(hits, containedTerms(folded, l.spamKeywords)...)
	return sortedUnique(hits)
}

// PatternHits returns the source of every spam pattern matching text, in lexicon order
func (l *Lexicon) PatternHits(text string) []string {
	folded := Fold(text)
	var hits []string
	for _, re := range l.spamPatterns {
		if re.MatchString(folded) {
			hits = append(hits, re.String())
		}
	}
	return hits
}

// IsSuspiciousSender reports whether any suspicious-sender pattern matches the address
func (l *Lexicon) IsSuspiciousSender(sender string) bool {
	key := Fold(strings.TrimSpace(sender))
	if key == "" {
		return false
	}
	for _, re := range l.suspiciousSenders {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// LegitimateTermHits returns the number of legitimate-business terms contained in text
func (l *Lexicon) LegitimateTermHits(text string) int {
	return len(containedTerms(Fold(text), l.legitimateTerms))
}

// LegitimacyScore is the density of legitimate terms in text, doubled and capped at 1
func (l *Lexicon) LegitimacyScore(text string) float64 {
	if len(l.legitimateTerms) == 0 {
		return 0
	}
	score := float64(l.LegitimateTermHits(text)) / float64(len(l.legitimateTerms)) * 2
	if score > 1 {
		return 1
	}
	return score
}

// SpamKeywords returns a sorted copy of the spam keyword list
func (l *Lexicon) SpamKeywords() []string {
	out := make([]string, len(l.spamKeywords))
	copy(out, l.spamKeywords)
	sort.Strings(out)
	return out
}

// LegitimateTermCount returns the size of the legitimate-term list
func (l *Lexicon) LegitimateTermCount() int {
	return len(l.legitimateTerms)
}

// PatternCount returns the number of compiled spam patterns
func (l *Lexicon) PatternCount() int {
	return len(l.spamPatterns)
}

func containedTerms(folded string, terms []string) []string {
	var hits []string
	for _, term := range terms {
		if strings.Contains(folded, term) {
			hits = append(hits, term)
		}
	}
	sort.Strings(hits)
	return hits
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
