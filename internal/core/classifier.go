package core

import (
	"math"
	"regexp"
	"strings"

	"github.com/mikey/content-safety/internal/lexicon"
)

// sentimentWeights scores phrases commonly found in pressure or trust language.
// A slice keeps the summation order fixed.
var sentimentWeights = []struct {
	phrase string
	weight float64
}{
	{"urgent", -0.8},
	{"limited time", -0.7},
	{"act now", -0.9},
	{"free money", -0.9},
	{"guaranteed", -0.6},
	{"risk free", -0.5},
	{"exclusive", -0.4},
	{"winner", -0.3},
	{"claim now", -0.8},
	{"verify account", -0.7},
	{"suspended", -0.8},
	{"expired", -0.6},
	{"safe", 0.5},
	{"secure", 0.6},
	{"trusted", 0.7},
	{"verified", 0.6},
	{"official", 0.5},
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	vowels        = regexp.MustCompile(`[aeiouy]`)
)

const maxReadabilitySentences = 20

// ContentClassification is the result of scanning page text against the lexicon
type ContentClassification struct {
	ScamKeywordHits     []string
	PhishingPatternHits []string
	LegitimacyScore     float64
	SentimentScore      float64
	ReadabilityScore    float64
	WordCount           int
	IsTextSafe          bool
}

// Metrics returns the classification as a flat map for analysis records
func (c *ContentClassification) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"scam_keyword_count": len(c.ScamKeywordHits),
		"scam_keywords":      c.ScamKeywordHits,
		"phishing_patterns":  c.PhishingPatternHits,
		"legitimacy_score":   c.LegitimacyScore,
		"sentiment_score":    c.SentimentScore,
		"readability_score":  c.ReadabilityScore,
		"word_count":         c.WordCount,
	}
}

// ContentClassifier scans text blobs for scam signals
type ContentClassifier struct {
	lexicon *lexicon.Lexicon
}

// NewContentClassifier creates a classifier over the given lexicon
func NewContentClassifier(lex *lexicon.Lexicon) *ContentClassifier {
	return &ContentClassifier{lexicon: lex}
}

// Classify scans text. The text is safe iff it contains no scam keyword.
func (c *ContentClassifier) Classify(text string) *ContentClassification {
	hits := c.lexicon.ScamKeywordHits(text)
	return &ContentClassification{
		ScamKeywordHits:     hits,
		PhishingPatternHits: c.lexicon.PatternHits(text),
		LegitimacyScore:     c.lexicon.LegitimacyScore(text),
		SentimentScore:      sentimentScore(text),
		ReadabilityScore:    readabilityScore(text),
		WordCount:           len(strings.Fields(text)),
		IsTextSafe:          len(hits) == 0,
	}
}

// sentimentScore averages the weights of every sentiment phrase present in text
func sentimentScore(text string) float64 {
	folded := lexicon.Fold(text)
	total, matched := 0.0, 0
	for _, sw := range sentimentWeights {
		if strings.Contains(folded, sw.phrase) {
			total += sw.weight
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return total / float64(matched)
}

// readabilityScore is a Flesch reading ease approximation normalised to [0,1]
func readabilityScore(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := 0
	for _, piece := range sentenceSplit.Split(text, -1) {
		if len(strings.TrimSpace(piece)) > 10 {
			sentences++
			if sentences == maxReadabilitySentences {
				break
			}
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	syllables := len(vowels.FindAllStringIndex(strings.ToLower(text), -1))

	wordsPerSentence := float64(len(words)) / float64(sentences)
	syllablesPerWord := float64(syllables) / float64(len(words))
	flesch := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord

	return math.Max(0, math.Min(100, flesch)) / 100
}
