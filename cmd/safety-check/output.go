package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/utils"
)

const bodyPreviewBytes = 200

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func check(ok bool) string {
	if ok {
		return green("yes")
	}
	return red("no")
}

func printURLAnalysis(w io.Writer, a *core.UrlAnalysis) {
	fmt.Fprintf(w, "\n%s\n", cyan("=== Website Analysis ==="))
	fmt.Fprintf(w, "URL: %s\n", a.URL)
	fmt.Fprintf(w, "Secure transport: %s\n", check(a.IsSecure))
	fmt.Fprintf(w, "Clean reputation: %s\n", check(a.IsSafeFromScams))
	fmt.Fprintf(w, "Safe content: %s\n", check(a.IsTextSafe))
	fmt.Fprintf(w, "Normal URL: %s\n", check(!a.IsUrlSuspicious))
	if a.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", a.Description)
	}

	verdict := green(a.SafetyMessage)
	if !a.OverallSafe() {
		verdict = red(a.SafetyMessage)
	}
	fmt.Fprintf(w, "\n%s %s\n", cyan("Verdict:"), verdict)
	if a.Rationale != "" && a.Rationale != a.SafetyMessage {
		fmt.Fprintf(w, "Rationale: %s\n", a.Rationale)
	}
}

func printEmailSummary(w io.Writer, e *core.Email, tp *utils.TextProcessor) {
	fmt.Fprintf(w, "\n%s\n", cyan("=== Email Summary ==="))
	fmt.Fprintf(w, "From: %s\n", e.Sender)
	fmt.Fprintf(w, "To: %s\n", e.Recipient)
	fmt.Fprintf(w, "Subject: %s\n", e.Subject)
	fmt.Fprintf(w, "Body length: %d bytes\n", len(e.Body))
	fmt.Fprintf(w, "Body: %s\n", tp.ProcessText(e.Body, bodyPreviewBytes))
}

func printSpamAnalysis(w io.Writer, s *core.SpamAnalysis, duration time.Duration) {
	fmt.Fprintf(w, "\n%s\n", cyan("=== Results ==="))

	label := green("NOT SPAM")
	switch {
	case s.IsHighRisk:
		label = red("HIGH RISK SPAM")
	case s.IsSpam:
		label = yellow("SPAM")
	}
	fmt.Fprintf(w, "Verdict: %s\n", label)
	fmt.Fprintf(w, "Spam score: %.4f\n", s.SpamScore)
	fmt.Fprintf(w, "Reason: %s\n", s.SpamReason)
	if len(s.DetectedSpamKeywords) > 0 {
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(s.DetectedSpamKeywords, ", "))
	}
	if len(s.DetectedPatterns) > 0 {
		fmt.Fprintf(w, "Patterns: %s\n", strings.Join(s.DetectedPatterns, ", "))
	}
	for _, link := range s.LinkAnalysisResults {
		fmt.Fprintf(w, "Link %s: %s (%s)\n", link.URL, check(link.IsSafe), link.SafetyMessage)
	}
	if s.Rationale != "" {
		fmt.Fprintf(w, "Rationale: %s\n", s.Rationale)
	}
	fmt.Fprintf(w, "Processing time: %v\n", duration.Round(time.Millisecond))
}

func printBulkAnalysis(w io.Writer, b *core.BulkSpamAnalysis) {
	fmt.Fprintf(w, "\n%s\n", cyan("=== Bulk Results ==="))
	for i, r := range b.Results {
		label := green("ham ")
		if r.IsHighRisk {
			label = red("high")
		} else if r.IsSpam {
			label = yellow("spam")
		}
		fmt.Fprintf(w, "%3d  %s  %.4f  %s\n", i+1, label, r.SpamScore, r.SpamReason)
	}
	fmt.Fprintf(w, "\nTotal: %d  Spam: %s  High risk: %s  Average score: %.4f\n",
		b.Total,
		yellow(b.SpamCount),
		red(b.HighRiskCount),
		b.AverageScore)
}
