package core

// URL safety messages, chosen by the first failing dimension
const (
	MessageInsecure        = "Website is potentially unsafe due to lack of HTTPS or a valid certificate."
	MessageReputation      = "Website is potentially unsafe: it was flagged as malicious or suspicious, or its reputation could not be verified."
	MessageUnsafeContent   = "Website is potentially unsafe: its content contains common scam or phishing language."
	MessageSafe            = "Website is likely safe."
	MessageLinkLimit       = "URL analysis skipped: link limit exceeded"
	MessageLinkFailed      = "URL analysis failed"
	DescriptionNotAnalyzed = "N/A"
	DescriptionEmpty       = "No description available"
	DescriptionFetchFailed = "Unable to scrape content"
)

// Spam reason fragments
const (
	ReasonKeywords     = "Contains suspicious keywords: "
	ReasonPatterns     = "Matches spam patterns"
	ReasonSender       = "Suspicious sender address"
	ReasonHighScore    = "High spam probability score"
	ReasonNoIndicators = "No specific spam indicators detected"
)

// safetyMessage picks the message of the first unsafe dimension
func safetyMessage(isSecure, isSafeFromScams, isTextSafe bool) string {
	switch {
	case !isSecure:
		return MessageInsecure
	case !isSafeFromScams:
		return MessageReputation
	case !isTextSafe:
		return MessageUnsafeContent
	default:
		return MessageSafe
	}
}
