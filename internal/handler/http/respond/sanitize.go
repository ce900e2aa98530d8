package respond

import (
	"regexp"
)

// Patterns are applied in order; the more specific ones come first.
var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	// GitHub personal, OAuth, app and fine-grained tokens
	{regexp.MustCompile(`\b(ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{20,}`), "${1}_****"},
	{regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{20,}`), "github_pat_****"},
	// Authorization header values echoed in errors
	{regexp.MustCompile(`(?i)\b(bearer|token)\s+[A-Za-z0-9._\-]{8,}`), "$1 ****"},
	// credentials and secrets in query strings
	{regexp.MustCompile(`(?i)([?&](?:access_token|api_key|apikey|key|token|client_secret|sig)=)[^&\s"]+`), "${1}****"},
	// userinfo in URLs
	{regexp.MustCompile(`://([^:/@\s]+):([^@/\s]+)@`), "://$1:****@"},
}

// SanitizeError returns the message of err with tokens and credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeMessage(err.Error())
}

// SanitizeMessage masks tokens and credentials in msg.
func SanitizeMessage(msg string) string {
	for _, p := range secretPatterns {
		msg = p.re.ReplaceAllString(msg, p.repl)
	}
	return msg
}
