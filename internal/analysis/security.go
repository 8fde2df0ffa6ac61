package analysis

import "regexp"

// Severity levels for detected security issues.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// securityPattern defines a sensitive-data pattern to match in output.
type securityPattern struct {
	name     string
	detail   string
	regex    *regexp.Regexp
	severity Severity
}

// securityPatterns are checked against the concatenated stdout+stderr.
// Each pattern reports at most one issue, regardless of how many substrings
// match it.
var securityPatterns = []securityPattern{
	{
		name:     "password-exposure",
		detail:   "output contains what looks like a password assignment",
		regex:    regexp.MustCompile(`(?i)password\s*[=:]\s*\S+`),
		severity: SeverityHigh,
	},
	{
		name:     "api-key-exposure",
		detail:   "output contains what looks like an API key",
		regex:    regexp.MustCompile(`(?i)api[_-]?key\s*[=:]\s*\S+`),
		severity: SeverityHigh,
	},
	{
		name:     "token-exposure",
		detail:   "output contains what looks like an access token",
		regex:    regexp.MustCompile(`(?i)(auth|access|bearer)?[_-]?token\s*[=:]\s*\S+`),
		severity: SeverityMedium,
	},
	{
		name:     "secret-exposure",
		detail:   "output contains what looks like a secret assignment",
		regex:    regexp.MustCompile(`(?i)secret\s*[=:]\s*\S+`),
		severity: SeverityMedium,
	},
	{
		name:     "private-key-material",
		detail:   "output contains PEM private key material",
		regex:    regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
		severity: SeverityCritical,
	},
}

// detectSecurityIssues runs the pattern set over the combined output.
func detectSecurityIssues(combined string) []SecurityIssue {
	var issues []SecurityIssue
	if combined == "" {
		return issues
	}
	for _, p := range securityPatterns {
		if p.regex.MatchString(combined) {
			issues = append(issues, SecurityIssue{
				Type:     p.name,
				Detail:   p.detail,
				Severity: p.severity.String(),
			})
		}
	}
	return issues
}
