package analysis

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseable marks a response that yielded neither valid JSON nor any
// recognizable markdown section. The caller turns this into a degraded
// analysis; it is a first-class return value, not a panic path.
var ErrUnparseable = errors.New("response is neither JSON nor headed sections")

var (
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	headingRegex   = regexp.MustCompile(`(?m)^##\s+(.+)$`)
	listItemRegex  = regexp.MustCompile(`(?m)^\s*(?:[-*]|\d+[.)])\s+(.+)$`)
)

// ParseResponse turns raw LLM output into an AIAnalysis. JSON is tried first
// (including JSON inside a markdown code fence); failing that, "## heading"
// sections are extracted. Risk and confidence are normalized on every path.
func ParseResponse(text string) (*AIAnalysis, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrUnparseable
	}

	if parsed, ok := parseJSON(trimmed); ok {
		return normalize(parsed), nil
	}
	if parsed, ok := parseSections(trimmed); ok {
		return normalize(parsed), nil
	}
	return nil, ErrUnparseable
}

func parseJSON(text string) (*AIAnalysis, bool) {
	candidates := []string{text}
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		candidates = append([]string{strings.TrimSpace(m[1])}, candidates...)
	}

	for _, candidate := range candidates {
		var parsed AIAnalysis
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}
		// An all-empty struct means the JSON was valid but unrelated.
		if len(parsed.Insights) == 0 && len(parsed.Recommendations) == 0 &&
			parsed.RiskAssessment == "" && parsed.PerformanceAnalysis == "" {
			continue
		}
		return &parsed, true
	}
	return nil, false
}

// parseSections extracts "## heading" blocks from markdown-shaped output.
func parseSections(text string) (*AIAnalysis, bool) {
	locs := headingRegex.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil, false
	}

	parsed := &AIAnalysis{}
	found := false

	for i, loc := range locs {
		heading := strings.ToLower(strings.TrimSpace(text[loc[2]:loc[3]]))
		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(text[bodyStart:bodyEnd])

		switch {
		case strings.Contains(heading, "insight"):
			parsed.Insights = listItems(body)
			found = true
		case strings.Contains(heading, "recommendation"):
			parsed.Recommendations = listItems(body)
			found = true
		case strings.Contains(heading, "next step"):
			parsed.NextSteps = listItems(body)
			found = true
		case strings.Contains(heading, "best practice"):
			parsed.BestPractices = listItems(body)
			found = true
		case strings.Contains(heading, "related command"):
			parsed.RelatedCommands = listItems(body)
			found = true
		case strings.Contains(heading, "risk"):
			parsed.RiskAssessment = firstWord(body)
			found = true
		case strings.Contains(heading, "confidence"):
			if v, err := strconv.ParseFloat(firstWord(body), 64); err == nil {
				parsed.Confidence = v
			}
			found = true
		case strings.Contains(heading, "performance"):
			parsed.PerformanceAnalysis = body
			found = true
		case strings.Contains(heading, "security"):
			parsed.SecurityAnalysis = body
			found = true
		}
	}

	return parsed, found
}

// listItems pulls bullet or numbered entries out of a section body, falling
// back to non-empty lines when the section has no list markers.
func listItems(body string) []string {
	var items []string
	for _, m := range listItemRegex.FindAllStringSubmatch(body, -1) {
		items = append(items, strings.TrimSpace(m[1]))
	}
	if len(items) > 0 {
		return items
	}
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(fields[0], `"'.,`))
}

// normalize clamps confidence into [0,1] and maps unknown risk words to
// "unknown".
func normalize(a *AIAnalysis) *AIAnalysis {
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 1 {
		a.Confidence = 1
	}
	switch strings.ToLower(a.RiskAssessment) {
	case RiskLow, RiskMedium, RiskHigh:
		a.RiskAssessment = strings.ToLower(a.RiskAssessment)
	default:
		a.RiskAssessment = RiskUnknown
	}
	return a
}
