package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/mohammad-safakhou/askweb/models"
	"github.com/mohammad-safakhou/askweb/provider"
)

// CriticMode controls how a critic reply becomes a verdict.
type CriticMode string

const (
	// LooseCritic approves any reply that does not contain "FAIL".
	LooseCritic CriticMode = "loose"
	// StrictCritic approves only replies whose first word is "PASS" and
	// that contain no "FAIL".
	StrictCritic CriticMode = "strict"
)

const (
	verdictPass = "PASS"
	verdictFail = "FAIL"
)

// BuildCriticPrompt asks the model to judge formatted against the query.
func BuildCriticPrompt(formatted, query string) string {
	return "Act as a critic. Does the following meet these rules:\n" +
		"- Clear and professional?\n" +
		"- Factually consistent?\n" +
		fmt.Sprintf("- Relevant to this query: '%s'\n", query) +
		"Reply 'PASS' if all good, otherwise 'FAIL' with reason.\n" +
		"Response:\n" + formatted
}

// ParseVerdict reads a raw critic reply.
func ParseVerdict(raw string, mode CriticMode) models.Critique {
	c := models.Critique{Raw: raw}
	failed := strings.Contains(raw, verdictFail)
	switch mode {
	case StrictCritic:
		c.Approved = !failed && firstWord(raw) == verdictPass
	default:
		c.Approved = !failed
	}

	switch {
	case failed:
		c.Reason = textAfter(raw, verdictFail)
	case strings.Contains(raw, verdictPass):
		c.Reason = textAfter(raw, verdictPass)
	default:
		c.Reason = strings.TrimSpace(raw)
	}
	return c
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimFunc(fields[0], func(r rune) bool { return !unicode.IsLetter(r) })
}

func textAfter(s, token string) string {
	i := strings.Index(s, token)
	return strings.TrimSpace(strings.TrimLeft(s[i+len(token):], " \t\r\n:*-.'\""))
}

// Critic asks the LLM whether a formatted answer is acceptable.
type Critic struct {
	LLM  provider.Provider
	Mode CriticMode
}

func (c *Critic) Review(ctx context.Context, formatted, query string) (models.Critique, error) {
	raw, err := c.LLM.Generate(ctx, BuildCriticPrompt(formatted, query))
	if err != nil {
		return models.Critique{}, err
	}
	return ParseVerdict(raw, c.Mode), nil
}
