package llm

import (
	"regexp"
	"strings"
)

// ReasoningFilter removes private reasoning blocks such as <think>...</think>
// so that only user-facing text is surfaced.
type ReasoningFilter struct {
	closed   *regexp.Regexp // complete blocks
	unclosed *regexp.Regexp // an opening tag with no matching close
	orphan   *regexp.Regexp // a close tag whose opening tag was never emitted
}

// NewReasoningFilter builds a filter for the given tag name. An empty tag
// defaults to "think".
func NewReasoningFilter(tag string) *ReasoningFilter {
	if tag == "" {
		tag = "think"
	}
	t := regexp.QuoteMeta(tag)
	return &ReasoningFilter{
		closed:   regexp.MustCompile(`(?is)<` + t + `(?:\s[^>]*)?>.*?</` + t + `\s*>`),
		unclosed: regexp.MustCompile(`(?is)<` + t + `(?:\s[^>]*)?>.*$`),
		orphan:   regexp.MustCompile(`(?is)^.*</` + t + `\s*>`),
	}
}

// Strip returns text with reasoning removed and surrounding whitespace trimmed.
func (f *ReasoningFilter) Strip(text string) string {
	text = f.closed.ReplaceAllString(text, "")
	text = f.orphan.ReplaceAllString(text, "")
	text = f.unclosed.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
