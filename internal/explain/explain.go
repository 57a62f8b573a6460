// Package explain turns raw free-text LLM output into a canonical structured
// explanation. One parser serves every provider: an ordered list of header
// matchers plus a shared keyword fallback, so provider adapters never grow
// their own drifting copies.
package explain

import (
	"errors"
	"regexp"
	"strings"
)

// Explanation is the canonical parsed form of a provider's free-text output.
// The three section fields may be empty but are never absent. Immutable once
// produced.
type Explanation struct {
	SecurityImpact   string   `json:"security_impact"`
	NextSteps        string   `json:"next_steps"`
	RemediationSteps string   `json:"remediation_steps"`
	Commands         []string `json:"commands"`
	Provider         string   `json:"provider_name"`
}

// ErrEmptyInput is returned when there is no text to parse.
var ErrEmptyInput = errors.New("explanation text is empty")

// sections are matched in this fixed order; each header search starts after
// the previous header so a later section cannot capture an earlier span.
var sections = []struct {
	name     string
	matchers []*regexp.Regexp
}{
	{"Security Impact", headerMatchers("security impact")},
	{"Next Steps", headerMatchers("next steps")},
	{"Remediation Steps", headerMatchers("remediation steps")},
}

// headerMatchers returns the bold and plain variants for a section header.
func headerMatchers(name string) []*regexp.Regexp {
	quoted := strings.ReplaceAll(regexp.QuoteMeta(name), ` `, `[ \t]+`)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)\*\*[ \t]*` + quoted + `[ \t]*:?[ \t]*\*\*[ \t]*:?`),
		regexp.MustCompile(`(?i)` + quoted + `[ \t]*:`),
	}
}

var (
	commandRe  = regexp.MustCompile(`(?i)\bcommands?:[ \t]*([^\n]*)`)
	sentenceRe = regexp.MustCompile(`[.!?]\s+|\n+`)
)

// keyword buckets for the no-header fallback classifier.
var (
	impactWords = []string{
		"security", "threat", "vulnerab", "risk", "attack",
		"malicious", "compromise", "breach", "suspicious", "exploit",
	}
	nextWords = []string{
		"should", "must", "recommend", "investigate",
		"review", "check", "verify", "examine",
	}
	remediationWords = []string{
		"fix", "remediate", "mitigate", "prevent",
		"patch", "restrict", "block", "rotate",
	}
)

// Parse converts raw provider output into an Explanation tagged with the
// provider name. It is pure and idempotent: identical input yields identical
// output. It fails only on empty input; everything else produces a (possibly
// partially empty) explanation.
func Parse(raw, provider string) (*Explanation, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	ex := &Explanation{
		Commands: extractCommands(raw),
		Provider: provider,
	}

	found := parseSections(raw, ex)
	if !found {
		classifySentences(raw, ex)
	}

	if ex.SecurityImpact == "" && ex.NextSteps == "" && ex.RemediationSteps == "" {
		roundRobinSentences(raw, ex)
	}

	return ex, nil
}

// extractCommands pulls Command: lines out of the text, cleans markdown
// emphasis, and returns the non-empty survivors in order.
func extractCommands(raw string) []string {
	cmds := []string{}
	for _, m := range commandRe.FindAllStringSubmatch(raw, -1) {
		c := strings.TrimSpace(stripEmphasis(m[1]))
		if c != "" {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

// parseSections locates the three section headers in order and captures the
// span between each header and the next. Reports whether any header matched.
func parseSections(raw string, ex *Explanation) bool {
	type loc struct{ start, end int }
	locs := make([]*loc, len(sections))

	offset := 0
	for i, sec := range sections {
		best := -1
		bestEnd := 0
		for _, re := range sec.matchers {
			if m := re.FindStringIndex(raw[offset:]); m != nil {
				start := offset + m[0]
				if best == -1 || start < best {
					best = start
					bestEnd = offset + m[1]
				}
			}
		}
		if best >= 0 {
			locs[i] = &loc{start: best, end: bestEnd}
			offset = bestEnd
		}
	}

	any := false
	for i := range sections {
		if locs[i] == nil {
			continue
		}
		any = true

		end := len(raw)
		for j := i + 1; j < len(sections); j++ {
			if locs[j] != nil {
				end = locs[j].start
				break
			}
		}

		content := cleanSection(raw[locs[i].end:end])
		switch i {
		case 0:
			ex.SecurityImpact = content
		case 1:
			ex.NextSteps = content
		case 2:
			ex.RemediationSteps = content
		}
	}
	return any
}

// classifySentences is the fallback for conversational output with no
// recognizable headers: sentences are bucketed by keyword, at most two per
// bucket.
func classifySentences(raw string, ex *Explanation) {
	var impact, next, remediation []string
	for _, s := range splitSentences(raw) {
		lower := strings.ToLower(s)
		switch {
		case containsAny(lower, impactWords) && len(impact) < 2:
			impact = append(impact, s)
		case containsAny(lower, nextWords) && len(next) < 2:
			next = append(next, s)
		case containsAny(lower, remediationWords) && len(remediation) < 2:
			remediation = append(remediation, s)
		}
	}
	ex.SecurityImpact = joinSentences(impact)
	ex.NextSteps = joinSentences(next)
	ex.RemediationSteps = joinSentences(remediation)
}

// roundRobinSentences is the last resort: the first up-to-three non-trivial
// sentences are dealt to the sections in order.
func roundRobinSentences(raw string, ex *Explanation) {
	targets := []*string{&ex.SecurityImpact, &ex.NextSteps, &ex.RemediationSteps}
	i := 0
	for _, s := range splitSentences(raw) {
		if i >= len(targets) {
			break
		}
		*targets[i] = s
		i++
	}
}

func splitSentences(raw string) []string {
	var out []string
	for _, s := range sentenceRe.Split(raw, -1) {
		s = strings.TrimSpace(stripEmphasis(s))
		s = strings.TrimRight(s, ".!? \t")
		if len(s) >= 3 {
			out = append(out, s)
		}
	}
	return out
}

func joinSentences(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return strings.Join(ss, ". ")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// cleanSection strips emphasis markers and embedded Command: lines from a
// captured section span.
func cleanSection(s string) string {
	s = commandRe.ReplaceAllString(s, "")
	s = stripEmphasis(s)
	return strings.TrimSpace(s)
}

var emphasisReplacer = strings.NewReplacer("**", "", "__", "", "*", "", "`", "")

func stripEmphasis(s string) string {
	return emphasisReplacer.Replace(s)
}
