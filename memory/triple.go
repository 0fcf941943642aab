package memory

import (
	"regexp"
	"strings"
)

// Triple is an (entity, attribute, value) decomposition of a statement.
// Any subset of the fields may be empty.
type Triple struct {
	Entity    string
	Attribute string
	Value     string
}

var (
	possessiveRe = regexp.MustCompile(`(?i)^\s*([\w][\w .@-]*?)'s\s+([\w][\w -]*?)\s+is\s+(.+?)\s*\.?\s*$`)
	preferenceRe = regexp.MustCompile(`(?i)\bI\s+(?:really\s+)?(?:prefer|like|love|hate|want)\s+(.+?)\s*\.?\s*$`)
	decisionRe   = regexp.MustCompile(`(?i)\bwe\s+(?:decided|chose)\s+to\s+(?:use\s+)?(.+?)(?:\s+(?:because|for)\s+(.+?))?\s*\.?\s*$`)
	conventionRe = regexp.MustCompile(`(?i)\b(always|never)\s+(.+?)\s*\.?\s*$`)
)

// ExtractTriple tries an ordered list of natural-language patterns and
// returns the first match: possessive form ("X's Y is Z"), first-person
// preference, collective decision, and absolute convention. No match yields
// a zero Triple and false.
func ExtractTriple(text string) (Triple, bool) {
	if m := possessiveRe.FindStringSubmatch(text); m != nil {
		return Triple{
			Entity:    strings.TrimSpace(m[1]),
			Attribute: strings.ToLower(strings.TrimSpace(m[2])),
			Value:     strings.TrimSpace(m[3]),
		}, true
	}
	if m := preferenceRe.FindStringSubmatch(text); m != nil {
		return Triple{
			Entity:    "user",
			Attribute: "prefer",
			Value:     strings.TrimSpace(m[1]),
		}, true
	}
	if m := decisionRe.FindStringSubmatch(text); m != nil {
		return Triple{
			Entity:    "decision",
			Attribute: strings.TrimSpace(m[1]),
			Value:     strings.TrimSpace(m[2]),
		}, true
	}
	if m := conventionRe.FindStringSubmatch(text); m != nil {
		return Triple{
			Entity:    "convention",
			Attribute: strings.TrimSpace(m[2]),
			Value:     strings.ToLower(m[1]),
		}, true
	}
	return Triple{}, false
}
