package memory

import (
	"regexp"
	"strings"
	"time"
)

// decayRule pairs a pattern with the class it selects. Rules are evaluated
// in order and the first match wins, so broader patterns must come later.
type decayRule struct {
	class DecayClass
	re    *regexp.Regexp
}

// decayRules is the ordered rule set for decay classification. Identity and
// convention markers outrank everything; session/checkpoint markers only
// apply when nothing longer-lived matched first.
var decayRules = []decayRule{
	{DecayPermanent, regexp.MustCompile(`\b(birthday|name|email|e-mail|phone|address|api[ _-]?key|always|never|decided|decision|convention)\b`)},
	{DecayStable, regexp.MustCompile(`\b(project|repo|repository|team|prefers?|preference|likes?|loves?|hates?|stack|framework|language|library|tool|editor|relationship|friend|partner|wife|husband|colleague)\b`)},
	{DecayActive, regexp.MustCompile(`\b(task|sprint|goal|milestone|deadline|currently|working on|this week|in progress|todo|wip)\b`)},
	{DecaySession, regexp.MustCompile(`\b(debug(ging)?|temporar(y|ily)|right now|for now|just for|this session|today only)\b`)},
	{DecayCheckpoint, regexp.MustCompile(`\b(checkpoint|pre-?flight|before (deploy|deploying|release|releasing)|snapshot)\b`)},
}

// decayTTL maps each decay class to its time-to-live from creation.
// Permanent is absent: permanent facts never expire.
var decayTTL = map[DecayClass]time.Duration{
	DecayStable:     90 * 24 * time.Hour,
	DecayActive:     14 * 24 * time.Hour,
	DecaySession:    24 * time.Hour,
	DecayCheckpoint: 4 * time.Hour,
}

// ClassifyDecay assigns a decay class to a fact from its extracted triple and
// full text. Missing triple parts are treated as empty. Defaults to stable.
func ClassifyDecay(entity, attribute, value, text string) DecayClass {
	blob := strings.ToLower(entity + " " + attribute + " " + value + " " + text)
	for _, rule := range decayRules {
		if rule.re.MatchString(blob) {
			return rule.class
		}
	}
	return DecayStable
}

// TTL returns the time-to-live for a decay class. ok is false for permanent
// (and for unknown classes), meaning the fact never expires.
func TTL(class DecayClass) (time.Duration, bool) {
	d, ok := decayTTL[class]
	return d, ok
}

// Renewable reports whether access-refresh extends this class's lifetime.
// Only stable and active facts are renewed on access.
func Renewable(class DecayClass) bool {
	return class == DecayStable || class == DecayActive
}
