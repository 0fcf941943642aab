package memory

import (
	"regexp"
	"strings"
)

// Capture length bounds. MaxCaptureLength in Config can raise or lower the
// upper bound; the lower bound is fixed.
const (
	MinCaptureLength     = 10
	DefaultMaxCaptureLen = 500
)

// injectionPatterns is the hard veto list: text matching any of these is
// never captured, regardless of length or trigger content. It screens for
// instructions to discard prior context, impersonation of privileged message
// roles, and fabricated delimiter tags.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bignore\s+(?:all\s+|any\s+)?(?:previous|prior|earlier|above)\s+(?:instructions?|prompts?|context|messages?)`),
	regexp.MustCompile(`(?i)\bdisregard\s+(?:all\s+|any\s+)?(?:previous|prior|earlier|above)\b`),
	regexp.MustCompile(`(?i)^\s*(?:system|assistant|developer)\s*:`),
	regexp.MustCompile(`(?i)\byou\s+are\s+now\b`),
	regexp.MustCompile(`(?i)\bnew\s+(?:system\s+)?instructions?\s*:`),
	regexp.MustCompile(`(?i)</?\s*(?:system|assistant|instructions?|memor(?:y|ies))\b[^>]*>`),
}

// triggerPatterns is the admission list: text must match at least one to be
// considered memorable. Explicit remember requests, preference and decision
// statements, contact-shaped strings, and absolute/importance markers.
var triggerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:remember|memorize|don'?t\s+forget)\b`),
	regexp.MustCompile(`(?i)\bI\s+(?:really\s+)?(?:prefer|like|love|hate|want|need|use|am|work)\b`),
	regexp.MustCompile(`(?i)\bmy\s+\w+\s+is\b`),
	regexp.MustCompile(`(?i)\bwe\s+(?:decided|chose|agreed|settled)\b`),
	regexp.MustCompile(`[\w.+-]+@[\w-]+\.\w{2,}`),
	regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`),
	regexp.MustCompile(`(?i)\b(?:always|never|important|must|convention)\b`),
}

// openingTagRe matches a markup-like opening tag at the start of the text.
var openingTagRe = regexp.MustCompile(`^\s*<([a-zA-Z][\w-]*)[^>]*>`)

// ShouldCapture decides whether a candidate utterance is persisted.
// maxLen <= 0 uses the default upper bound. The injection screen is a hard
// veto; the trigger screen is the admission criterion.
func ShouldCapture(text string, maxLen int) bool {
	if maxLen <= 0 {
		maxLen = DefaultMaxCaptureLen
	}
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinCaptureLength || len(trimmed) > maxLen {
		return false
	}

	// Self-referential leakage guard: a recalled context block must never be
	// re-captured as a memory.
	if strings.Contains(trimmed, ContextOpen) || strings.Contains(trimmed, ContextClose) {
		return false
	}

	// Markup smuggling guard: an opening tag with its matching close tag.
	if m := openingTagRe.FindStringSubmatch(trimmed); m != nil {
		if strings.Contains(trimmed, "</"+m[1]+">") {
			return false
		}
	}

	for _, re := range injectionPatterns {
		if re.MatchString(trimmed) {
			return false
		}
	}

	for _, re := range triggerPatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// RejectedAsInjection reports whether the text trips the injection screen
// alone. Used by the explicit store path, which skips the trigger criterion
// but still refuses adversarial content.
func RejectedAsInjection(text string) bool {
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
