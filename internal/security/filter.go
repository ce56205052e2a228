package security

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxUtteranceRunes bounds the length of a sanitized utterance.
const MaxUtteranceRunes = 500

var (
	markupTag    = regexp.MustCompile(`<[^<>]*>`)
	scriptScheme = regexp.MustCompile(`(?i)(?:javascript|vbscript|data)\s*:`)
	// Invisible characters that reorder or hide text. ZWJ and ZWNJ are kept
	// because Devanagari spelling depends on them.
	invisible = strings.NewReplacer(
		"\u200b", "", "\ufeff", "",
		"\u202a", "", "\u202b", "", "\u202c", "", "\u202d", "", "\u202e", "",
		"\u2066", "", "\u2067", "", "\u2068", "", "\u2069", "",
	)
	forbidden = strings.NewReplacer("<", "", ">", "", "`", "", "{", "", "}", "", "\\", "")
)

// Sanitize removes markup, script schemes, control and invisible characters,
// normalizes to NFC and collapses whitespace. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, text)
	s = invisible.Replace(s)
	s = replaceUntilStable(markupTag, s)
	s = forbidden.Replace(s)
	s = replaceUntilStable(scriptScheme, s)
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")

	if runes := []rune(s); len(runes) > MaxUtteranceRunes {
		s = strings.TrimSpace(string(runes[:MaxUtteranceRunes]))
	}
	return s
}

func replaceUntilStable(re *regexp.Regexp, s string) string {
	for {
		next := re.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:password|passcode|passwd|pin|upi pin|atm pin|otp|one time password|cvv|cvc)\s*(?:is|was|:|=|hai|he)\s*\S+`),
	regexp.MustCompile(`\b(?:my|mera|meri)\s+(?:password|passcode|pin|otp|cvv)\b`),
	regexp.MustCompile(`\b(?:credit|debit|atm)\s+card\s+(?:number|no|details)\b`),
	regexp.MustCompile(`\b(?:bank\s+)?account\s+(?:number|no)\s*(?:is|:|hai)`),
	regexp.MustCompile(`\b(?:share|send|tell|give|bhejo|batao|do)\s+(?:your|my|apna|mera)?\s*(?:otp|password|pin|cvv)\b`),
	regexp.MustCompile(`\b(?:otp|password|pin|cvv)\s+(?:share|bhejo|batao|bata\s+do)\b`),
	regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
	regexp.MustCompile(`(?:पासवर्ड|ओटीपी|पिन|सीवीवी)`),
	regexp.MustCompile(`(?:कार्ड|खाता)\s+(?:नंबर|संख्या)`),
}

// DetectSensitiveDisclosure reports whether text discloses or asks for a
// password, OTP, PIN or financial credential.
func DetectSensitiveDisclosure(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range sensitivePatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// ValidatePhoneNumber accepts an optional leading '+' followed by 10 to 15
// digits with a non-zero country code.
func ValidatePhoneNumber(number string) bool {
	digits := strings.TrimPrefix(number, "+")
	if len(digits) < 10 || len(digits) > 15 || digits[0] == '0' {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DialString returns number in the form used by wa.me links.
func DialString(number string) string {
	return strings.TrimPrefix(number, "+")
}
