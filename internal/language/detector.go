package language

import (
	"regexp"
	"strings"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

// Romanized Hindi markers. The two sets are disjoint; "open" is scored as
// English only.
var hindiKeywords = toSet(
	"kholo", "band", "karo", "chalao", "bhejo", "kaun", "kya", "hai", "samay",
	"tareekh", "din", "aaj", "kal", "suno", "sun", "raha", "hu", "mujhe", "tum", "aap",
	"namaste", "shukriya", "dhanyavad", "kaise", "madad", "sakte", "ho", "btao", "batao",
	"dekhna", "ruko", "dheere", "tez", "badhao", "kam", "aawaz", "par", "ko", "me",
	"se", "ka", "ki", "aur", "kahan", "kab", "kyu",
	"mausam", "tapman", "garmi", "sardi", "hisab", "jodo", "ghatao", "guna", "bhag",
)

var englishKeywords = toSet(
	"open", "close", "play", "send", "message", "tell", "what", "is", "the", "time", "date",
	"today", "who", "are", "you", "hello", "hi", "thank", "thanks", "help", "commands", "features", "list",
	"search", "volume", "increase", "decrease", "navigate", "go", "to", "for", "on",
	"can", "please", "start", "stop", "weather", "temperature", "forecast", "calculate", "solve", "math",
	"plus", "minus", "times", "divided",
)

var punctuation = regexp.MustCompile(`[^\w\s]`)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Detector classifies utterances as English or Hindi.
type Detector struct{}

// NewDetector creates a language detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns hi for any Devanagari text, otherwise the language whose
// keyword score is strictly higher. Ties default to en.
func (d *Detector) Detect(text string) domain.Language {
	if HasDevanagari(text) {
		return domain.LanguageHindi
	}

	tokens := strings.Fields(punctuation.ReplaceAllString(strings.ToLower(text), ""))

	hiScore, enScore := 0, 0
	for _, t := range tokens {
		if _, ok := hindiKeywords[t]; ok {
			hiScore++
		}
		if _, ok := englishKeywords[t]; ok {
			enScore++
		}
	}

	if hiScore > enScore {
		return domain.LanguageHindi
	}
	return domain.LanguageEnglish
}

// HasDevanagari reports whether text contains a codepoint in U+0900..U+097F.
func HasDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}
