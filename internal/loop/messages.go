package loop

import (
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

var criticalMessages = map[domain.CaptureError]struct{ en, hi string }{
	domain.CaptureErrorNotAllowed: {
		en: "ACCESS DENIED. Microphone permissions required.",
		hi: "एक्सेस अस्वीकार। माइक्रोफ़ोन अनुमति की आवश्यकता है।",
	},
	domain.CaptureErrorNotSupported: {
		en: "Browser not supported. Use Chrome or Edge.",
		hi: "ब्राउज़र समर्थित नहीं है। कृपया क्रोम या एज का उपयोग करें।",
	},
	domain.CaptureErrorNetwork: {
		en: "Network error. Checking connectivity...",
		hi: "नेटवर्क त्रुटि। कनेक्टिविटी की जांच कर रहा हूँ...",
	},
	domain.CaptureErrorAudioCapture: {
		en: "Audio capture failed. Check microphone.",
		hi: "ऑडियो कैप्चर विफल। माइक्रोफ़ोन की जांच करें।",
	},
	domain.CaptureErrorStartFailed: {
		en: "Initialization failed. Please refresh page.",
		hi: "आरंभ करने में विफल। कृपया पेज रिफ्रेश करें।",
	},
}

// CriticalMessage is the localized text spoken when capture fails for good.
// Codes outside the known set are echoed back.
func CriticalMessage(code string, lang domain.Language) string {
	if m, ok := criticalMessages[domain.CaptureError(code)]; ok {
		if lang == domain.LanguageHindi {
			return m.hi
		}
		return m.en
	}
	if lang == domain.LanguageHindi {
		return "सिस्टम त्रुटि: " + code
	}
	return "System Error: " + code
}
