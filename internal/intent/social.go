package intent

import (
	"context"
	"regexp"
	"strings"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/security"
)

type securityMatcher struct{}

func (securityMatcher) Name() string { return "security" }

func (securityMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if !security.DetectSensitiveDisclosure(u.Text) {
		return domain.CommandResult{}, false
	}
	return domain.CommandResult{
		Action: domain.ActionSecurityAlert,
		Response: u.say(
			"SECURITY ALERT: Sensitive information detected. Do not share passwords or OTPs.",
			"चेतावनी: संवेदनशील जानकारी साझा न करें। यह एक सुरक्षा जोखिम हो सकता है।",
		),
		SpokenResponse: u.say(
			"Security protocol engaged. Potential phishing attempt detected.",
			"चेतावनी। सुरक्षा प्रोटोकॉल सक्रिय। संवेदनशील डेटा साझा न करें।",
		),
		Payload: domain.FailurePayload{Code: "sensitive_disclosure", Kind: domain.ErrorKindSecurity},
	}, true
}

var helpPhrase = regexp.MustCompile(`(?:what|kya)\s+(?:can|sakte)\s+(?:you|tum|aap)\s+(?:do|karo|ho)`)

type helpMatcher struct{}

func (helpMatcher) Name() string { return "help" }

func (helpMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if !containsAny(u.Lower, "help", "madad", "मदद", "commands", "features", "capabilities") &&
		!helpPhrase.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}
	return domain.CommandResult{
		Action: domain.ActionHelp,
		Response: u.say(
			"System Capabilities:\n"+
				"• Navigation: \"Open Google\", \"Go to Twitter\"\n"+
				"• Media: \"Play Iron Man trailer on YouTube\"\n"+
				"• Messaging: \"Send message to Mom saying I'm home\"\n"+
				"• System: \"What time is it?\", \"Volume up\", \"Weather in Delhi\", \"Calculate 5 plus 3\"",
			"उपलब्ध कमांड्स (Capabilities):\n"+
				"• नेविगेशन: \"गूगल खोलो\", \"फेसबुक पर जाओ\"\n"+
				"• मीडिया: \"YouTube पर गाने चलाओ\"\n"+
				"• मैसेजिंग: \"मम्मी को मैसेज भेजो नमस्ते\"\n"+
				"• सिस्टम: \"समय क्या है?\", \"आवाज़ बढ़ाओ\"",
		),
		SpokenResponse: u.say(
			"I can assist with navigation, media, communication, weather updates and calculations. Displaying available command syntax now.",
			"मैं वेब नेविगेशन, मीडिया प्लेबैक, और मैसेजिंग में सहायता कर सकता हूँ। कृपया स्क्रीन पर दी गई सूची देखें।",
		),
	}, true
}

// Social replies are skipped when the utterance is a message request, so
// "send message to mom saying hello" is not answered as a greeting.
var (
	greetingStart   = regexp.MustCompile(`^(?:hello|hi|hey|greetings|namaste|pranam|नमस्ते|प्रणाम)(?:[\s,.!?]|$)`)
	greetingAddress = regexp.MustCompile(`\b(?:hi|hello|hey)\s+jarvis\b`)
	thanksWord      = regexp.MustCompile(`\bthank|\bdhanyavad|\bshukriya|धन्यवाद|शुक्रिया`)
	messagingWord   = regexp.MustCompile(`\b(?:message|msg|text|sandesh|kaho|bolo|whatsapp)\b|मैसेज|संदेश|कहो|व्हाट्सएप`)
)

type greetingMatcher struct{}

func (greetingMatcher) Name() string { return "greeting" }

func (greetingMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if messagingWord.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}
	if !greetingStart.MatchString(u.Lower) && !greetingAddress.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}
	return domain.CommandResult{
		Action:   domain.ActionGreeting,
		Response: u.say("Hello Sir, how can I help you?", "नमस्ते सर, मैं आपकी कैसे मदद कर सकता हूँ?"),
	}, true
}

type thanksMatcher struct{}

func (thanksMatcher) Name() string { return "thanks" }

func (thanksMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if messagingWord.MatchString(u.Lower) || !thanksWord.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}
	return domain.CommandResult{
		Action:   domain.ActionGreeting,
		Response: u.say("You're welcome, Sir.", "आपका स्वागत है सर।"),
	}, true
}

var identityPhrase = regexp.MustCompile(`who\s+are\s+you|(?:tum|aap)\s+(?:kaun|kon)\s+(?:ho|hai)|तुम\s+कौन\s+हो|आप\s+कौन\s+हैं`)

type identityMatcher struct{}

func (identityMatcher) Name() string { return "identity" }

func (identityMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if !identityPhrase.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}
	return domain.CommandResult{
		Action:   domain.ActionIdentity,
		Response: u.say("I am JARVIS, your personal AI assistant.", "मैं JARVIS हूँ, आपका निजी AI सहायक।"),
	}, true
}

func unknownResult(u Utterance) domain.CommandResult {
	return domain.CommandResult{
		Action:   domain.ActionUnknown,
		Response: u.say("I'm sorry, I didn't understand that command.", "क्षमा करें, मुझे समझ नहीं आया।"),
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
