package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/security"
)

// Messaging patterns run case-insensitively over the sanitized text so the
// recipient keeps its spoken casing for the exact-key lookup.
var whatsappPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:send\s+(?:a\s+)?(?:whatsapp\s+)?message|msg|text)\s+to\s+(.+?)(?:\s+(?:saying|that)|\s*:)\s+(.+)`),
	regexp.MustCompile(`(?i)(.+?)\s+(?:ko|se)\s+(?:message|msg|sandesh)\s+(?:bhejo|karo|do)(?:\s+ki|\s+saying)?\s+(.+)`),
	regexp.MustCompile(`(?i)(.+?)\s+(?:ko|se)\s+(?:kaho|bolo)\s+(.+)`),
	regexp.MustCompile(`(.+?)\s+को\s+मैसेज\s+भेजो\s+(.+)`),
	regexp.MustCompile(`(.+?)\s+को\s+कहो\s+(.+)`),
	regexp.MustCompile(`व्हाट्सएप\s+पर\s+(.+?)\s+को\s+संदेश\s+दो\s+(.+)`),
}

var recipientPrefix = regexp.MustCompile(`(?i)^(?:(?:please|jarvis)\s+)*(?:(?:whatsapp|व्हाट्सएप)\s+(?:par|pe|पर)\s+)?`)

type whatsappMatcher struct {
	contacts ports.ContactDirectory
}

func (whatsappMatcher) Name() string { return "whatsapp" }

func (w whatsappMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	recipient, message, ok := extractMessage(u.Text)
	if !ok {
		return domain.CommandResult{}, false
	}

	number, found := w.lookup(recipient)
	if !found {
		return domain.CommandResult{
			Action: domain.ActionError,
			Response: u.say(
				fmt.Sprintf("Contact '%s' not found in database.", recipient),
				fmt.Sprintf("संपर्क सूची में '%s' नहीं मिला।", recipient),
			),
			Payload: domain.FailurePayload{Code: domain.FailureContactNotFound, Kind: domain.ErrorKindValidation, Subject: recipient},
		}, true
	}

	if !security.ValidatePhoneNumber(number) {
		return domain.CommandResult{
			Action: domain.ActionError,
			Response: u.say(
				fmt.Sprintf("Error: Contact number for %s is invalid.", recipient),
				fmt.Sprintf("त्रुटि: संपर्क %s का नंबर अमान्य प्रारूप में है।", recipient),
			),
			Payload: domain.FailurePayload{Code: domain.FailureInvalidNumber, Kind: domain.ErrorKindValidation, Subject: recipient},
		}, true
	}

	dial := security.DialString(number)
	return domain.CommandResult{
		Action: domain.ActionWhatsApp,
		Response: u.say(
			fmt.Sprintf("Opening WhatsApp. Messaging %s: \"%s\"", recipient, message),
			fmt.Sprintf("WhatsApp खोल रहा हूँ। %s को संदेश: \"%s\"", recipient, message),
		),
		ExternalURL: "https://wa.me/" + dial + "?text=" + encodeComponent(message),
		Payload:     domain.WhatsAppPayload{Recipient: recipient, Number: dial, Message: message},
	}, true
}

// lookup tries the spoken name, then its lowercase form.
func (w whatsappMatcher) lookup(name string) (string, bool) {
	if w.contacts == nil {
		return "", false
	}
	if number, ok := w.contacts.Lookup(name); ok {
		return number, true
	}
	if lower := strings.ToLower(name); lower != name {
		return w.contacts.Lookup(lower)
	}
	return "", false
}

func extractMessage(text string) (recipient, message string, ok bool) {
	for _, p := range whatsappPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		recipient = strings.TrimSpace(recipientPrefix.ReplaceAllString(strings.TrimSpace(m[1]), ""))
		message = strings.Trim(strings.TrimSpace(m[2]), `"'`)
		if recipient != "" && message != "" {
			return recipient, message, true
		}
	}
	return "", "", false
}
