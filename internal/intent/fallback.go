package intent

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
)

// fallbackMatcher always matches. It hands the utterance to the
// conversational model when one is configured.
type fallbackMatcher struct {
	fallback ports.ConversationalFallback
	logger   zerolog.Logger
}

func (fallbackMatcher) Name() string { return "fallback" }

func (f fallbackMatcher) Match(ctx context.Context, u Utterance) (domain.CommandResult, bool) {
	if f.fallback == nil {
		return unknownResult(u), true
	}

	reply, err := f.fallback.Complete(ctx, u.Text, u.Language)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Conversational fallback failed")
		result := unknownResult(u)
		result.Payload = domain.FailurePayload{Code: "fallback_unavailable", Kind: domain.ErrorKindTransport}
		return result, true
	}

	var model string
	if named, ok := f.fallback.(interface{ Model() string }); ok {
		model = named.Model()
	}
	if reply == "" {
		return domain.CommandResult{
			Action:   domain.ActionConversation,
			Response: u.say("I am unable to respond at the moment.", "क्षमा करें, मैं अभी उत्तर नहीं दे सकता।"),
			Payload:  domain.ConversationPayload{Model: model},
		}, true
	}
	return domain.CommandResult{
		Action:   domain.ActionConversation,
		Response: reply,
		Payload:  domain.ConversationPayload{Model: model},
	}, true
}
