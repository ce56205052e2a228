package intent

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
)

type mapDirectory map[string]string

func (d mapDirectory) Lookup(name string) (string, bool) {
	number, ok := d[name]
	return number, ok
}

type stubFallback struct {
	reply string
	err   error
	calls int
	last  domain.Language
}

func (s *stubFallback) Complete(_ context.Context, _ string, lang domain.Language) (string, error) {
	s.calls++
	s.last = lang
	return s.reply, s.err
}

func (s *stubFallback) Model() string { return "stub-model" }

var fixedNow = time.Date(2024, time.March, 4, 15, 7, 0, 0, time.UTC)

func newTestCascade(contacts mapDirectory, fallback *stubFallback) *Cascade {
	var fb ports.ConversationalFallback
	if fallback != nil {
		fb = fallback
	}
	return NewCascade(contacts, fb,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
		WithRand(rand.New(rand.NewSource(1))),
	)
}

func TestCascade_MatcherOrder(t *testing.T) {
	c := newTestCascade(nil, nil)
	want := []string{
		"security", "help", "greeting", "thanks", "identity", "navigation", "youtube",
		"whatsapp", "time", "date", "weather", "calculator", "volume", "fallback",
	}
	got := c.Matchers()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected matcher order %v, got %v", want, got)
	}
}

func TestCascade_Actions(t *testing.T) {
	c := newTestCascade(mapDirectory{"mom": "15551234567"}, nil)

	tests := []struct {
		name   string
		input  string
		action domain.ActionType
		lang   domain.Language
	}{
		{"time", "what time is it", domain.ActionTime, domain.LanguageEnglish},
		{"time hinglish", "kya samay hai", domain.ActionTime, domain.LanguageHindi},
		{"date", "what is the date", domain.ActionDate, domain.LanguageEnglish},
		{"greeting", "hello", domain.ActionGreeting, domain.LanguageEnglish},
		{"greeting devanagari", "नमस्ते", domain.ActionGreeting, domain.LanguageHindi},
		{"thanks", "thank you jarvis", domain.ActionGreeting, domain.LanguageEnglish},
		{"identity", "who are you", domain.ActionIdentity, domain.LanguageEnglish},
		{"identity hinglish", "tum kaun ho", domain.ActionIdentity, domain.LanguageHindi},
		{"help", "what can you do", domain.ActionHelp, domain.LanguageEnglish},
		{"navigation", "open twitter", domain.ActionNavigation, domain.LanguageEnglish},
		{"navigation hinglish", "google kholo", domain.ActionNavigation, domain.LanguageHindi},
		{"youtube", "play despacito on youtube", domain.ActionYouTube, domain.LanguageEnglish},
		{"weather", "weather in delhi", domain.ActionWeather, domain.LanguageEnglish},
		{"weather hinglish", "mumbai ka mausam", domain.ActionWeather, domain.LanguageHindi},
		{"calculator", "5 plus 3", domain.ActionCalculator, domain.LanguageEnglish},
		{"volume up", "volume up", domain.ActionVolumeUp, domain.LanguageEnglish},
		{"volume down hinglish", "aawaz kam karo", domain.ActionVolumeDown, domain.LanguageHindi},
		{"unknown", "blorp zib", domain.ActionUnknown, domain.LanguageEnglish},
		{"empty", "   ", domain.ActionUnknown, domain.LanguageEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Interpret(context.Background(), tt.input)
			if result.Action != tt.action {
				t.Errorf("Expected action %s for %q, got %s (%q)", tt.action, tt.input, result.Action, result.Response)
			}
			if result.Language != tt.lang {
				t.Errorf("Expected language %s for %q, got %s", tt.lang, tt.input, result.Language)
			}
			if result.ID == "" {
				t.Error("Expected result ID to be set")
			}
			if result.Response == "" {
				t.Error("Expected non-empty response")
			}
			if !result.Action.OpensExternal() && result.ExternalURL != "" {
				t.Errorf("Expected no external URL for %s, got %q", result.Action, result.ExternalURL)
			}
		})
	}
}

func TestCascade_TimeResponse(t *testing.T) {
	c := newTestCascade(nil, nil)

	result := c.Interpret(context.Background(), "what time is it")
	if !strings.Contains(result.Response, "03:07 PM") {
		t.Errorf("Expected response to contain 03:07 PM, got %q", result.Response)
	}
	if !result.Timestamp.Equal(fixedNow) {
		t.Errorf("Expected timestamp %v, got %v", fixedNow, result.Timestamp)
	}
}

func TestCascade_TimeWordBoundaries(t *testing.T) {
	c := newTestCascade(nil, nil)

	if result := c.Interpret(context.Background(), "4 times 6"); result.Action != domain.ActionCalculator {
		t.Errorf("Expected CALCULATOR for \"4 times 6\", got %s", result.Action)
	}
}

func TestCascade_DateHindi(t *testing.T) {
	c := newTestCascade(nil, nil)

	result := c.Interpret(context.Background(), "आज की तारीख क्या है")
	if result.Action != domain.ActionDate {
		t.Fatalf("Expected DATE, got %s", result.Action)
	}
	if !strings.Contains(result.Response, "सोमवार") || !strings.Contains(result.Response, "मार्च") {
		t.Errorf("Expected Hindi weekday and month, got %q", result.Response)
	}
}

func TestCascade_Calculator(t *testing.T) {
	c := newTestCascade(nil, nil)

	tests := []struct {
		input string
		value float64
		shown string
	}{
		{"5 plus 3", 8, "8"},
		{"10 bhag 2", 5, "5"},
		{"9 minus 12", -3, "-3"},
		{"7 guna 6", 42, "42"},
		{"10 divided by 4", 2.5, "2.5"},
		{"10 / 3", 10.0 / 3.0, "3.3333"},
		{"calculate 2*21", 42, "42"},
	}

	for _, tt := range tests {
		result := c.Interpret(context.Background(), tt.input)
		if result.Action != domain.ActionCalculator {
			t.Errorf("Expected CALCULATOR for %q, got %s", tt.input, result.Action)
			continue
		}
		payload, ok := result.Payload.(domain.CalculationPayload)
		if !ok {
			t.Errorf("Expected CalculationPayload for %q, got %T", tt.input, result.Payload)
			continue
		}
		if payload.Value != tt.value {
			t.Errorf("Expected value %v for %q, got %v", tt.value, tt.input, payload.Value)
		}
		if !strings.Contains(result.Response, tt.shown) {
			t.Errorf("Expected response to contain %q, got %q", tt.shown, result.Response)
		}
	}
}

func TestCascade_DivisionByZero(t *testing.T) {
	c := newTestCascade(nil, nil)

	result := c.Interpret(context.Background(), "8 divided by 0")
	if result.Action != domain.ActionError {
		t.Fatalf("Expected ERROR, got %s", result.Action)
	}
	failure, ok := result.Payload.(domain.FailurePayload)
	if !ok || failure.Code != domain.FailureDivisionByZero {
		t.Errorf("Expected division_by_zero failure, got %#v", result.Payload)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		8:          "8",
		2.5:        "2.5",
		1.0 / 3.0:  "0.3333",
		2.0 / 3.0:  "0.6667",
		-0.00001:   "0",
		1234.50000: "1234.5",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("Expected FormatNumber(%v) = %q, got %q", in, want, got)
		}
	}
}

func TestCascade_NavigationURL(t *testing.T) {
	c := newTestCascade(nil, nil)

	tests := []struct {
		input string
		url   string
	}{
		{"open twitter", "https://www.twitter.com"},
		{"go to github dot com", "https://www.github.com"},
		{"visit the website wikipedia dot org", "https://www.wikipedia.org"},
		{"open stack overflow please", "https://www.stackoverflow.com"},
		{"amazon kholo", "https://www.amazon.com"},
	}

	for _, tt := range tests {
		result := c.Interpret(context.Background(), tt.input)
		if result.Action != domain.ActionNavigation {
			t.Errorf("Expected NAVIGATION for %q, got %s", tt.input, result.Action)
			continue
		}
		if result.ExternalURL != tt.url {
			t.Errorf("Expected URL %q for %q, got %q", tt.url, tt.input, result.ExternalURL)
		}
	}
}

func TestCascade_NavigationYieldsToSpecificMatchers(t *testing.T) {
	c := newTestCascade(mapDirectory{"mom": "15551234567"}, nil)

	if result := c.Interpret(context.Background(), "open youtube and play lofi on youtube"); result.Action == domain.ActionNavigation {
		t.Errorf("Expected navigation to yield to youtube marker, got %s", result.Action)
	}
	if result := c.Interpret(context.Background(), "open whatsapp"); result.Action == domain.ActionNavigation {
		t.Errorf("Expected navigation to yield to whatsapp marker, got %s", result.Action)
	}
}

func TestCascade_YouTubeURL(t *testing.T) {
	c := newTestCascade(nil, nil)

	result := c.Interpret(context.Background(), "play despacito on youtube")
	if result.ExternalURL != "https://www.youtube.com/results?search_query=despacito" {
		t.Errorf("Expected despacito search URL, got %q", result.ExternalURL)
	}

	result = c.Interpret(context.Background(), "search iron man trailer on youtube")
	if !strings.HasSuffix(result.ExternalURL, "search_query=iron%20man%20trailer") {
		t.Errorf("Expected percent-encoded spaces, got %q", result.ExternalURL)
	}

	result = c.Interpret(context.Background(), "arijit songs youtube par chalao")
	if result.Action != domain.ActionYouTube {
		t.Errorf("Expected YOUTUBE for Hinglish phrasing, got %s", result.Action)
	}
}

func TestCascade_WhatsApp(t *testing.T) {
	c := newTestCascade(mapDirectory{"mom": "15551234567", "Raj": "+919876543210", "broken": "12ab"}, nil)

	result := c.Interpret(context.Background(), "send message to mom saying hello")
	if result.Action != domain.ActionWhatsApp {
		t.Fatalf("Expected WHATSAPP, got %s (%q)", result.Action, result.Response)
	}
	if result.ExternalURL != "https://wa.me/15551234567?text=hello" {
		t.Errorf("Expected wa.me URL, got %q", result.ExternalURL)
	}

	result = c.Interpret(context.Background(), "Send message to Mom saying I am home")
	if result.ExternalURL != "https://wa.me/15551234567?text=I%20am%20home" {
		t.Errorf("Expected case-insensitive lookup and encoded text, got %q", result.ExternalURL)
	}
	payload, ok := result.Payload.(domain.WhatsAppPayload)
	if !ok || payload.Recipient != "Mom" {
		t.Errorf("Expected recipient Mom, got %#v", result.Payload)
	}

	result = c.Interpret(context.Background(), "Raj ko message bhejo ki kal milte hain")
	if result.Action != domain.ActionWhatsApp {
		t.Fatalf("Expected WHATSAPP for Hinglish phrasing, got %s (%q)", result.Action, result.Response)
	}
	if !strings.HasPrefix(result.ExternalURL, "https://wa.me/919876543210?text=") {
		t.Errorf("Expected leading plus stripped, got %q", result.ExternalURL)
	}
	if result.Language != domain.LanguageHindi {
		t.Errorf("Expected hi, got %s", result.Language)
	}
}

func TestCascade_WhatsAppFailures(t *testing.T) {
	c := newTestCascade(mapDirectory{}, nil)

	result := c.Interpret(context.Background(), "send message to unknownperson saying hi")
	if result.Action != domain.ActionError {
		t.Fatalf("Expected ERROR, got %s", result.Action)
	}
	if result.ExternalURL != "" {
		t.Errorf("Expected no URL, got %q", result.ExternalURL)
	}
	if failure, ok := result.Payload.(domain.FailurePayload); !ok || failure.Code != domain.FailureContactNotFound {
		t.Errorf("Expected contact_not_found, got %#v", result.Payload)
	}

	c = newTestCascade(mapDirectory{"bob": "0123"}, nil)
	result = c.Interpret(context.Background(), "send message to bob saying hi")
	if failure, ok := result.Payload.(domain.FailurePayload); !ok || failure.Code != domain.FailureInvalidNumber {
		t.Errorf("Expected invalid_number, got %#v", result.Payload)
	}
	if result.ExternalURL != "" {
		t.Errorf("Expected no URL, got %q", result.ExternalURL)
	}
}

func TestCascade_SecurityAlertWins(t *testing.T) {
	c := newTestCascade(mapDirectory{"mom": "15551234567"}, nil)

	inputs := []string{
		"my password is 1234",
		"open google my password is 1234",
		"send message to mom saying my otp is 998877",
		"mera password hai abc",
	}
	for _, input := range inputs {
		result := c.Interpret(context.Background(), input)
		if result.Action != domain.ActionSecurityAlert {
			t.Errorf("Expected SECURITY_ALERT for %q, got %s", input, result.Action)
		}
		if result.ExternalURL != "" {
			t.Errorf("Expected no URL for %q, got %q", input, result.ExternalURL)
		}
		if result.SpokenResponse == "" {
			t.Errorf("Expected spoken override for %q", input)
		}
	}
}

func TestCascade_WeatherMock(t *testing.T) {
	c := newTestCascade(nil, nil)

	for i := 0; i < 50; i++ {
		result := c.Interpret(context.Background(), "what is the weather in pune")
		payload, ok := result.Payload.(domain.WeatherPayload)
		if !ok {
			t.Fatalf("Expected WeatherPayload, got %T", result.Payload)
		}
		if payload.TemperatureC < 20 || payload.TemperatureC >= 35 {
			t.Errorf("Expected temperature in [20,35), got %d", payload.TemperatureC)
		}
		if payload.Location != "Pune" {
			t.Errorf("Expected location Pune, got %q", payload.Location)
		}
		if !payload.Mock {
			t.Error("Expected mock flag")
		}
	}

	result := c.Interpret(context.Background(), "weather today")
	if payload := result.Payload.(domain.WeatherPayload); payload.Location != "your location" {
		t.Errorf("Expected default location, got %q", payload.Location)
	}
}

func TestCascade_VolumeNeedsNoun(t *testing.T) {
	c := newTestCascade(nil, nil)

	if result := c.Interpret(context.Background(), "turn it up"); result.Action == domain.ActionVolumeUp {
		t.Error("Expected direction alone not to match volume")
	}
	result := c.Interpret(context.Background(), "आवाज़ बढ़ाओ")
	if result.Action != domain.ActionVolumeUp {
		t.Errorf("Expected VOLUME_UP for Devanagari, got %s", result.Action)
	}
	if payload, ok := result.Payload.(domain.VolumePayload); !ok || payload.Delta != 10 {
		t.Errorf("Expected delta 10, got %#v", result.Payload)
	}
}

func TestCascade_Fallback(t *testing.T) {
	fb := &stubFallback{reply: "Sure, Sir."}
	c := newTestCascade(nil, fb)

	result := c.Interpret(context.Background(), "tell me a joke about robots")
	if result.Action != domain.ActionConversation {
		t.Fatalf("Expected CONVERSATION, got %s", result.Action)
	}
	if result.Response != "Sure, Sir." {
		t.Errorf("Expected fallback reply, got %q", result.Response)
	}
	if payload, ok := result.Payload.(domain.ConversationPayload); !ok || payload.Model != "stub-model" {
		t.Errorf("Expected model stub-model, got %#v", result.Payload)
	}
	if fb.calls != 1 {
		t.Errorf("Expected exactly 1 fallback call, got %d", fb.calls)
	}

	c.Interpret(context.Background(), "mujhe ek kahani sunao")
	if fb.last != domain.LanguageHindi {
		t.Errorf("Expected fallback language hi, got %s", fb.last)
	}
}

func TestCascade_FallbackFailureIsUnknown(t *testing.T) {
	fb := &stubFallback{err: errors.New("connection refused")}
	c := newTestCascade(nil, fb)

	result := c.Interpret(context.Background(), "tell me a joke about robots")
	if result.Action != domain.ActionUnknown {
		t.Errorf("Expected UNKNOWN, got %s", result.Action)
	}
	if strings.Contains(result.Response, "connection refused") {
		t.Errorf("Expected raw error to be hidden, got %q", result.Response)
	}

	fb = &stubFallback{}
	c = newTestCascade(nil, fb)
	result = c.Interpret(context.Background(), "tell me a joke about robots")
	if result.Action != domain.ActionConversation || result.Response == "" {
		t.Errorf("Expected canned CONVERSATION reply for empty completion, got %s %q", result.Action, result.Response)
	}
}

type panicMatcher struct{}

func (panicMatcher) Name() string { return "panic" }

func (panicMatcher) Match(context.Context, Utterance) (domain.CommandResult, bool) {
	panic("boom")
}

func TestCascade_MatcherPanicIsContained(t *testing.T) {
	c := NewCascadeWith([]Matcher{panicMatcher{}, identityMatcher{}})

	result := c.Interpret(context.Background(), "who are you")
	if result.Action != domain.ActionIdentity {
		t.Errorf("Expected IDENTITY after panicking matcher, got %s", result.Action)
	}
}

func TestCascade_SanitizesTranscript(t *testing.T) {
	c := newTestCascade(nil, nil)

	result := c.Interpret(context.Background(), "<b>open</b>   twitter")
	if result.Transcript != "open twitter" {
		t.Errorf("Expected sanitized transcript, got %q", result.Transcript)
	}
	if result.ExternalURL != "https://www.twitter.com" {
		t.Errorf("Expected twitter URL, got %q", result.ExternalURL)
	}
}
