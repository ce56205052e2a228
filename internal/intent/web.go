package intent

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

var navigationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:open|go to|navigate to|visit)\s+(.+)`),
	regexp.MustCompile(`(.+)\s+(?:kho\s*lo|open karo|par jao|par jaiye|chalo)`),
	regexp.MustCompile(`(.+)\s+(?:खोलो|पर जाओ|ओपन करो)`),
	regexp.MustCompile(`(?:वेबसाइट खोलो|website kholo)\s+(.+)`),
}

// navigationExclusions are literal markers of the more specific media and
// messaging matchers. The check is a plain substring test over the whole
// utterance, so a site whose name contains one of them cannot be opened by
// navigation.
var navigationExclusions = []string{"youtube", "whatsapp", "message", "यूट्यूब", "व्हाट्सएप", "मैसेज", "संदेश"}

var (
	dotCom        = regexp.MustCompile(`\s*\b(?:dot|daat)\s+(?:com|kaam)\b`)
	spokenDot     = regexp.MustCompile(`\s+dot\s+`)
	websiteWord   = regexp.MustCompile(`\b(?:website|vebsite)\b|वेबसाइट`)
	siteFillers   = toSet("the", "a", "an", "my", "please", "karo", "kholo", "open", "jarvis", "site", "page", "ko", "par", "jao", "now", "abhi", "zara", "pls")
	trailingMarks = ".,!?।"
)

type navigationMatcher struct{}

func (navigationMatcher) Name() string { return "navigation" }

func (navigationMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if containsAny(u.Lower, navigationExclusions...) {
		return domain.CommandResult{}, false
	}
	for _, p := range navigationPatterns {
		m := p.FindStringSubmatch(u.Lower)
		if m == nil {
			continue
		}
		site, ok := normalizeSite(m[1])
		if !ok {
			continue
		}
		return domain.CommandResult{
			Action:      domain.ActionNavigation,
			Response:    u.say("Opening "+site+".", site+" खोल रहा हूँ।"),
			ExternalURL: "https://www." + site,
			Payload:     domain.NavigationPayload{Site: site},
		}, true
	}
	return domain.CommandResult{}, false
}

// normalizeSite turns a spoken site name into a host name.
func normalizeSite(raw string) (string, bool) {
	s := strings.TrimRight(strings.TrimSpace(raw), trailingMarks)
	s = dotCom.ReplaceAllString(s, ".com")
	s = spokenDot.ReplaceAllString(s, ".")
	s = websiteWord.ReplaceAllString(s, "")

	tokens := strings.Fields(s)
	for len(tokens) > 0 && isFiller(tokens[0]) {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && isFiller(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}

	site := strings.Join(tokens, "")
	for _, prefix := range []string{"https://", "http://", "www."} {
		site = strings.TrimPrefix(site, prefix)
	}
	site = strings.Trim(site, trailingMarks)
	if site == "" {
		return "", false
	}
	if !strings.Contains(site, ".") {
		site += ".com"
	}
	return site, true
}

func isFiller(token string) bool {
	_, ok := siteFillers[token]
	return ok
}

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:play|search|watch)\s+(.+?)\s+(?:on|in)\s+youtube`),
	regexp.MustCompile(`(.+?)\s+(?:ko|ka)?\s*(?:youtube\s+(?:par|pe)|on\s+youtube)\s+(?:chalao|dekho|dekhna|play|search)`),
	regexp.MustCompile(`(?:youtube\s+(?:par|pe)|on\s+youtube)\s+(.+?)\s+(?:chalao|dekho|search|dhoondo)`),
	regexp.MustCompile(`(.+)\s+(?:चलाओ|chalao)\s+(?:youtube\s+par|यूट्यूब\s+पर)`),
	regexp.MustCompile(`(?:youtube\s+par|यूट्यूब\s+पर)\s+(.+)\s+(?:search|सर्च|dekhna)`),
}

type youtubeMatcher struct{}

func (youtubeMatcher) Name() string { return "youtube" }

func (youtubeMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	for _, p := range youtubePatterns {
		m := p.FindStringSubmatch(u.Lower)
		if m == nil {
			continue
		}
		query := strings.TrimSpace(m[1])
		if query == "" {
			continue
		}
		return domain.CommandResult{
			Action:      domain.ActionYouTube,
			Response:    u.say("Searching for "+query+" on YouTube.", "YouTube पर "+query+" खोज रहा हूँ।"),
			ExternalURL: "https://www.youtube.com/results?search_query=" + encodeComponent(query),
			Payload:     domain.YouTubePayload{Query: query},
		}, true
	}
	return domain.CommandResult{}, false
}

// encodeComponent percent-encodes s for use inside a query value, with
// spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
