package intent

import (
	"context"
	"fmt"
	"regexp"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

var (
	timeTrigger = regexp.MustCompile(`\b(?:time|samay|baje|waqt)\b|kya\s+baj\s+raha\s+hai|समय|बजे`)
	dateTrigger = regexp.MustCompile(`\b(?:date|tareekh|din|day)\b|तारीख|दिन`)
)

var (
	hindiWeekdays = [...]string{"रविवार", "सोमवार", "मंगलवार", "बुधवार", "गुरुवार", "शुक्रवार", "शनिवार"}
	hindiMonths   = [...]string{"जनवरी", "फ़रवरी", "मार्च", "अप्रैल", "मई", "जून", "जुलाई", "अगस्त", "सितंबर", "अक्टूबर", "नवंबर", "दिसंबर"}
)

type timeMatcher struct{}

func (timeMatcher) Name() string { return "time" }

func (timeMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if !timeTrigger.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}
	clock := u.Now.Format("03:04 PM")
	return domain.CommandResult{
		Action:   domain.ActionTime,
		Response: u.say("Current time is "+clock+".", "अभी समय "+clock+" है।"),
		Payload:  domain.ClockPayload{At: u.Now},
	}, true
}

type dateMatcher struct{}

func (dateMatcher) Name() string { return "date" }

func (dateMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if !dateTrigger.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}
	var response string
	if u.Language == domain.LanguageHindi {
		response = fmt.Sprintf("आज की तारीख है %s, %d %s %d।",
			hindiWeekdays[u.Now.Weekday()], u.Now.Day(), hindiMonths[u.Now.Month()-1], u.Now.Year())
	} else {
		response = "Today's date is " + u.Now.Format("Monday, January 2, 2006") + "."
	}
	return domain.CommandResult{
		Action:   domain.ActionDate,
		Response: response,
		Payload:  domain.ClockPayload{At: u.Now},
	}, true
}
