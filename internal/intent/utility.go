package intent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
)

var (
	weatherTrigger  = regexp.MustCompile(`\b(?:weather|temperature|forecast|mausam|tapman)\b|मौसम|तापमान`)
	weatherPlaceHi  = regexp.MustCompile(`\b([a-z]+)\s+(?:ka|ki|me|mein)\s+(?:mausam|tapman)\b`)
	weatherPlaceEn  = regexp.MustCompile(`\b(?:in|at|of|for)\s+([a-z]+)\b`)
	weatherPlaceDev = regexp.MustCompile(`(\S+)\s+(?:का|की|में)\s+(?:मौसम|तापमान)`)
	notPlaces       = toSet("the", "my", "here", "today", "tomorrow", "now", "your", "this", "aaj", "kal", "abhi")
)

var weatherConditions = [...]struct{ en, hi string }{
	{"Sunny", "धूप"},
	{"Cloudy", "बादल"},
	{"Rainy", "बारिश"},
	{"Clear", "साफ़"},
}

type intner interface {
	Intn(n int) int
}

// weatherMatcher produces mock readings. It does not fetch real data.
type weatherMatcher struct {
	rng intner
}

func (weatherMatcher) Name() string { return "weather" }

func (w weatherMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if !weatherTrigger.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}

	location, ok := weatherLocation(u.Lower)
	if !ok {
		location = u.say("your location", "यहाँ")
	}
	temp := 20 + w.rng.Intn(15)
	cond := weatherConditions[w.rng.Intn(len(weatherConditions))]

	return domain.CommandResult{
		Action: domain.ActionWeather,
		Response: u.say(
			fmt.Sprintf("Weather in %s is %s with a temperature of %d°C.", location, cond.en, temp),
			fmt.Sprintf("%s में मौसम %s है और तापमान %d डिग्री सेल्सियस है।", location, cond.hi, temp),
		),
		Payload: domain.WeatherPayload{Location: location, TemperatureC: temp, Condition: cond.en, Mock: true},
	}, true
}

func weatherLocation(lower string) (string, bool) {
	if m := weatherPlaceHi.FindStringSubmatch(lower); m != nil && !isNotPlace(m[1]) {
		return titleCase(m[1]), true
	}
	for _, m := range weatherPlaceEn.FindAllStringSubmatch(lower, -1) {
		if !isNotPlace(m[1]) {
			return titleCase(m[1]), true
		}
	}
	if m := weatherPlaceDev.FindStringSubmatch(lower); m != nil {
		return m[1], true
	}
	return "", false
}

func isNotPlace(word string) bool {
	_, ok := notPlaces[word]
	return ok
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

var arithmetic = regexp.MustCompile(`(\d+)\s*(plus|minus|times|divided by|\+|-|\*|/|jodo|ghatao|guna|bhag)\s*(\d+)`)

var operatorSymbols = map[string]string{
	"plus": "+", "+": "+", "jodo": "+",
	"minus": "-", "-": "-", "ghatao": "-",
	"times": "*", "*": "*", "guna": "*",
	"divided by": "/", "/": "/", "bhag": "/",
}

type calculatorMatcher struct{}

func (calculatorMatcher) Name() string { return "calculator" }

func (calculatorMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	m := arithmetic.FindStringSubmatch(u.Lower)
	if m == nil {
		return domain.CommandResult{}, false
	}
	left, errL := strconv.ParseFloat(m[1], 64)
	right, errR := strconv.ParseFloat(m[3], 64)
	if errL != nil || errR != nil {
		return domain.CommandResult{}, false
	}
	op := operatorSymbols[m[2]]

	var value float64
	switch op {
	case "+":
		value = left + right
	case "-":
		value = left - right
	case "*":
		value = left * right
	case "/":
		if right == 0 {
			return domain.CommandResult{
				Action:   domain.ActionError,
				Response: u.say("Cannot divide by zero.", "शून्य से भाग नहीं दिया जा सकता।"),
				Payload:  domain.FailurePayload{Code: domain.FailureDivisionByZero, Kind: domain.ErrorKindValidation},
			}, true
		}
		value = left / right
	}

	shown := FormatNumber(value)
	return domain.CommandResult{
		Action:   domain.ActionCalculator,
		Response: u.say("The result is "+shown+".", "परिणाम "+shown+" है।"),
		Payload:  domain.CalculationPayload{Left: left, Operator: op, Right: right, Value: value},
	}, true
}

// FormatNumber renders v with at most four decimals and no trailing zeros.
func FormatNumber(v float64) string {
	rounded := math.Round(v*1e4) / 1e4
	if math.IsInf(rounded, 0) || math.IsNaN(rounded) {
		rounded = v
	}
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}

var (
	volumeNoun = regexp.MustCompile(`\b(?:volume|aawaz|awaaz|awaz|sound)\b|आवाज`)
	volumeUp   = regexp.MustCompile(`\b(?:increase|up|badao|badhao|tez|louder|raise)\b|ज्यादा|ज\x{093C}्यादा|बढ|तेज`)
	volumeDown = regexp.MustCompile(`\b(?:decrease|down|kam|dheere|low|lower|ghatao|reduce)\b|कम|धीरे`)
)

type volumeMatcher struct {
	step int
}

func (volumeMatcher) Name() string { return "volume" }

func (v volumeMatcher) Match(_ context.Context, u Utterance) (domain.CommandResult, bool) {
	if !volumeNoun.MatchString(u.Lower) {
		return domain.CommandResult{}, false
	}
	switch {
	case volumeUp.MatchString(u.Lower):
		return domain.CommandResult{
			Action:   domain.ActionVolumeUp,
			Response: u.say("Increasing volume.", "आवाज़ बढ़ा रहा हूँ।"),
			Payload:  domain.VolumePayload{Delta: v.step},
		}, true
	case volumeDown.MatchString(u.Lower):
		return domain.CommandResult{
			Action:   domain.ActionVolumeDown,
			Response: u.say("Decreasing volume.", "आवाज़ कम कर रहा हूँ।"),
			Payload:  domain.VolumePayload{Delta: -v.step},
		}, true
	}
	return domain.CommandResult{}, false
}
