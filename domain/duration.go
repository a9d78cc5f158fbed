package domain

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseDurationMinutes converts a human-readable duration string into whole
// minutes. Source data mixes Russian and shorthand forms: "1 ч 30 мин" → 90,
// "45 мин" → 45, "2ч" → 120, "1 час" → 60. A bare number is taken as minutes.
// Unparseable input yields 0.
//
// The result is cached on the record as a derived field; it is computed once
// per write, never lazily during a query.
func ParseDurationMinutes(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	total := 0
	sawUnit := false
	var lastNum int
	haveNum := false

	for _, tok := range splitDurationTokens(s) {
		if n, err := strconv.Atoi(tok); err == nil {
			// A trailing bare number without a unit counts as minutes.
			lastNum = n
			haveNum = true
			continue
		}
		if !haveNum {
			continue
		}
		switch {
		case isHourUnit(tok):
			total += lastNum * 60
			sawUnit = true
			haveNum = false
		case isMinuteUnit(tok):
			total += lastNum
			sawUnit = true
			haveNum = false
		}
	}

	if haveNum {
		total += lastNum
	}
	if total == 0 && !sawUnit {
		return 0
	}
	return total
}

// splitDurationTokens splits on whitespace and on digit/letter boundaries so
// glued forms like "2ч" or "30мин" tokenize as ["2" "ч"], ["30" "мин"].
func splitDurationTokens(s string) []string {
	var tokens []string
	var cur strings.Builder
	var curDigit bool

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '.' || r == ',':
			flush()
		case unicode.IsDigit(r):
			if cur.Len() > 0 && !curDigit {
				flush()
			}
			curDigit = true
			cur.WriteRune(r)
		default:
			if cur.Len() > 0 && curDigit {
				flush()
			}
			curDigit = false
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isHourUnit(tok string) bool {
	switch tok {
	case "ч", "час", "часа", "часов", "h", "hr", "hour", "hours":
		return true
	}
	return false
}

func isMinuteUnit(tok string) bool {
	switch tok {
	case "м", "мин", "минут", "минуты", "минута", "m", "min", "mins", "minute", "minutes":
		return true
	}
	return false
}
