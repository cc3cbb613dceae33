// Package duration turns free-text reminder requests such as
// "позвонить маме через 2 часа" into a total number of minutes.
package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxMinutes is the longest reminder delay the bot accepts (30 days).
// Parse itself does not enforce it; callers do.
const MaxMinutes = 30 * 24 * 60

const maxInt = int(^uint(0) >> 1)

// unit maps a token prefix to its multiplier in minutes. An exact unit only
// matches the whole token.
type unit struct {
	prefix     string
	multiplier int
	exact      bool
}

// units is tested in declaration order and the first matching prefix wins,
// so longer prefixes must precede the shorter ones they contain.
var units = []unit{
	{"мин", 1, false},
	{"м", 1, false},
	{"час", 60, false},
	{"ч", 60, false},
	{"ден", 1440, false},
	{"дн", 1440, false},
	{"min", 1, false},
	{"m", 1, true},
	{"hour", 60, false},
	{"h", 60, true},
	{"day", 1440, false},
	{"d", 1440, true},
}

// Parse returns the total number of minutes described by text. Every
// "<integer> <unit-word>" pair contributes integer × multiplier; all other
// tokens are ignored. Zero means no duration was recognised.
func Parse(text string) int {
	words := strings.Fields(strings.ToLower(text))
	total := 0
	for i := 0; i < len(words); i++ {
		n, ok := integer(words[i])
		if !ok || i+1 >= len(words) {
			continue
		}
		if mult, ok := multiplier(words[i+1]); ok {
			total = addSaturating(total, n, mult)
			i++
		}
	}
	return total
}

// integer reports whether tok is a plain decimal literal (digits only, no
// sign). Literals too large for an int saturate to the largest int.
func integer(tok string) (int, bool) {
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tok)
	if errors.Is(err, strconv.ErrRange) {
		return maxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

func multiplier(tok string) (int, bool) {
	for _, u := range units {
		if u.exact && tok == u.prefix || !u.exact && strings.HasPrefix(tok, u.prefix) {
			return u.multiplier, true
		}
	}
	return 0, false
}

// addSaturating adds n*mult to total, clamping at the largest int so huge
// inputs still read as out of range instead of wrapping around.
func addSaturating(total, n, mult int) int {
	if n > (maxInt-total)/mult {
		return maxInt
	}
	return total + n*mult
}

// Format renders minutes as "1 дн. 5 ч. 3 мин.", omitting zero parts.
func Format(minutes int) string {
	days := minutes / 1440
	hours := (minutes % 1440) / 60
	mins := minutes % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d дн.", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d ч.", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%d мин.", mins))
	}
	if len(parts) == 0 {
		return "чуть позже"
	}
	return strings.Join(parts, " ")
}
