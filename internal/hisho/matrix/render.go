package matrix

import (
	"strings"

	"github.com/bdobrica/Hisho/internal/hisho/bot"
)

// Render appends the keyboard to text. Matrix has no reply keyboards, so the
// buttons become bracketed labels, one line per keyboard row, which the user
// can type back verbatim.
func Render(text string, kb bot.Keyboard) string {
	rows := kb.Rows()
	if len(rows) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("\n")
		for i, label := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString("[")
			b.WriteString(label)
			b.WriteString("]")
		}
	}
	return b.String()
}
