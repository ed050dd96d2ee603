package template

import (
	"strconv"
	"strings"
	"time"
)

// formatDate renders t with Django date format characters. Unknown
// characters are copied, and a backslash escapes the next character.
func formatDate(t time.Time, format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch == '\\' && i+1 < len(format) {
			i++
			b.WriteByte(format[i])
			continue
		}
		switch ch {
		case 'd':
			b.WriteString(t.Format("02"))
		case 'j':
			b.WriteString(strconv.Itoa(t.Day()))
		case 'D':
			b.WriteString(t.Format("Mon"))
		case 'l':
			b.WriteString(t.Format("Monday"))
		case 'w':
			b.WriteString(strconv.Itoa(int(t.Weekday())))
		case 'z':
			b.WriteString(strconv.Itoa(t.YearDay() - 1))
		case 'm':
			b.WriteString(t.Format("01"))
		case 'n':
			b.WriteString(strconv.Itoa(int(t.Month())))
		case 'M':
			b.WriteString(t.Format("Jan"))
		case 'F':
			b.WriteString(t.Format("January"))
		case 'y':
			b.WriteString(t.Format("06"))
		case 'Y':
			b.WriteString(strconv.Itoa(t.Year()))
		case 'H':
			b.WriteString(t.Format("15"))
		case 'G':
			b.WriteString(strconv.Itoa(t.Hour()))
		case 'h':
			b.WriteString(t.Format("03"))
		case 'g':
			b.WriteString(t.Format("3"))
		case 'i':
			b.WriteString(t.Format("04"))
		case 's':
			b.WriteString(t.Format("05"))
		case 'A':
			b.WriteString(t.Format("PM"))
		case 'a':
			b.WriteString(strings.ToLower(t.Format("PM")))
		case 'T':
			b.WriteString(t.Format("MST"))
		case 'O':
			b.WriteString(t.Format("-0700"))
		case 'c':
			b.WriteString(t.Format(time.RFC3339))
		case 'U':
			b.WriteString(strconv.FormatInt(t.Unix(), 10))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

type nowNode struct {
	pos
	format string
}

func parseNow(p *Parser, tag Tag) (Node, error) {
	if len(tag.Args) != 1 {
		return nil, p.syntaxError("now takes one argument, a format string")
	}
	format, ok := unquote(tag.Args[0])
	if !ok {
		return nil, p.syntaxError("now format must be a quoted string")
	}
	return &nowNode{pos: pos(tag.Line), format: format}, nil
}

func (n *nowNode) Render(w *strings.Builder, c *Context) error {
	writeValue(w, formatDate(c.Now(), n.format), c)
	return nil
}
