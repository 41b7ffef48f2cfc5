package highlight

import (
	"regexp"
	"strings"
)

// Notice is appended to every figure that needs manual checking.
const Notice = " – validate independently"

var (
	figurePattern    = regexp.MustCompile(`\$?\d[\d,]*(\.\d+)?`)
	annotatedPattern = regexp.MustCompile(`\[\$?\d[\d,]*(\.\d+)?` + regexp.QuoteMeta(Notice) + `\]`)
)

// Highlight wraps every numeric or currency token as "[token – validate
// independently]". Tokens that are already wrapped are left alone, so
// Highlight(Highlight(s)) == Highlight(s).
func Highlight(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	last := 0
	for _, span := range annotatedPattern.FindAllStringIndex(text, -1) {
		b.WriteString(wrap(text[last:span[0]]))
		b.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	b.WriteString(wrap(text[last:]))

	return b.String()
}

func wrap(s string) string {
	return figurePattern.ReplaceAllString(s, "[${0}"+Notice+"]")
}
