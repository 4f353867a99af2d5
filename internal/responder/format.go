package responder

import (
	"regexp"
	"strings"
)

type section struct {
	re     *regexp.Regexp
	marker string
}

// sections are the headings the prompt asks for, in replacement order.
var sections = func() []section {
	pairs := [][2]string{
		{"Overview:", "🩺 Overview:"},
		{"Common Symptoms:", "• Common Symptoms:"},
		{"Treatment Options:", "💊 Treatment Options:"},
		{"Causes / Prevention Tips:", "⚠️ Causes / Prevention Tips:"},
		{"Key Points:", "📘 Key Points:"},
		{"Advice:", "✅ Advice:"},
	}
	out := make([]section, len(pairs))
	for i, p := range pairs {
		out[i] = section{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(p[0])), marker: "\n" + p[1]}
	}
	return out
}()

var (
	bulletRe    = regexp.MustCompile(`\* `)
	blankLineRe = regexp.MustCompile(`\n\s*\n`)
)

// FormatResponse cleans up model output for the chat screen: markdown
// emphasis and headers are stripped, each section heading starts a new
// line with its marker, "* " bullets become "• " and runs of blank lines
// collapse to one.
func FormatResponse(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "###", "")
	text = strings.TrimSpace(text)

	for _, s := range sections {
		text = s.re.ReplaceAllLiteralString(text, s.marker)
	}

	text = bulletRe.ReplaceAllLiteralString(text, "• ")
	text = blankLineRe.ReplaceAllLiteralString(text, "\n\n")
	return strings.TrimSpace(text)
}
