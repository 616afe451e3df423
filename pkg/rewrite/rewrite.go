// Package rewrite turns section openers that carry arguments into the form
// section helpers receive.
//
//	{{#each items}}{{.}}{{/each}}  =>  {{#each}}items;{{.}}{{/each}}
//
// The arguments become the first part of the section's raw text, ended by a
// semicolon. Closing tags and openers without arguments are left alone, so
// the rewrite is idempotent.
//
// The rewrite is a text transform, not a parse. Argument text that contains
// the first character of the closing delimiter is cut at that character.
package rewrite

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sambeau/mustachepp/pkg/mustache"
)

var patterns sync.Map // mustache.Tags -> *regexp.Regexp

func pattern(tags mustache.Tags) *regexp.Regexp {
	if re, ok := patterns.Load(tags); ok {
		return re.(*regexp.Regexp)
	}
	first, _ := utf8.DecodeRuneInString(tags.Close())
	stop := regexp.QuoteMeta(string(first))
	re := regexp.MustCompile(`(?i)(` + regexp.QuoteMeta(tags.Open()) + `\s*#)\s*([_$\-0-9a-z.]+)((?:\s+[^` + stop + `]+)+)(` + regexp.QuoteMeta(tags.Close()) + `)`)
	actual, _ := patterns.LoadOrStore(tags, re)
	return actual.(*regexp.Regexp)
}

// Rewrite rewrites every section opener with arguments in text using the
// given delimiters. Invalid delimiters leave the text unchanged.
func Rewrite(text string, tags mustache.Tags) string {
	if !tags.Valid() || !strings.Contains(text, tags.Open()) {
		return text
	}
	re := pattern(tags)
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		b.WriteString(text[m[2]:m[3]]) // opener
		b.WriteString(text[m[4]:m[5]]) // name
		b.WriteString(text[m[8]:m[9]]) // closing delimiter
		b.WriteString(strings.TrimSpace(text[m[6]:m[7]]))
		b.WriteByte(';')
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// Args reports the name and argument text of every opener Rewrite would
// change, in order.
func Args(text string, tags mustache.Tags) [][2]string {
	if !tags.Valid() {
		return nil
	}
	var out [][2]string
	for _, m := range pattern(tags).FindAllStringSubmatch(text, -1) {
		out = append(out, [2]string{m[2], strings.TrimSpace(m[3])})
	}
	return out
}
