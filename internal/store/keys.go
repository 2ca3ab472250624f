package store

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// BlockingKey buckets names phonetically so scoring only ever compares a
// candidate against a bounded set of canonicals instead of the whole graph.
// Names sharing a Soundex code for their first token land in the same bucket.
func BlockingKey(name string) string {
	token := firstAlphaToken(name)
	if token == "" {
		return "_"
	}
	code := matchr.Soundex(token)
	if code == "" {
		return "_"
	}
	return code
}

func firstAlphaToken(name string) string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
