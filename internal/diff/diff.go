// Package diff decides whether a freshly fetched resource differs from the
// stored snapshot.
//
// The comparison is deliberately loose: both values are encoded to JSON,
// everything except letters and digits is discarded, and the remaining
// characters are sorted. Two values are unchanged when the resulting strings
// are equal, so key order, whitespace and punctuation never register as a
// change.
package diff

import (
	"reflect"
	"slices"
	"unicode"

	"github.com/goccy/go-json"
)

// emptyObject stands in for an absent value.
const emptyObject = "{}"

// Changed reports whether newValue differs from oldValue. A nil value on
// either side compares as an empty object.
func Changed(oldValue, newValue any) bool {
	return Canonical(oldValue) != Canonical(newValue)
}

// Canonical returns the sorted alphanumeric characters of the JSON encoding of v.
func Canonical(v any) string {
	encoded := emptyObject
	if !isNil(v) {
		b, err := json.Marshal(v)
		if err == nil {
			encoded = string(b)
		}
	}

	runes := make([]rune, 0, len(encoded))
	for _, r := range encoded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			runes = append(runes, r)
		}
	}
	slices.Sort(runes)
	return string(runes)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
