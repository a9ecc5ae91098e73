package mnemonic

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"ots/go-core/internal/seedlang"
)

// Split breaks a phrase into words on any Unicode white space.
func Split(phrase string) []string {
	return strings.FieldsFunc(norm.NFKC.String(phrase), unicode.IsSpace)
}

// Join renders values as a phrase in lang.
func Join(values []int, lang *seedlang.Language) (string, error) {
	words := make([]string, len(values))
	for i, v := range values {
		w := lang.Word(v)
		if w == "" {
			return "", fmt.Errorf("%w: %d", ErrValueRange, v)
		}
		words[i] = w
	}
	return norm.NFC.String(strings.Join(words, lang.Separator())), nil
}

// Lookup maps every word to its dictionary index in lang.
func Lookup(words []string, lang *seedlang.Language) ([]int, error) {
	values := make([]int, len(words))
	for i, w := range words {
		idx, ok := lang.Index(w)
		if !ok {
			return nil, fmt.Errorf("%w: word %d in %s", ErrUnknownWord, i+1, lang.Code())
		}
		values[i] = idx
	}
	return values, nil
}

func checkRange(values []int, n int) error {
	for _, v := range values {
		if v < 0 || v >= n {
			return fmt.Errorf("%w: %d", ErrValueRange, v)
		}
	}
	return nil
}
