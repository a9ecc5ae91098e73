package mnemonic

import (
	"fmt"
	"slices"

	"ots/go-core/internal/seedlang"
)

// Decoded is a phrase mapped to word values. Values keep the phrase order
// (poly values with the coin separator removed); Encrypted is set for phrases
// whose values are password-protected.
type Decoded struct {
	Family    seedlang.Family
	Language  *seedlang.Language
	Values    []int
	Encrypted bool
}

type DecodeOptions struct {
	// Language pins the dictionary; nil auto-detects among the languages
	// supporting the family.
	Language *seedlang.Language
	// Encrypted marks a standard phrase as password-protected. Poly phrases
	// carry the flag themselves.
	Encrypted bool
	Coin      Coin
}

// Decode splits phrase, resolves its language and validates the family
// checksum. Auto-detection keeps the languages in which every word resolves
// and whose checksum holds. Ties go to the family default, then to the
// languages that contain every word verbatim, and finally to the first
// remaining candidate when all of them yield the same values.
func Decode(reg *seedlang.Registry, family seedlang.Family, phrase string, opts DecodeOptions) (Decoded, error) {
	if !family.Valid() {
		return Decoded{}, seedlang.ErrUnknownFamily
	}
	words := Split(phrase)
	if len(words) != family.WordCount() {
		return Decoded{}, fmt.Errorf("%w: got %d, %s needs %d", ErrWordCount, len(words), family, family.WordCount())
	}
	if opts.Encrypted && family != seedlang.Standard {
		if family == seedlang.Legacy {
			return Decoded{}, ErrNotEncryptable
		}
		opts.Encrypted = false
	}

	candidates := []*seedlang.Language{opts.Language}
	if opts.Language == nil {
		candidates = reg.ListFor(family)
	} else if !opts.Language.Supported(family) {
		return Decoded{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedFamily, opts.Language.Code(), family)
	}
	if len(candidates) == 0 {
		return Decoded{}, fmt.Errorf("%w: no language for %s", ErrUnsupportedFamily, family)
	}

	var (
		matches     []Decoded
		lookupErr   error
		validateErr error
	)
	for _, lang := range candidates {
		values, err := Lookup(words, lang)
		if err != nil {
			if lookupErr == nil {
				lookupErr = err
			}
			continue
		}
		d, err := validate(family, lang, values, opts)
		if err != nil {
			if validateErr == nil {
				validateErr = err
			}
			continue
		}
		matches = append(matches, d)
	}
	switch len(matches) {
	case 0:
		if validateErr != nil {
			return Decoded{}, validateErr
		}
		return Decoded{}, lookupErr
	case 1:
		return matches[0], nil
	}
	if def, err := reg.Default(family); err == nil {
		for _, m := range matches {
			if m.Language.Equal(def) {
				return m, nil
			}
		}
	}
	if verbatim := containsAll(words, matches); len(verbatim) > 0 {
		matches = verbatim
	}
	for _, m := range matches[1:] {
		if !slices.Equal(m.Values, matches[0].Values) {
			return Decoded{}, ErrAmbiguousLanguage
		}
	}
	return matches[0], nil
}

func containsAll(words []string, matches []Decoded) []Decoded {
	var out []Decoded
	for _, m := range matches {
		if !slices.ContainsFunc(words, func(w string) bool { return !m.Language.Contains(w) }) {
			out = append(out, m)
		}
	}
	return out
}

func validate(family seedlang.Family, lang *seedlang.Language, values []int, opts DecodeOptions) (Decoded, error) {
	d := Decoded{Family: family, Language: lang, Values: values}
	switch family {
	case seedlang.Legacy:
		entropy, err := LegacyEntropy(values, lang)
		zero(entropy[:])
		if err != nil {
			return Decoded{}, err
		}
	case seedlang.Standard:
		if opts.Encrypted {
			d.Encrypted = true
			return d, checkRange(values, lang.Len())
		}
		key, err := StandardKey(values, lang)
		zero(key[:])
		if err != nil {
			return Decoded{}, err
		}
	case seedlang.Poly:
		if err := PolyLanguageCheck(lang); err != nil {
			return Decoded{}, err
		}
		d.Values = PolyApplyCoin(values, opts.Coin)
		data, err := PolyDecode(d.Values)
		if err != nil {
			return Decoded{}, err
		}
		d.Encrypted = data.Encrypted()
		data.Wipe()
	}
	return d, nil
}

// Phrase renders internal values of family in lang.
func Phrase(family seedlang.Family, values []int, lang *seedlang.Language, coin Coin) (string, error) {
	if !lang.Supported(family) {
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedFamily, lang.Code(), family)
	}
	if len(values) != family.WordCount() {
		return "", ErrWordCount
	}
	if family == seedlang.Poly {
		return Join(PolyApplyCoin(values, coin), lang)
	}
	return Join(values, lang)
}
