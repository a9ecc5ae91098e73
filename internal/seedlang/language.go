package seedlang

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const ambiguous = -1

// Language is one mnemonic dictionary. Values are immutable after
// construction and safe for concurrent use.
type Language struct {
	code        string
	name        string
	englishName string
	supported   map[Family]bool
	words       []string
	separator   string
	prefixLen   int
	foldMarks   bool

	exact    map[string]int
	folded   map[string]int
	prefixes map[string]int
	checksum []string
}

type LanguageOption func(*Language)

// Supports marks the families the dictionary may be used with.
func Supports(families ...Family) LanguageOption {
	return func(l *Language) {
		for _, f := range families {
			l.supported[f] = true
		}
	}
}

func WithSeparator(sep string) LanguageOption {
	return func(l *Language) { l.separator = sep }
}

// WithPrefixLen sets the number of leading runes that identify a word
// uniquely; zero means the whole word is significant.
func WithPrefixLen(n int) LanguageOption {
	return func(l *Language) { l.prefixLen = n }
}

// WithMarkFolding lets words match with combining marks (accents) removed.
func WithMarkFolding() LanguageOption {
	return func(l *Language) { l.foldMarks = true }
}

// NewLanguage builds a dictionary and its lookup indexes. The word slice is
// copied.
func NewLanguage(code, name, englishName string, words []string, opts ...LanguageOption) *Language {
	l := &Language{
		code:        code,
		name:        name,
		englishName: englishName,
		supported:   make(map[Family]bool),
		words:       append([]string(nil), words...),
		separator:   " ",
	}
	for _, opt := range opts {
		opt(l)
	}
	l.buildIndexes()
	return l
}

func (l *Language) buildIndexes() {
	l.exact = make(map[string]int, len(l.words))
	l.folded = make(map[string]int, len(l.words))
	l.prefixes = make(map[string]int, len(l.words))
	l.checksum = make([]string, len(l.words))
	for i, w := range l.words {
		key := Normalize(w)
		insertUnique(l.exact, key, i)
		f := l.fold(key)
		if l.foldMarks {
			insertUnique(l.folded, f, i)
		}
		if l.prefixLen > 0 {
			insertUnique(l.prefixes, firstRunes(f, l.prefixLen), i)
		}
		l.checksum[i] = firstRunes(f, l.prefixLen)
	}
}

func insertUnique(m map[string]int, key string, idx int) {
	if _, ok := m[key]; ok {
		m[key] = ambiguous
		return
	}
	m[key] = idx
}

func (l *Language) Code() string        { return l.code }
func (l *Language) Name() string        { return l.name }
func (l *Language) EnglishName() string { return l.englishName }
func (l *Language) Separator() string   { return l.separator }
func (l *Language) Len() int            { return len(l.words) }

func (l *Language) Supported(f Family) bool {
	return l != nil && l.supported[f]
}

// Equal compares languages by code only.
func (l *Language) Equal(other *Language) bool {
	if l == nil || other == nil {
		return l == other
	}
	return l.code == other.code
}

func (l *Language) String() string { return l.code }

// Word returns the dictionary word at idx or "" when out of range.
func (l *Language) Word(idx int) string {
	if idx < 0 || idx >= len(l.words) {
		return ""
	}
	return l.words[idx]
}

// ChecksumPrefix is the normalised unique prefix of the word at idx, the
// unit hashed by the legacy and standard checksums.
func (l *Language) ChecksumPrefix(idx int) string {
	if idx < 0 || idx >= len(l.checksum) {
		return ""
	}
	return l.checksum[idx]
}

// Index resolves a word to its dictionary position. Matching is case
// insensitive, optionally accent insensitive, and accepts an abbreviated word
// when its unique prefix selects exactly one entry.
func (l *Language) Index(word string) (int, bool) {
	key := Normalize(word)
	if key == "" {
		return 0, false
	}
	if idx, ok := l.exact[key]; ok && idx != ambiguous {
		return idx, true
	}
	f := l.fold(key)
	if l.foldMarks {
		if idx, ok := l.folded[f]; ok && idx != ambiguous {
			return idx, true
		}
	}
	if l.prefixLen > 0 && utf8.RuneCountInString(f) >= l.prefixLen {
		idx, ok := l.prefixes[firstRunes(f, l.prefixLen)]
		if ok && idx != ambiguous && strings.HasPrefix(l.fold(Normalize(l.words[idx])), f) {
			return idx, true
		}
	}
	return 0, false
}

// Contains reports whether word is a dictionary entry as written, up to
// case and Unicode normalisation.
func (l *Language) Contains(word string) bool {
	idx, ok := l.exact[Normalize(word)]
	return ok && idx != ambiguous
}

func (l *Language) fold(normalized string) string {
	if !l.foldMarks {
		return normalized
	}
	out, _, err := transform.String(runes.Remove(runes.In(unicode.Mn)), normalized)
	if err != nil {
		return normalized
	}
	return out
}

// Normalize is the canonical comparison form of a word or phrase:
// compatibility decomposition, lower case, trimmed.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKD.String(s)))
}

func firstRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
