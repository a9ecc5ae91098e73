package seedlang

import (
	"fmt"
	"sync"

	"github.com/tyler-smith/go-bip39/wordlists"

	"ots/go-core/internal/otserr"
)

var (
	ErrLanguageNotFound  = otserr.New(otserr.ErrNotFound, "language not found")
	ErrNoDefaultLanguage = otserr.New(otserr.ErrDomain, "no default language set for seed type")
	ErrInvalidRegistry   = otserr.New(otserr.ErrInvalidArgument, "invalid language registry")
)

// minWords keeps the base-n triple encoding able to carry 32 bits.
const (
	minWords  = 1626
	polyWords = 2048
)

// Registry is a read-only catalogue of dictionaries with one default per
// family. It is safe for concurrent use.
type Registry struct {
	langs    []*Language
	byCode   map[string]*Language
	defaults map[Family]*Language
}

// NewRegistry validates the catalogue: unique codes, dictionary sizes that
// fit the families they claim, and exactly one default for every family
// that has a supported language.
func NewRegistry(langs []*Language, defaults map[Family]string) (*Registry, error) {
	r := &Registry{
		langs:    make([]*Language, 0, len(langs)),
		byCode:   make(map[string]*Language, len(langs)),
		defaults: make(map[Family]*Language),
	}
	for _, l := range langs {
		if l == nil || l.code == "" {
			return nil, fmt.Errorf("%w: language without code", ErrInvalidRegistry)
		}
		if _, dup := r.byCode[l.code]; dup {
			return nil, fmt.Errorf("%w: duplicate code %q", ErrInvalidRegistry, l.code)
		}
		if err := validateSize(l); err != nil {
			return nil, err
		}
		r.langs = append(r.langs, l)
		r.byCode[l.code] = l
	}
	for family, code := range defaults {
		l, ok := r.byCode[code]
		if !ok {
			return nil, fmt.Errorf("%w: default %q for %s is not registered", ErrInvalidRegistry, code, family)
		}
		if !l.Supported(family) {
			return nil, fmt.Errorf("%w: default %q does not support %s", ErrInvalidRegistry, code, family)
		}
		r.defaults[family] = l
	}
	for _, family := range Families() {
		if len(r.ListFor(family)) > 0 && r.defaults[family] == nil {
			return nil, fmt.Errorf("%w: %s has languages but no default", ErrInvalidRegistry, family)
		}
	}
	return r, nil
}

func validateSize(l *Language) error {
	for family, ok := range l.supported {
		if !ok {
			continue
		}
		switch {
		case family == Poly && len(l.words) != polyWords:
			return fmt.Errorf("%w: %q needs %d words for %s", ErrInvalidRegistry, l.code, polyWords, family)
		case len(l.words) < minWords:
			return fmt.Errorf("%w: %q needs at least %d words for %s", ErrInvalidRegistry, l.code, minWords, family)
		}
	}
	for key, idx := range l.exact {
		if idx == ambiguous {
			return fmt.Errorf("%w: %q repeats word %q", ErrInvalidRegistry, l.code, key)
		}
	}
	return nil
}

// List returns every registered language in registration order.
func (r *Registry) List() []*Language {
	return append([]*Language(nil), r.langs...)
}

func (r *Registry) ListFor(f Family) []*Language {
	out := make([]*Language, 0, len(r.langs))
	for _, l := range r.langs {
		if l.Supported(f) {
			out = append(out, l)
		}
	}
	return out
}

func (r *Registry) FromCode(code string) (*Language, error) {
	if l, ok := r.byCode[code]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: code %q", ErrLanguageNotFound, code)
}

func (r *Registry) FromName(name string) (*Language, error) {
	for _, l := range r.langs {
		if l.name == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: name %q", ErrLanguageNotFound, name)
}

func (r *Registry) FromEnglishName(name string) (*Language, error) {
	for _, l := range r.langs {
		if l.englishName == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: english name %q", ErrLanguageNotFound, name)
}

// Lookup tries code, native name and English name in that order.
func (r *Registry) Lookup(key string) (*Language, error) {
	if l, err := r.FromCode(key); err == nil {
		return l, nil
	}
	if l, err := r.FromName(key); err == nil {
		return l, nil
	}
	return r.FromEnglishName(key)
}

func (r *Registry) Default(f Family) (*Language, error) {
	if l, ok := r.defaults[f]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDefaultLanguage, f)
}

func (r *Registry) IsDefault(l *Language, f Family) bool {
	d, ok := r.defaults[f]
	return ok && d.Equal(l)
}

// WithDefaults returns a registry sharing this catalogue with some family
// defaults replaced.
func (r *Registry) WithDefaults(overrides map[Family]string) (*Registry, error) {
	defaults := make(map[Family]string, len(r.defaults))
	for f, l := range r.defaults {
		defaults[f] = l.code
	}
	for f, code := range overrides {
		defaults[f] = code
	}
	return NewRegistry(r.langs, defaults)
}

var builtin = sync.OnceValue(func() *Registry {
	latin := []LanguageOption{WithPrefixLen(4), WithMarkFolding()}
	modern := Supports(Standard, Poly)
	langs := []*Language{
		NewLanguage("en", "English", "English", wordlists.English, append(latin, Supports(Legacy, Standard, Poly))...),
		NewLanguage("es", "Español", "Spanish", wordlists.Spanish, append(latin, modern)...),
		NewLanguage("fr", "Français", "French", wordlists.French, append(latin, modern)...),
		NewLanguage("it", "Italiano", "Italian", wordlists.Italian, append(latin, modern)...),
		NewLanguage("cs", "Čeština", "Czech", wordlists.Czech, append(latin, modern)...),
		NewLanguage("ja", "日本語", "Japanese", wordlists.Japanese, modern, WithSeparator("\u3000")),
		NewLanguage("ko", "한국어", "Korean", wordlists.Korean, modern),
		NewLanguage("zh-Hans", "简体中文", "Chinese (Simplified)", wordlists.ChineseSimplified, modern),
		NewLanguage("zh-Hant", "繁體中文", "Chinese (Traditional)", wordlists.ChineseTraditional, modern),
	}
	r, err := NewRegistry(langs, map[Family]string{Legacy: "en", Standard: "en", Poly: "en"})
	if err != nil {
		panic(fmt.Sprintf("seedlang: builtin registry: %v", err))
	}
	return r
})

// Builtin returns the process-wide catalogue. It is built on first use;
// concurrent first callers wait for the single initialisation.
func Builtin() *Registry {
	return builtin()
}
