package seedlang

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tyler-smith/go-bip39/wordlists"

	"ots/go-core/internal/otserr"
)

func TestBuiltinDefaultsSupportTheirFamily(t *testing.T) {
	reg := Builtin()
	for _, f := range Families() {
		if len(reg.ListFor(f)) == 0 {
			continue
		}
		l, err := reg.Default(f)
		if err != nil {
			t.Fatalf("%s: default failed: %v", f, err)
		}
		if !l.Supported(f) {
			t.Fatalf("%s: default %s does not support the family", f, l.Code())
		}
		if !reg.IsDefault(l, f) {
			t.Fatalf("%s: IsDefault must hold for the default", f)
		}
	}
}

func TestBuiltinIsBuiltOnceUnderConcurrency(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*Registry, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Builtin()
		}(i)
	}
	wg.Wait()
	for i := range got {
		if got[i] != got[0] {
			t.Fatal("all callers must observe the same registry")
		}
		if len(got[i].List()) != 9 {
			t.Fatalf("registry observed partially built: %d languages", len(got[i].List()))
		}
	}
}

func TestLookupsFailWithNotFound(t *testing.T) {
	reg := Builtin()
	if l, err := reg.FromCode("en"); err != nil || l.EnglishName() != "English" {
		t.Fatalf("from code: %v %v", l, err)
	}
	if l, err := reg.FromName("Français"); err != nil || l.Code() != "fr" {
		t.Fatalf("from name: %v %v", l, err)
	}
	if l, err := reg.FromEnglishName("Japanese"); err != nil || l.Code() != "ja" {
		t.Fatalf("from english name: %v %v", l, err)
	}
	for _, lookup := range []func(string) (*Language, error){reg.FromCode, reg.FromName, reg.FromEnglishName, reg.Lookup} {
		_, err := lookup("klingon")
		if !errors.Is(err, ErrLanguageNotFound) || otserr.KindOf(err) != otserr.KindNotFound {
			t.Fatalf("expected ErrLanguageNotFound, got %v", err)
		}
	}
}

func TestListForFiltersByFamily(t *testing.T) {
	reg := Builtin()
	legacy := reg.ListFor(Legacy)
	if len(legacy) != 1 || legacy[0].Code() != "en" {
		t.Fatalf("legacy must only support english, got %v", legacy)
	}
	if len(reg.ListFor(Standard)) != 9 || len(reg.ListFor(Poly)) != 9 {
		t.Fatal("standard and poly must support every builtin language")
	}
}

func TestEqualityIsByCode(t *testing.T) {
	a := NewLanguage("xx", "A", "A", wordlists.English, Supports(Standard))
	b := NewLanguage("xx", "B", "B", wordlists.Italian, Supports(Poly))
	c := NewLanguage("yy", "A", "A", wordlists.English, Supports(Standard))
	if !a.Equal(b) || a.Equal(c) {
		t.Fatal("languages must compare by code only")
	}
}

func TestNoDefaultLanguage(t *testing.T) {
	en := NewLanguage("en", "English", "English", wordlists.English, Supports(Standard))
	reg, err := NewRegistry([]*Language{en}, map[Family]string{Standard: "en"})
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	_, err = reg.Default(Legacy)
	if !errors.Is(err, ErrNoDefaultLanguage) || otserr.KindOf(err) != otserr.KindDomain {
		t.Fatalf("expected ErrNoDefaultLanguage, got %v", err)
	}
}

func TestNewRegistryValidation(t *testing.T) {
	en := NewLanguage("en", "English", "English", wordlists.English, Supports(Standard, Poly))
	short := NewLanguage("sh", "Short", "Short", wordlists.English[:100], Supports(Standard))
	if _, err := NewRegistry([]*Language{en}, nil); !errors.Is(err, ErrInvalidRegistry) {
		t.Fatalf("missing default must fail, got %v", err)
	}
	if _, err := NewRegistry([]*Language{en, en}, map[Family]string{Standard: "en", Poly: "en"}); !errors.Is(err, ErrInvalidRegistry) {
		t.Fatalf("duplicate code must fail, got %v", err)
	}
	if _, err := NewRegistry([]*Language{en}, map[Family]string{Standard: "en", Poly: "en", Legacy: "en"}); !errors.Is(err, ErrInvalidRegistry) {
		t.Fatalf("default for unsupported family must fail, got %v", err)
	}
	if _, err := NewRegistry([]*Language{short}, map[Family]string{Standard: "sh"}); !errors.Is(err, ErrInvalidRegistry) {
		t.Fatalf("undersized dictionary must fail, got %v", err)
	}
}

func TestWithDefaultsOverridesFamily(t *testing.T) {
	reg, err := Builtin().WithDefaults(map[Family]string{Poly: "ja"})
	if err != nil {
		t.Fatalf("with defaults failed: %v", err)
	}
	l, _ := reg.Default(Poly)
	if l.Code() != "ja" {
		t.Fatalf("expected ja default, got %s", l.Code())
	}
	if _, err := Builtin().WithDefaults(map[Family]string{Legacy: "ja"}); !errors.Is(err, ErrInvalidRegistry) {
		t.Fatalf("japanese cannot be the legacy default, got %v", err)
	}
}

func TestIndexMatching(t *testing.T) {
	en, _ := Builtin().FromCode("en")
	cases := map[string]int{"abandon": 0, "ABANDON": 0, " Zoo ": 2047, "aban": 0, "abando": 0}
	for word, want := range cases {
		got, ok := en.Index(word)
		if !ok || got != want {
			t.Fatalf("index %q: got %d %v", word, got, ok)
		}
	}
	for _, word := range []string{"", "abanxyz", "zz", "abandonment"} {
		if _, ok := en.Index(word); ok {
			t.Fatalf("word %q must not resolve", word)
		}
	}
}

func TestIndexFoldsAccents(t *testing.T) {
	es, _ := Builtin().FromCode("es")
	found := false
	for i := 0; i < es.Len(); i++ {
		word := es.Word(i)
		plain := es.fold(Normalize(word))
		if plain == Normalize(word) {
			continue
		}
		found = true
		got, ok := es.Index(strings.ToUpper(plain))
		if !ok || got != i {
			t.Fatalf("accent-free %q must resolve to %d, got %d %v", plain, i, got, ok)
		}
		break
	}
	if !found {
		t.Fatal("spanish dictionary should contain accented words")
	}
}

func TestChecksumPrefix(t *testing.T) {
	en, _ := Builtin().FromCode("en")
	if got := en.ChecksumPrefix(0); got != "aban" {
		t.Fatalf("expected aban, got %q", got)
	}
	if got := en.ChecksumPrefix(2047); got != "zoo" {
		t.Fatalf("expected zoo, got %q", got)
	}
	ja, _ := Builtin().FromCode("ja")
	if ja.ChecksumPrefix(0) != Normalize(ja.Word(0)) {
		t.Fatal("languages without prefix length hash the whole word")
	}
	if ja.Separator() != "　" {
		t.Fatal("japanese phrases use the ideographic space")
	}
}

func TestParseFamily(t *testing.T) {
	for raw, want := range map[string]Family{"legacy": Legacy, "Standard": Standard, "25": Standard, "polyseed": Poly} {
		got, err := ParseFamily(raw)
		if err != nil || got != want {
			t.Fatalf("parse %q: %v %v", raw, got, err)
		}
	}
	if _, err := ParseFamily("bip39"); !errors.Is(err, ErrUnknownFamily) {
		t.Fatalf("expected ErrUnknownFamily, got %v", err)
	}
	if Legacy.WordCount() != 13 || Standard.WordCount() != 25 || Poly.WordCount() != 16 {
		t.Fatal("unexpected word counts")
	}
	if Legacy.Encryptable() || !Standard.Encryptable() || !Poly.Encryptable() {
		t.Fatal("only standard and poly are encryptable")
	}
}
