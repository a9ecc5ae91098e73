package seedlang

import (
	"fmt"
	"strings"

	"ots/go-core/internal/otserr"
)

// Family selects the mnemonic scheme: word count, checksum and whether the
// encoded values can be encrypted.
type Family int

const (
	Legacy Family = iota
	Standard
	Poly
)

var ErrUnknownFamily = otserr.New(otserr.ErrInvalidArgument, "unknown seed family")

// Families lists every family in a stable order.
func Families() []Family {
	return []Family{Legacy, Standard, Poly}
}

func (f Family) String() string {
	switch f {
	case Legacy:
		return "legacy"
	case Standard:
		return "standard"
	case Poly:
		return "poly"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

func (f Family) Valid() bool {
	return f == Legacy || f == Standard || f == Poly
}

// WordCount is the phrase length of the family including checksum words.
func (f Family) WordCount() int {
	switch f {
	case Legacy:
		return 13
	case Standard:
		return 25
	case Poly:
		return 16
	default:
		return 0
	}
}

// Encryptable reports whether seeds of the family support password
// encryption of their encoded values.
func (f Family) Encryptable() bool {
	return f == Standard || f == Poly
}

func ParseFamily(raw string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "legacy", "13":
		return Legacy, nil
	case "standard", "monero", "25":
		return Standard, nil
	case "poly", "polyseed", "16":
		return Poly, nil
	default:
		return Legacy, fmt.Errorf("%w: %q", ErrUnknownFamily, raw)
	}
}
