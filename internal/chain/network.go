package chain

import (
	"fmt"
	"strings"

	"ots/go-core/internal/otserr"
)

type Network int

const (
	Main Network = iota
	Test
	Stage
)

var ErrUnknownNetwork = otserr.New(otserr.ErrInvalidArgument, "unknown network")

func (n Network) String() string {
	switch n {
	case Main:
		return "main"
	case Test:
		return "test"
	case Stage:
		return "stage"
	default:
		return fmt.Sprintf("network(%d)", int(n))
	}
}

func (n Network) Valid() bool {
	return n == Main || n == Test || n == Stage
}

// ParseNetwork accepts the short names as well as the common long forms
// ("mainnet", "testnet", "stagenet").
func ParseNetwork(raw string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "main", "mainnet":
		return Main, nil
	case "test", "testnet":
		return Test, nil
	case "stage", "stagenet":
		return Stage, nil
	default:
		return Main, fmt.Errorf("%w: %q", ErrUnknownNetwork, raw)
	}
}

func (n Network) MarshalText() ([]byte, error) {
	if !n.Valid() {
		return nil, ErrUnknownNetwork
	}
	return []byte(n.String()), nil
}

func (n *Network) UnmarshalText(text []byte) error {
	parsed, err := ParseNetwork(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
