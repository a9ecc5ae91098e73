package wallet

import (
	"fmt"
	"math/bits"
	"strings"

	"ots/go-core/internal/otserr"
)

var (
	ErrTransactionRejected = otserr.New(otserr.ErrDomain, "transaction rejected")
	ErrSignFailed          = otserr.New(otserr.ErrDomain, "transaction signing failed")
)

type Destination struct {
	Address string
	Amount  uint64
}

// TxDescription is the engine's summary of an unsigned transaction, in
// atomic units.
type TxDescription struct {
	Inputs       uint64
	Destinations []Destination
	Change       uint64
	Fee          uint64
}

// CheckTransaction applies the offline signing rules: at least one
// destination, no zero amounts or empty addresses, a non-zero fee, and
// inputs that balance outputs plus change and fee exactly.
func (w *Wallet) CheckTransaction(desc TxDescription) error {
	if len(desc.Destinations) == 0 {
		return fmt.Errorf("%w: no destinations", ErrTransactionRejected)
	}
	if desc.Fee == 0 {
		return fmt.Errorf("%w: zero fee", ErrTransactionRejected)
	}
	total := desc.Change
	var carry uint64
	total, carry = bits.Add64(total, desc.Fee, 0)
	for i, d := range desc.Destinations {
		if strings.TrimSpace(d.Address) == "" {
			return fmt.Errorf("%w: destination %d has no address", ErrTransactionRejected, i)
		}
		if w.engine != nil && !w.engine.ValidAddress(d.Address, w.network) {
			return fmt.Errorf("%w: destination %d address is invalid for %s", ErrTransactionRejected, i, w.network)
		}
		if d.Amount == 0 {
			return fmt.Errorf("%w: destination %d has zero amount", ErrTransactionRejected, i)
		}
		var c uint64
		total, c = bits.Add64(total, d.Amount, 0)
		carry |= c
	}
	if carry != 0 {
		return fmt.Errorf("%w: amounts overflow", ErrTransactionRejected)
	}
	if total != desc.Inputs {
		return fmt.Errorf("%w: inputs %d do not match outputs %d", ErrTransactionRejected, desc.Inputs, total)
	}
	return nil
}
