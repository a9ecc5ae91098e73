// Package wallet is a view over one secret spend key and a restore height.
// Key derivation, message signing and transaction checks run here; address
// encoding and transaction cryptography are delegated to an Engine.
package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"ots/go-core/internal/chain"
	"ots/go-core/internal/handle"
	"ots/go-core/internal/keystore"
	"ots/go-core/internal/otserr"
	"ots/go-core/internal/primitives"
)

var (
	ErrNoEngine        = otserr.New(otserr.ErrDomain, "wallet has no transaction engine")
	ErrAddressNotFound = otserr.New(otserr.ErrNotFound, "address does not belong to wallet")
	ErrNoKey           = otserr.New(otserr.ErrInvalidArgument, "wallet needs a key")
)

// KeySource lends a jar-held key for the duration of fn.
type KeySource interface {
	Use(h handle.Handle, fn func(ks *keystore.KeyStore) error) error
}

type Lookahead struct {
	Accounts     uint32
	SubAddresses uint32
}

var DefaultLookahead = Lookahead{Accounts: 5, SubAddresses: 50}

type Option func(*Wallet)

func WithNetwork(net chain.Network) Option {
	return func(w *Wallet) { w.network = net }
}

func WithEngine(e Engine) Option {
	return func(w *Wallet) { w.engine = e }
}

func WithPrimitives(p primitives.Provider) Option {
	return func(w *Wallet) {
		if p != nil {
			w.prim = p
		}
	}
}

func WithLookahead(l Lookahead) Option {
	return func(w *Wallet) { w.lookahead = l }
}

// Wallet either owns its key or re-resolves it through a KeySource on
// every call; it never caches key bytes taken from a source.
type Wallet struct {
	own       *keystore.KeyStore
	src       KeySource
	h         handle.Handle
	height    uint64
	network   chain.Network
	engine    Engine
	prim      primitives.Provider
	lookahead Lookahead
}

func newWallet(height uint64, opts []Option) *Wallet {
	w := &Wallet{height: height, prim: primitives.Default, lookahead: DefaultLookahead}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// New copies key into a wallet-owned store. The caller wipes key.
func New(key []byte, height uint64, opts ...Option) (*Wallet, error) {
	w := newWallet(height, opts)
	ks, err := keystore.NewScalar(key, w.prim)
	if err != nil {
		return nil, err
	}
	w.own = ks
	return w, nil
}

// FromKeyStore takes ownership of ks; ks is wiped.
func FromKeyStore(ks *keystore.KeyStore, height uint64, opts ...Option) (*Wallet, error) {
	if !ks.Valid() {
		return nil, ErrNoKey
	}
	w := newWallet(height, opts)
	w.own = ks.Move()
	return w, nil
}

// FromSource builds a non-owning wallet over a jar entry.
func FromSource(src KeySource, h handle.Handle, height uint64, opts ...Option) (*Wallet, error) {
	if src == nil || !h.Valid() {
		return nil, ErrNoKey
	}
	w := newWallet(height, opts)
	w.src, w.h = src, h
	return w, nil
}

func (w *Wallet) RestoreHeight() uint64 { return w.height }

func (w *Wallet) Network() chain.Network { return w.network }

// Close wipes an owned key. Source-backed wallets hold nothing to wipe.
func (w *Wallet) Close() {
	w.own.Wipe()
}

// Keys is the full key set handed to the engine for one call.
type Keys struct {
	SpendSecret [32]byte
	ViewSecret  [32]byte
	SpendPublic [32]byte
	ViewPublic  [32]byte
}

func (k *Keys) Wipe() {
	for i := range k.SpendSecret {
		k.SpendSecret[i] = 0
		k.ViewSecret[i] = 0
	}
}

func (w *Wallet) withKeys(fn func(k *Keys) error) error {
	derive := func(ks *keystore.KeyStore) error {
		var keys Keys
		defer keys.Wipe()
		err := ks.With(func(spend []byte) error {
			copy(keys.SpendSecret[:], spend)
			return nil
		})
		if err != nil {
			return err
		}
		keys.ViewSecret = w.prim.HashToScalar(keys.SpendSecret[:])
		if keys.SpendPublic, err = w.prim.PublicKey(keys.SpendSecret[:]); err != nil {
			return err
		}
		if keys.ViewPublic, err = w.prim.PublicKey(keys.ViewSecret[:]); err != nil {
			return err
		}
		return fn(&keys)
	}
	if w.src != nil {
		return w.src.Use(w.h, derive)
	}
	if !w.own.Valid() {
		return keystore.ErrWiped
	}
	return derive(w.own)
}

func (w *Wallet) hexKey(pick func(k *Keys) []byte) (string, error) {
	var out string
	err := w.withKeys(func(k *Keys) error {
		out = hex.EncodeToString(pick(k))
		return nil
	})
	return out, err
}

// SecretSpendKey exports the secret spend key as hex.
func (w *Wallet) SecretSpendKey() (string, error) {
	return w.hexKey(func(k *Keys) []byte { return k.SpendSecret[:] })
}

// SecretViewKey exports the secret view key as hex.
func (w *Wallet) SecretViewKey() (string, error) {
	return w.hexKey(func(k *Keys) []byte { return k.ViewSecret[:] })
}

func (w *Wallet) PublicSpendKey() (string, error) {
	return w.hexKey(func(k *Keys) []byte { return k.SpendPublic[:] })
}

func (w *Wallet) PublicViewKey() (string, error) {
	return w.hexKey(func(k *Keys) []byte { return k.ViewPublic[:] })
}

func (w *Wallet) requireEngine() error {
	if w.engine == nil {
		return ErrNoEngine
	}
	return nil
}

// Address renders the subaddress (account, index); (0, 0) is the primary
// address.
func (w *Wallet) Address(account, index uint32) (string, error) {
	if err := w.requireEngine(); err != nil {
		return "", err
	}
	var addr string
	err := w.withKeys(func(k *Keys) error {
		var err error
		addr, err = w.engine.Address(k, w.network, account, index)
		return err
	})
	return addr, err
}

// Accounts lists the primary addresses of accounts [offset, offset+count).
func (w *Wallet) Accounts(count, offset uint32) ([]string, error) {
	return w.addressRange(count, offset, func(i uint32) (uint32, uint32) { return i, 0 })
}

// SubAddresses lists indices [offset, offset+count) of account.
func (w *Wallet) SubAddresses(account, count, offset uint32) ([]string, error) {
	return w.addressRange(count, offset, func(i uint32) (uint32, uint32) { return account, i })
}

func (w *Wallet) addressRange(count, offset uint32, at func(uint32) (uint32, uint32)) ([]string, error) {
	if err := w.requireEngine(); err != nil {
		return nil, err
	}
	if offset > math.MaxUint32-count {
		return nil, fmt.Errorf("%w: range %d+%d exceeds the index space", otserr.ErrInvalidArgument, offset, count)
	}
	out := make([]string, 0, min(count, 256))
	err := w.withKeys(func(k *Keys) error {
		for i := offset; i < offset+count; i++ {
			account, index := at(i)
			addr, err := w.engine.Address(k, w.network, account, index)
			if err != nil {
				return fmt.Errorf("subaddress %d/%d: %w", account, index, err)
			}
			out = append(out, addr)
		}
		return nil
	})
	return out, err
}

// AddressIndex searches the lookahead window for addr.
func (w *Wallet) AddressIndex(addr string) (account, index uint32, err error) {
	if err := w.requireEngine(); err != nil {
		return 0, 0, err
	}
	if !w.engine.ValidAddress(addr, w.network) {
		return 0, 0, fmt.Errorf("%w: invalid address", otserr.ErrInvalidArgument)
	}
	found := false
	err = w.withKeys(func(k *Keys) error {
		for a := uint32(0); a < w.lookahead.Accounts; a++ {
			for i := uint32(0); i < w.lookahead.SubAddresses; i++ {
				got, err := w.engine.Address(k, w.network, a, i)
				if err != nil {
					return err
				}
				if got == addr {
					account, index, found = a, i, true
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return 0, 0, ErrAddressNotFound
	}
	return account, index, nil
}

// HasAddress reports whether addr is one of the wallet's addresses. Invalid
// addresses are simply not owned.
func (w *Wallet) HasAddress(addr string) bool {
	_, _, err := w.AddressIndex(addr)
	return err == nil
}

func (w *Wallet) ImportOutputs(outputs []byte) (int, error) {
	if err := w.requireEngine(); err != nil {
		return 0, err
	}
	var n int
	err := w.withKeys(func(k *Keys) error {
		var err error
		n, err = w.engine.ImportOutputs(k, outputs)
		return err
	})
	return n, err
}

func (w *Wallet) ExportKeyImages() ([]byte, error) {
	if err := w.requireEngine(); err != nil {
		return nil, err
	}
	var out []byte
	err := w.withKeys(func(k *Keys) error {
		var err error
		out, err = w.engine.ExportKeyImages(k)
		return err
	})
	return out, err
}

func (w *Wallet) DescribeTransaction(unsigned []byte) (TxDescription, error) {
	if err := w.requireEngine(); err != nil {
		return TxDescription{}, err
	}
	var desc TxDescription
	err := w.withKeys(func(k *Keys) error {
		var err error
		desc, err = w.engine.DescribeTransaction(k, unsigned)
		return err
	})
	return desc, err
}

// CheckTransactionString describes an unsigned transaction and applies
// CheckTransaction to the result.
func (w *Wallet) CheckTransactionString(unsigned []byte) (TxDescription, error) {
	desc, err := w.DescribeTransaction(unsigned)
	if err != nil {
		return TxDescription{}, err
	}
	return desc, w.CheckTransaction(desc)
}

// SignTransaction refuses transactions that fail CheckTransaction.
func (w *Wallet) SignTransaction(unsigned []byte) ([]byte, error) {
	if _, err := w.CheckTransactionString(unsigned); err != nil {
		return nil, err
	}
	var signed []byte
	err := w.withKeys(func(k *Keys) error {
		var err error
		signed, err = w.engine.SignTransaction(k, unsigned)
		return err
	})
	if err != nil {
		return nil, errors.Join(ErrSignFailed, err)
	}
	return signed, nil
}
