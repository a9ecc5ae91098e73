package seed

import (
	"time"

	"ots/go-core/internal/chain"
	"ots/go-core/internal/mnemonic"
	"ots/go-core/internal/primitives"
	"ots/go-core/internal/seedlang"
)

type options struct {
	registry  *seedlang.Registry
	lang      *seedlang.Language
	network   chain.Network
	height    *uint64
	birthday  *uint64
	encrypted bool
	coin      mnemonic.Coin
	estimator chain.Estimator
	prim      primitives.Provider
	now       func() time.Time
}

type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		registry:  seedlang.Builtin(),
		estimator: chain.Default,
		prim:      primitives.Default,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRegistry selects the language catalogue used for defaults.
func WithRegistry(r *seedlang.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithLanguage pins the dictionary; without it decode auto-detects and
// creation uses the family default.
func WithLanguage(l *seedlang.Language) Option {
	return func(o *options) { o.lang = l }
}

func WithNetwork(n chain.Network) Option {
	return func(o *options) { o.network = n }
}

// WithHeight makes the restore height authoritative.
func WithHeight(h uint64) Option {
	return func(o *options) { o.height = &h }
}

// WithBirthday makes the creation time (unix seconds) authoritative.
func WithBirthday(ts uint64) Option {
	return func(o *options) { o.birthday = &ts }
}

// WithEncrypted marks a standard phrase as password-protected.
func WithEncrypted(encrypted bool) Option {
	return func(o *options) { o.encrypted = encrypted }
}

func WithCoin(c mnemonic.Coin) Option {
	return func(o *options) { o.coin = c }
}

func WithEstimator(e chain.Estimator) Option {
	return func(o *options) {
		if e != nil {
			o.estimator = e
		}
	}
}

func WithPrimitives(p primitives.Provider) Option {
	return func(o *options) {
		if p != nil {
			o.prim = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func (o *options) checkAnchors() error {
	if o.birthday != nil && o.height != nil {
		return ErrAnchorConflict
	}
	if o.height != nil {
		return chain.CheckHeight(*o.height)
	}
	return nil
}
