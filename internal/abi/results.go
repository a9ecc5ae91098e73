package abi

import "ots/go-core/internal/keystore"

type HandleResult struct {
	Handle uint64
	Error  ErrorRecord
}

type BoolResult struct {
	Value bool
	Error ErrorRecord
}

// KeyResult carries 32 bytes of key material. Callers wipe it.
type KeyResult struct {
	Key   [keystore.Size]byte
	Error ErrorRecord
}

type SignatureResult struct {
	Signature [64]byte
	Error     ErrorRecord
}

// TextResult holds a NUL-terminated phrase; the longest 25-word phrase in
// the builtin catalogue fits comfortably.
type TextResult struct {
	Text  [1024]byte
	Error ErrorRecord
}

func (r *TextResult) String() string { return CString(r.Text[:]) }

type SeedInfoResult struct {
	Family      int32
	Network     int32
	Encrypted   bool
	HasBirthday bool
	HasHeight   bool
	Birthday    uint64
	Height      uint64
	Language    [16]byte
	Fingerprint [32]byte
	Error       ErrorRecord
}

// WalletKeysResult holds hex keys. The secret spend key is only reachable
// through Bridge.ExportKey.
type WalletKeysResult struct {
	PublicSpend [65]byte
	PublicView  [65]byte
	SecretView  [65]byte
	Error       ErrorRecord
}

type VersionResult struct {
	Major   int32
	Minor   int32
	Patch   int32
	Version [32]byte
	Error   ErrorRecord
}
