package mnemonic

import "ots/go-core/internal/otserr"

var (
	ErrWordCount         = otserr.New(otserr.ErrInvalidArgument, "wrong number of words in the phrase")
	ErrUnknownWord       = otserr.New(otserr.ErrInvalidArgument, "word not in dictionary")
	ErrAmbiguousLanguage = otserr.New(otserr.ErrInvalidArgument, "phrase matches more than one language")
	ErrUnsupportedFamily = otserr.New(otserr.ErrInvalidArgument, "language does not support seed family")
	ErrKeySize           = otserr.New(otserr.ErrInvalidArgument, "wrong key size")
	ErrValueRange        = otserr.New(otserr.ErrInvalidArgument, "word value out of range")

	ErrChecksum            = otserr.New(otserr.ErrDomain, "checksum mismatch")
	ErrInvalidEncoding     = otserr.New(otserr.ErrDomain, "words do not encode a valid value")
	ErrUnsupportedFeatures = otserr.New(otserr.ErrDomain, "unsupported seed features")
	ErrWrongPassword       = otserr.New(otserr.ErrDomain, "wrong password")
	ErrPasswordRequired    = otserr.New(otserr.ErrInvalidArgument, "password is required")
	ErrNotEncryptable      = otserr.New(otserr.ErrDomain, "seed family does not support encryption")
)
