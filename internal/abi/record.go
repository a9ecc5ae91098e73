// Package abi is the foreign-function surface of the core. Every exported
// Bridge method returns a fixed-layout result carrying an ErrorRecord; no
// error or panic crosses the boundary.
package abi

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"ots/go-core/internal/otserr"
)

// Code is the numeric failure class written into ErrorRecord.Code.
type Code int32

const (
	CodeOK              Code = 0
	CodeInvalidArgument Code = 1
	CodeNotFound        Code = 2
	CodeDomain          Code = 3
	CodeNotImplemented  Code = 4
	CodeRateLimited     Code = 5
	CodeInternal        Code = -1
)

var ErrRateLimited = errors.New("too many attempts")

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeNotFound:
		return "not_found"
	case CodeDomain:
		return "domain_error"
	case CodeNotImplemented:
		return "not_implemented"
	case CodeRateLimited:
		return "rate_limited"
	case CodeInternal:
		return "internal"
	default:
		return fmt.Sprintf("code(%d)", int32(c))
	}
}

// CodeOf maps an error onto the bridge codes.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	if errors.Is(err, ErrRateLimited) {
		return CodeRateLimited
	}
	switch otserr.KindOf(err) {
	case otserr.KindInvalidArgument:
		return CodeInvalidArgument
	case otserr.KindNotFound:
		return CodeNotFound
	case otserr.KindDomain:
		return CodeDomain
	case otserr.KindNotImplemented:
		return CodeNotImplemented
	default:
		return CodeInternal
	}
}

// ErrorRecord has a fixed layout so callers on the other side of the
// boundary can allocate it. Strings are NUL-terminated UTF-8.
type ErrorRecord struct {
	Code     int32
	Message  [256]byte
	Location [64]byte
}

func (r *ErrorRecord) OK() bool { return r.Code == int32(CodeOK) }

func (r *ErrorRecord) MessageString() string { return CString(r.Message[:]) }

func (r *ErrorRecord) LocationString() string { return CString(r.Location[:]) }

// Err rebuilds a Go error from the record, or nil when it reports success.
func (r *ErrorRecord) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%s at %s: %s", Code(r.Code), r.LocationString(), r.MessageString())
}

func (r *ErrorRecord) set(code Code, loc, msg string) {
	*r = ErrorRecord{Code: int32(code)}
	putString(r.Message[:], msg)
	putString(r.Location[:], loc)
}

func (r *ErrorRecord) fail(loc string, err error) {
	r.set(CodeOf(err), loc, err.Error())
}

// putString copies s into dst, cutting at a rune boundary so that a NUL
// always fits.
func putString(dst []byte, s string) int {
	limit := len(dst) - 1
	if limit < 0 {
		return 0
	}
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	n := copy(dst, s)
	clear(dst[n:])
	return n
}

// CString reads a NUL-terminated buffer.
func CString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// guard turns a panic in a bridge method into an internal error record.
func guard(loc string, rec *ErrorRecord) {
	if p := recover(); p != nil {
		rec.set(CodeInternal, loc, fmt.Sprintf("panic: %v", p))
	}
}
