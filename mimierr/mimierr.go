// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mimierr defines the single error-kind enumeration shared by every
// component of the boot path, mirroring the mimi_status_t / mimi_strerror
// table of the original firmware's core/loader.c: one flat set of numeric
// kinds that every layer returns without relabeling another layer's failure
// as its own.
package mimierr

import "fmt"

// Kind identifies which stage of the boot path failed. Numeric values are
// stable and double as the blink-code table index in package boot.
type Kind int

const (
	// KindNone is the zero value; never returned as an error.
	KindNone Kind = iota
	// KindPlatformInit covers platform/clock/HAL bring-up failures.
	KindPlatformInit
	// KindStorage covers SD/SPI card detection, command, and I/O failures.
	KindStorage
	// KindFilesystem covers FAT32 mount, path resolution, and read failures.
	KindFilesystem
	// KindFileNotFound covers a missing boot image or config file.
	KindFileNotFound
	// KindImageInvalid covers ELF32 header/program-header validation failures.
	KindImageInvalid
	// KindLoadFailed covers ELF32 segment copy, zero, or verify I/O failures.
	KindLoadFailed
	// KindNoMemory covers the 16-segment cap, an address outside any
	// writable RAM region, and overlapping segments.
	KindNoMemory
	// KindHandoff covers handoff descriptor construction failures.
	KindHandoff
	// KindConfig covers /boot.cfg parse failures.
	KindConfig
)

var kindNames = map[Kind]string{
	KindNone:         "none",
	KindPlatformInit: "platform initialization failed",
	KindStorage:      "storage initialization or I/O failed",
	KindFilesystem:   "filesystem mount or traversal failed",
	KindFileNotFound: "requested file not found",
	KindImageInvalid: "image validation failed",
	KindLoadFailed:   "image load failed",
	KindNoMemory:     "insufficient memory region or segment capacity",
	KindHandoff:      "handoff descriptor construction failed",
	KindConfig:       "boot configuration parse failed",
}

// String renders the human-readable name of k, matching the spirit of
// mimi_strerror in the original implementation.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// Error is a typed error carrying the Kind of failure plus the underlying
// cause, if any. Components never downgrade or relabel a Kind they did not
// originate: a Filesystem error returned by fat32 stays a Filesystem error
// all the way up through boot.Orchestrator.
type Error struct {
	Kind Kind
	Err  error
	// Detail is an optional short, human-readable elaboration (e.g. a path
	// or a register name) separate from the wrapped Err so callers that
	// only care about Kind never need to parse error strings.
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same Kind, enabling
// errors.Is(err, mimierr.New(mimierr.KindFileNotFound, nil)) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error of the given kind wrapping err, with an optional
// detail string.
func New(kind Kind, err error, detail ...string) *Error {
	d := ""
	if len(detail) > 0 {
		d = detail[0]
	}
	return &Error{Kind: kind, Err: err, Detail: d}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, returning
// ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if as(err, &e) {
		return e.Kind, true
	}
	return KindNone, false
}

// as is a tiny local errors.As to avoid importing errors just for this,
// since every other package already imports errors for Unwrap-compatible
// chains; kept here so mimierr has no import beyond fmt.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
