// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import "github.com/milkmanabi/mimiboot/mimierr"

// Blink codes, matching main.c's BLINK_* constants exactly: the number of
// times the status LED should flash to surface a failure with no other
// output channel available.
const (
	BlinkInitFail      = 2
	BlinkStorageFail   = 3
	BlinkFSFail        = 4
	BlinkFileNotFound  = 5
	BlinkELFInvalid    = 6
	BlinkLoadFail      = 7
	BlinkNoMemory      = 8
)

var blinkByKind = map[mimierr.Kind]int{
	mimierr.KindPlatformInit: BlinkInitFail,
	mimierr.KindStorage:      BlinkStorageFail,
	mimierr.KindFilesystem:   BlinkFSFail,
	mimierr.KindFileNotFound: BlinkFileNotFound,
	mimierr.KindImageInvalid: BlinkELFInvalid,
	mimierr.KindLoadFailed:   BlinkLoadFail,
	mimierr.KindNoMemory:     BlinkNoMemory,
	mimierr.KindHandoff:      BlinkLoadFail,
	mimierr.KindConfig:       BlinkFSFail,
}

// BlinkCode maps an error Kind to the blink code an LED-driving caller
// should flash, matching the original's boot_fail dispatch. Unknown kinds
// map to BlinkInitFail, the original's catch-all.
func BlinkCode(kind mimierr.Kind) int {
	if code, ok := blinkByKind[kind]; ok {
		return code
	}
	return BlinkInitFail
}

// BlinkCodeForError extracts the Kind from err (if any) and returns its
// blink code, defaulting to BlinkInitFail for an unrecognized error.
func BlinkCodeForError(err error) int {
	kind, ok := mimierr.KindOf(err)
	if !ok {
		return BlinkInitFail
	}
	return BlinkCode(kind)
}
