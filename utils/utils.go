// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: utils.go — Cold-path formatting & raw stderr output
//
// Purpose:
//   - Integer formatting without fmt for trace and diagnostic lines.
//   - Direct write(2) to stderr that bypasses os.File and its locking.
//
// Notes:
//   - Everything here is safe to call from participant goroutines; nothing
//     allocates beyond the returned string.
// ─────────────────────────────────────────────────────────────────────────────

package utils

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to a string without allocation.
// ⚠️ Caller must ensure the input slice remains valid and unchanged.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// Itoa formats a signed integer in base 10. Negative values carry a leading
// '-', which matters for the driver's sender identity.
//
//go:nosplit
//go:inline
func Itoa(n int) string {
	var buf [20]byte
	return string(AppendInt(buf[:0], int64(n)))
}

// AppendInt appends the base-10 form of n to dst. Used to build trace lines
// in one buffer without intermediate strings.
//
//go:nosplit
//go:inline
func AppendInt(dst []byte, n int64) []byte {
	var buf [20]byte
	i := len(buf)

	u := uint64(n)
	if n < 0 {
		u = uint64(-(n + 1)) + 1 // safe for the minimum int
	}

	for u >= 10 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	i--
	buf[i] = byte('0' + u)

	if n < 0 {
		i--
		buf[i] = '-'
	}
	return append(dst, buf[i:]...)
}

///////////////////////////////////////////////////////////////////////////////
// Raw Output
///////////////////////////////////////////////////////////////////////////////

// PrintWarning writes msg to file descriptor 2 with a single write(2).
// Short writes and errors are ignored: diagnostics must never fail a run.
//
//go:nosplit
//go:inline
func PrintWarning(msg string) {
	if len(msg) == 0 {
		return
	}
	_, _ = unix.Write(2, unsafe.Slice(unsafe.StringData(msg), len(msg)))
}
