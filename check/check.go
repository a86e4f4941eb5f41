// Package check adds and verifies a CRC-32 trailer on frame payloads.
//
// The trailer is the Koopman CRC-32 of the payload, big endian. Senders
// append it before framing; receivers install Validator to drop
// corrupted frames and StripHandler to hand on the bare payload.
package check

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/andaru/sdll/session"
)

// Size is the length of the trailer.
const Size = 4

var koopman = crc32.MakeTable(crc32.Koopman)

// Sum returns the checksum of p.
func Sum(p []byte) uint32 { return crc32.Checksum(p, koopman) }

// Append appends payload and its trailer to dst.
func Append(dst, payload []byte) []byte {
	dst = append(dst, payload...)
	return binary.BigEndian.AppendUint32(dst, Sum(payload))
}

// Valid reports whether frame ends with the trailer of the bytes
// preceding it.
func Valid(frame []byte) bool {
	if len(frame) < Size {
		return false
	}
	n := len(frame) - Size
	return binary.BigEndian.Uint32(frame[n:]) == Sum(frame[:n])
}

// Strip returns frame without its trailer. frame must be Valid.
func Strip(frame []byte) []byte { return frame[:len(frame)-Size] }

// Validator is a session.Validator accepting frames with a good trailer.
var Validator session.Validator = session.ValidatorFunc(Valid)

// StripHandler returns a Handler passing validated frames to h without
// their trailer.
func StripHandler(h session.Handler) session.Handler {
	return session.HandlerFunc(func(frame []byte) { h.OnFrame(Strip(frame)) })
}
