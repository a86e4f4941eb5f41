/*
Package framing offers the boundary/escape frame encoder and an
incremental, byte-at-a-time frame decoder.

A frame on the wire is a Boundary byte, the escaped payload and a closing
Boundary byte. Payload bytes equal to Boundary or Escape are replaced by
Escape followed by the byte XORed with EscapeMask.

Neither Encode nor Decoder allocate; both work on caller supplied buffers
and return ErrOverflow when those buffers are too small.
*/
package framing
