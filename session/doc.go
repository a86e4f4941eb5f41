/*
Package session offers the per-direction working state of a link.

A Receiver wraps a framing.Decoder with a caller owned buffer and
delivers each completed frame to a Handler, optionally gated by a
Validator. A Transmitter encodes payloads into a caller owned staging
buffer and flushes the frame through a Transport.

Receive flow

Receiver.Feed consumes input until one frame completes, then returns so
the caller can decide what to do with the remainder of its chunk. A
single frame may span any number of Feed calls, including one byte per
call. Frames too large for the buffer reset the Receiver and report
ErrOverflow; decoding resumes at the next boundary.

Transmit flow

Transmitter.Send encodes the whole payload before the Transport is
touched. The Transport may accept fewer bytes than offered; the
remainder is offered again until the frame is flushed. A Transport
reporting an error, or no progress, aborts the send. Bytes already
handed to the Transport are not recalled: delivery is at most once.

Neither type is safe for concurrent use; see package registry for a
locking wrapper.
*/
package session
