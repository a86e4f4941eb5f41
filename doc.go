/*
Package sdll is a simple data link layer for byte stream transports.

It turns an unbounded, arbitrarily chunked byte stream, such as the
output of a UART, into discrete frames and back. A frame is a payload
between two boundary bytes (0x7E); payload bytes equal to the boundary
or to the escape byte (0x7D) are sent as the escape byte followed by the
original byte XOR 0x20. There is no acknowledgement or retransmission: a
corrupt or oversized frame is dropped and decoding resumes at the next
boundary.

The packages build on each other:

	framing    encoder and incremental byte-at-a-time decoder
	session    receive and transmit sessions over caller owned buffers
	registry   handle based table of links with optional locking and
	           asynchronous dispatch
	transport  io.Writer and io.Reader adapters
	check      CRC-32 payload trailer and validator
	config     TOML and XML configuration
	linkerr    error kinds reported by the registry

See cmd/sdllctl for a command line front end.
*/
package sdll
