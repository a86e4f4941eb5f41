/*
Package transport connects links to byte streams.

Writer adapts an io.Writer to the session.Transport interface used by
transmit sessions. Pump reads an io.Reader in chunks and feeds them to
the receive session of a link, continuing past frames too large for the
receive buffer.
*/
package transport
