package session

// Handler receives validated frames.
// Applications implement this interface.
type Handler interface {
	// OnFrame is called once per completed frame. frame aliases the
	// receive buffer and is only valid for the duration of the call.
	OnFrame(frame []byte)
}

// Validator checks a completed frame before it is delivered, typically
// by verifying a checksum trailer.
type Validator interface {
	// Validate returns false to silently drop frame.
	Validate(frame []byte) bool
}

// Transport writes raw bytes to the underlying link.
//
// Transmit returns the number of bytes of p accepted, which may be fewer
// than len(p). A non-nil error, or zero bytes accepted, is a failure.
type Transport interface {
	Transmit(p []byte) (n int, err error)
}

// SentHandler is notified after an asynchronous send completed.
type SentHandler interface {
	OnSent(payload []byte)
}

// HandlerFunc is a Handler function
type HandlerFunc func(frame []byte)

// OnFrame calls f(frame)
func (f HandlerFunc) OnFrame(frame []byte) { f(frame) }

// ValidatorFunc is a Validator function
type ValidatorFunc func(frame []byte) bool

// Validate returns f(frame)
func (f ValidatorFunc) Validate(frame []byte) bool { return f(frame) }

// TransportFunc is a Transport function
type TransportFunc func(p []byte) (int, error)

// Transmit returns f(p)
func (f TransportFunc) Transmit(p []byte) (int, error) { return f(p) }

// SentHandlerFunc is a SentHandler function
type SentHandlerFunc func(payload []byte)

// OnSent calls f(payload)
func (f SentHandlerFunc) OnSent(payload []byte) { f(payload) }

// ReceiverConfig configures the receive direction of a link.
type ReceiverConfig struct {
	// Buffer holds the frame being reassembled. Its length bounds the
	// largest frame payload accepted. Required.
	Buffer []byte
	// Handler is called with each accepted frame. Required.
	Handler Handler
	// Validator, if set, gates delivery to Handler.
	Validator Validator
}

// TransmitterConfig configures the transmit direction of a link.
type TransmitterConfig struct {
	// Buffer stages the encoded frame. It must hold at least
	// framing.MinTransmitBufferSize bytes.
	Buffer []byte
	// Transport receives the encoded frame. Required.
	Transport Transport
	// OnSent, if set, is called after each asynchronous send completes.
	OnSent SentHandler
}
