package linkerr

// Option is an Error option function
type Option func(*Error)

func WithOp(op string) Option       { return func(e *Error) { e.Op = op } }
func WithHandle(h uint32) Option    { return func(e *Error) { e.Handle = h } }
func WithCount(n int) Option        { return func(e *Error) { e.Count = n } }
func WithMessage(msg string) Option { return func(e *Error) { e.Message = msg } }
func WithCause(err error) Option    { return func(e *Error) { e.Err = err } }
