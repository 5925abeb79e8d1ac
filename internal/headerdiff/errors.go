package headerdiff

// DecodingError is a protocol violation found while decoding a batch.
// Values compare by kind, so errors.Is(err, ErrMalformedStream) holds for
// every wrapped cause.
type DecodingError struct {
	msg string
	error
}

func (e DecodingError) Error() string {
	if e.error != nil {
		return "headerdiff: " + e.msg + ": " + e.error.Error()
	}
	return "headerdiff: " + e.msg
}

func (e DecodingError) Wrap(err error) DecodingError {
	if err == nil {
		return e
	}
	return DecodingError{e.msg, err}
}

func (e DecodingError) Unwrap() error {
	return e.error
}

func (e DecodingError) Is(err error) bool {
	if err, ok := err.(DecodingError); ok {
		return e.msg == err.msg
	}
	return false
}

var (
	ErrTableSizeExceeded = DecodingError{"header table size exceeded", nil}
	ErrMalformedStream   = DecodingError{"malformed stream", nil}
	// ErrDecoderFailed is returned by every call after a failed decode until
	// the decoder is reset.
	ErrDecoderFailed = DecodingError{"decoder state discarded after earlier failure", nil}
)
