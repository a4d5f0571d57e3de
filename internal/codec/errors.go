package codec

import "fmt"

// MalformedRequestError reports a payload that is not a valid sort request or response.
type MalformedRequestError struct {
	Reason string
	Err    error
}

func (e *MalformedRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed request: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed request: %s", e.Reason)
}

func (e *MalformedRequestError) Unwrap() error { return e.Err }

func malformed(err error, format string, args ...any) error {
	return &MalformedRequestError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// PayloadTooLargeError reports a message larger than the configured limit.
type PayloadTooLargeError struct {
	Size  int64
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds limit of %d bytes", e.Size, e.Limit)
}
