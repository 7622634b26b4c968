package swrcache

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies refresh failures.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindTimeout
	KindMalformed
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

var (
	ErrNetwork   = errors.New("swrcache: network error")
	ErrTimeout   = errors.New("swrcache: timeout")
	ErrMalformed = errors.New("swrcache: malformed response")
	ErrStorage   = errors.New("swrcache: storage error")

	ErrEmptyKey    = errors.New("swrcache: empty key")
	ErrNegativeTTL = errors.New("swrcache: negative ttl")
	ErrClosed      = errors.New("swrcache: fetcher closed")
)

// FetchError carries the key and kind of a failed refresh or persist.
// errors.Is matches the kind sentinel (a timeout also matches ErrNetwork)
// and the underlying cause.
type FetchError struct {
	Key  string
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("swrcache: %s %q: %v", e.Kind, e.Key, e.Err)
}

func (e *FetchError) Unwrap() []error {
	errs := make([]error, 0, 3)
	switch e.Kind {
	case KindNetwork:
		errs = append(errs, ErrNetwork)
	case KindTimeout:
		errs = append(errs, ErrTimeout, ErrNetwork)
	case KindMalformed:
		errs = append(errs, ErrMalformed)
	case KindStorage:
		errs = append(errs, ErrStorage)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of err, or KindUnknown when err is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func transportKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
