package miner

import (
	"errors"
	"fmt"
)

// AuthError indicates the miner rejected the request credential.
type AuthError struct {
	Miner    string
	Endpoint string
}

func (e AuthError) Error() string {
	return fmt.Sprintf("miner %s: %s: 401 unauthorized, check the access token", e.Miner, e.Endpoint)
}

// IsAuth returns true when err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var target AuthError
	return errors.As(err, &target)
}

// ConnError indicates a network-level failure or a non-2xx status that
// is not an authorization rejection.
type ConnError struct {
	Miner string
	URL   string
	Err   error
}

func (e ConnError) Error() string {
	return fmt.Sprintf("miner %s: connect %s: %v", e.Miner, e.URL, e.Err)
}

func (e ConnError) Unwrap() error {
	return e.Err
}

// IsConn returns true when err is (or wraps) a ConnError.
func IsConn(err error) bool {
	var target ConnError
	return errors.As(err, &target)
}

// ParseError indicates the miner answered 2xx with a body that is not
// valid JSON. XMRig is known to serve a garbled backends response for
// roughly the first fifteen minutes after a (re)start, so callers
// treat this as a transient failure rather than a fault.
type ParseError struct {
	Miner    string
	Endpoint string
	Err      error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("miner %s: decode %s response: %v", e.Miner, e.Endpoint, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// IsParse returns true when err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var target ParseError
	return errors.As(err, &target)
}
