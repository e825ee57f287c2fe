// Copyright 2021-2022 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package qrpc

import "fmt"

// Code classifies the phase of a call at which it failed. Every error this
// package returns can be cast to *Error using the standard library's
// errors.As, and its Code inspected with errors.As or a direct assertion,
// except io.EOF from ResponseStream.Next at end of stream and ctx.Err()
// from ClientStreamResponse.Wait when its context ends first.
type Code uint8

const (
	// CodeOpen means the substream itself could not be acquired: the peer
	// has no capacity to accept, has been dropped, or the transport is
	// shut down. Not retriable at this layer.
	CodeOpen Code = iota + 1
	// CodeSend means the substream opened but the initial request (or, for
	// an UpdateSink, a later update) could not be delivered: the peer
	// closed its receive half. At-least-once delivery is not guaranteed
	// for the in-flight item.
	CodeSend
	// CodeEarlyClose means the peer closed the substream before sending a
	// response. Only surfaced by the unary and client-streaming patterns,
	// and only for the first (and only) response message.
	CodeEarlyClose
	// CodeRecv means the transport itself failed while waiting for a
	// response; the receive half is terminated.
	CodeRecv
	// CodeDowncast means a response arrived but did not match the message
	// kind's expected response type. For streaming responses this
	// terminates only the one item; the stream continues.
	CodeDowncast
)

// String returns the Code's name, e.g. "open" or "downcast".
func (c Code) String() string {
	switch c {
	case CodeOpen:
		return "open"
	case CodeSend:
		return "send"
	case CodeEarlyClose:
		return "early_close"
	case CodeRecv:
		return "recv"
	case CodeDowncast:
		return "downcast"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

// Error is the single error type the public functions in this package
// return (apart from the two exceptions listed on Code). Rather than one bespoke error type per interaction pattern, a
// single type carries a Code discriminator: callers that care about the
// failure phase switch on Code, and callers that only care about the
// underlying transport failure use errors.Unwrap or errors.As against the
// cause.
type Error struct {
	Code  Code
	cause error
}

// NewError constructs an *Error with the given code, optionally wrapping a
// cause. cause may be nil, for codes like CodeEarlyClose and CodeDowncast
// that have no underlying transport error.
func NewError(code Code, cause error) *Error {
	return &Error{Code: code, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("qrpc: %s: %s", e.Code, e.cause)
	}
	return fmt.Sprintf("qrpc: %s", e.Code)
}

// Unwrap returns the underlying transport error, if any, so that callers can
// use the standard library's errors.Is and errors.As against it.
func (e *Error) Unwrap() error {
	return e.cause
}
