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

import (
	"context"
	"io"
)

// UpdateSink is returned by ClientStream and Bidi. It accepts a message
// kind's Upd values, injects each into the service's request union, and
// forwards the result on the substream's send half. Injection is total, so
// unlike the response side there is no downcast error here.
type UpdateSink[Req, Upd any] struct {
	send   Sender[Req]
	inject func(Upd) Req
}

// Ready waits until the sink can accept one more update.
func (s *UpdateSink[Req, Upd]) Ready(ctx context.Context) error {
	if err := s.send.Ready(ctx); err != nil {
		return NewError(CodeSend, err)
	}
	return nil
}

// Send forwards a single update. Callers must call Ready immediately before
// every Send.
func (s *UpdateSink[Req, Upd]) Send(update Upd) error {
	if err := s.send.Send(s.inject(update)); err != nil {
		return NewError(CodeSend, err)
	}
	return nil
}

// Flush waits for previously sent updates to be handed to the transport.
func (s *UpdateSink[Req, Upd]) Flush(ctx context.Context) error {
	if err := s.send.Flush(ctx); err != nil {
		return NewError(CodeSend, err)
	}
	return nil
}

// Close signals end-of-input to the peer. For a bidi call this is what
// tells the peer the caller is done sending updates; for a client-streaming
// call, closing before awaiting the response is how the caller indicates it
// has no more updates to send.
func (s *UpdateSink[Req, Upd]) Close() error {
	if err := s.send.Close(); err != nil {
		return NewError(CodeSend, err)
	}
	return nil
}

// ResponseStream is returned by ServerStream and Bidi. It projects each
// inbound message through the message kind's response projection. A
// downcast failure is reported for that one item and the stream continues;
// a Recv failure is reported as CodeRecv.
//
// For a server-streaming call, ResponseStream anchors the substream's send
// half (anchor != nil): the request was already fully sent in the common
// prologue, but the send half is kept open for the stream's entire lifetime
// so the peer does not observe the call as cancelled until Close is called.
// That Close call — not substream creation, not the first Next — is what
// signals end-of-call to the peer. For a bidi call, the response stream and
// the update sink are independent, so anchor is nil and Close only tears
// down the receive half.
type ResponseStream[Req, Res, Resp any] struct {
	recv    Receiver[Res]
	anchor  Sender[Req]
	project func(Res) (Resp, bool)
}

// Next returns the next projected response, io.EOF when the peer has
// closed the stream in good order, or an *Error wrapping CodeRecv or
// CodeDowncast.
func (s *ResponseStream[Req, Res, Resp]) Next(ctx context.Context) (Resp, error) {
	var zero Resp
	item, ok, err := s.recv.Recv(ctx)
	if !ok {
		if err != nil {
			return zero, NewError(CodeRecv, err)
		}
		return zero, io.EOF
	}
	resp, ok := s.project(item)
	if !ok {
		return zero, NewError(CodeDowncast, nil)
	}
	return resp, nil
}

// Close tears down the stream. It closes the receive half and, for a
// server-streaming call, the anchored send half as well — the one call a
// caller must make (directly, or via defer) to end the call instead of
// merely abandoning it.
func (s *ResponseStream[Req, Res, Resp]) Close() error {
	err := s.recv.Close()
	if s.anchor != nil {
		if cerr := s.anchor.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// clientStreamResult carries the single response a ClientStreamResponse
// resolves to, or the error that prevented it.
type clientStreamResult[Resp any] struct {
	resp Resp
	err  error
}

// ClientStreamResponse is the future half of a client-streaming call. A
// goroutine started by ClientStream awaits exactly one inbound message and
// delivers its projection (or error) here; Wait receives it.
type ClientStreamResponse[Resp any] struct {
	ch <-chan clientStreamResult[Resp]
}

// Wait blocks until the response arrives or ctx is cancelled, whichever
// happens first. It may be called at most once.
func (r *ClientStreamResponse[Resp]) Wait(ctx context.Context) (Resp, error) {
	select {
	case res := <-r.ch:
		return res.resp, res.err
	case <-ctx.Done():
		var zero Resp
		return zero, ctx.Err()
	}
}
