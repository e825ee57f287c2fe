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

import "context"

// Client binds a service's (Req, Res) schema to a substream source. It is
// the entry point for the four interaction-pattern functions below.
//
// A Client is a thin, copyable wrapper around its Connection; it carries no
// state of its own, so its zero value is unusable but a Client value itself
// needs no special handling for concurrent use beyond whatever its
// Connection provides.
type Client[Req, Res any] struct {
	conn Connection[Res, Req]
}

// NewClient wraps a Connection as a Client for the given request and
// response types. The Connection's In is the service's Res and its Out is
// the service's Req, because from the client's perspective it receives
// responses and sends requests.
func NewClient[Req, Res any](conn Connection[Res, Req]) *Client[Req, Res] {
	return &Client[Req, Res]{conn: conn}
}

// open is the common prologue shared by all four interaction patterns: open
// a substream, then send the initial request. Any failure after Open
// succeeds also closes the substream before returning, so a failed prologue
// never leaks a half-open substream.
func open[Req, Res any](ctx context.Context, conn Connection[Res, Req], req Req) (Substream[Res, Req], *Error) {
	sub, err := conn.Open(ctx)
	if err != nil {
		return Substream[Res, Req]{}, NewError(CodeOpen, err)
	}
	if sendErr := sendRequest(ctx, sub.Send, req); sendErr != nil {
		_ = sub.Send.Close()
		_ = sub.Recv.Close()
		return Substream[Res, Req]{}, sendErr
	}
	return sub, nil
}

func sendRequest[Req any](ctx context.Context, send Sender[Req], req Req) *Error {
	if err := send.Ready(ctx); err != nil {
		return NewError(CodeSend, err)
	}
	if err := send.Send(req); err != nil {
		return NewError(CodeSend, err)
	}
	if err := send.Flush(ctx); err != nil {
		return NewError(CodeSend, err)
	}
	return nil
}

// recvOne awaits exactly one inbound message, the shape shared by Call and
// the client-streaming response future.
func recvOne[Res, Resp any](ctx context.Context, recv Receiver[Res], project func(Res) (Resp, bool)) (Resp, *Error) {
	var zero Resp
	item, ok, err := recv.Recv(ctx)
	if !ok {
		if err != nil {
			return zero, NewError(CodeRecv, err)
		}
		return zero, NewError(CodeEarlyClose, nil)
	}
	resp, ok := project(item)
	if !ok {
		return zero, NewError(CodeDowncast, nil)
	}
	return resp, nil
}

// Call performs a unary RPC: exactly one request, exactly one response.
//
// The substream's send half is kept open across the Recv call and only
// closed once the response has been fully projected (via defer), so the
// peer observes the request as fully committed rather than cancelled
// mid-flight.
func Call[Req, Res, Resp any, M UnaryMessage[Req, Res, Resp]](ctx context.Context, client *Client[Req, Res], msg M) (Resp, error) {
	var zero Resp
	sub, err := open[Req, Res](ctx, client.conn, msg.ToRequest())
	if err != nil {
		return zero, err
	}
	defer func() {
		_ = sub.Send.Close()
		_ = sub.Recv.Close()
	}()
	resp, recvErr := recvOne[Res, Resp](ctx, sub.Recv, msg.FromResponse)
	if recvErr != nil {
		return zero, recvErr
	}
	return resp, nil
}

// ServerStream performs a server-streaming RPC: one request, a stream of
// responses. The returned *ResponseStream anchors the substream's send
// half, so it is the caller's Close call on the stream — not this
// function's return — that tells the peer the call is over.
func ServerStream[Req, Res, Resp any, M ServerStreamMessage[Req, Res, Resp]](ctx context.Context, client *Client[Req, Res], msg M) (*ResponseStream[Req, Res, Resp], error) {
	sub, err := open[Req, Res](ctx, client.conn, msg.ToRequest())
	if err != nil {
		return nil, err
	}
	return &ResponseStream[Req, Res, Resp]{
		recv:    sub.Recv,
		anchor:  sub.Send,
		project: msg.FromResponse,
	}, nil
}

// ClientStream performs a client-streaming RPC: one request, a stream of
// caller-supplied updates, and a single response awaited after the caller
// closes the update sink (or the peer replies early).
//
// The response is awaited on a background goroutine started before
// ClientStream returns, so the caller may send updates and await the
// response in either order.
func ClientStream[Req, Res, Upd, Resp any, M ClientStreamMessage[Req, Res, Upd, Resp]](ctx context.Context, client *Client[Req, Res], msg M) (*UpdateSink[Req, Upd], *ClientStreamResponse[Resp], error) {
	sub, err := open[Req, Res](ctx, client.conn, msg.ToRequest())
	if err != nil {
		return nil, nil, err
	}
	sink := &UpdateSink[Req, Upd]{send: sub.Send, inject: msg.ToUpdateRequest}
	ch := make(chan clientStreamResult[Resp], 1)
	go func() {
		defer sub.Recv.Close()
		resp, recvErr := recvOne[Res, Resp](ctx, sub.Recv, msg.FromResponse)
		if recvErr != nil {
			ch <- clientStreamResult[Resp]{err: recvErr}
			return
		}
		ch <- clientStreamResult[Resp]{resp: resp}
	}()
	return sink, &ClientStreamResponse[Resp]{ch: ch}, nil
}

// Bidi performs a bidirectional-streaming RPC: one request, independent
// streams of caller updates and peer responses. Closing the update sink
// signals end-of-input to the peer; closing the response stream only tears
// down the receive half, since neither half's lifetime is tied to the
// other.
func Bidi[Req, Res, Upd, Resp any, M BidiStreamMessage[Req, Res, Upd, Resp]](ctx context.Context, client *Client[Req, Res], msg M) (*UpdateSink[Req, Upd], *ResponseStream[Req, Res, Resp], error) {
	sub, err := open[Req, Res](ctx, client.conn, msg.ToRequest())
	if err != nil {
		return nil, nil, err
	}
	sink := &UpdateSink[Req, Upd]{send: sub.Send, inject: msg.ToUpdateRequest}
	stream := &ResponseStream[Req, Res, Resp]{
		recv:    sub.Recv,
		anchor:  nil,
		project: msg.FromResponse,
	}
	return sink, stream, nil
}
