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

// Connection is a source of substreams: a capability for opening or
// accepting a bidirectional, typed message conduit. In carries the messages
// the caller receives; Out carries the messages the caller sends.
//
// On a client, Open acquires a fresh substream by asking a peer to accept
// one. On a server, the same method accepts the next substream a peer has
// opened. Both are expressed by this single method because the two roles
// differ only in which side initiates — the resulting Substream is
// symmetric.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call Open at the same time and must receive disjoint substreams.
type Connection[In, Out any] interface {
	Open(ctx context.Context) (Substream[In, Out], error)
}

// Substream is a single bidirectional, typed message conduit, split into an
// independently owned send half and receive half. It is single-use: it
// belongs to exactly one logical RPC call, from the moment Open returns it
// until both halves are closed.
//
// Holding only Recv keeps the peer's view of Send alive at the transport
// level — the peer does not observe end-of-stream merely because this side
// has stopped sending. The symmetric statement holds for holding only Send.
type Substream[In, Out any] struct {
	Send Sender[Out]
	Recv Receiver[In]
}

// Sender is the send half of a substream. It mirrors a bounded, backpressured
// sink: callers must poll Ready before every Send, and Send itself must never
// block.
//
// Ready is the substream's only send-side suspension point; it returns once
// the transport has room for one more item, or fails if the peer's receive
// half is gone, or is unblocked early by ctx.
//
// Send enqueues a single item that Ready has already admitted. It must not
// be called without a preceding successful Ready, and it must not suspend.
//
// Flush waits for previously sent items to be handed to the transport.
// Concrete transports that deliver eagerly (such as the in-memory transport)
// may implement this as a no-op beyond checking for peer failure.
//
// Close signals end-of-input to the peer. It is idempotent: calling it more
// than once, or after a failed send, must not panic.
type Sender[T any] interface {
	Ready(ctx context.Context) error
	Send(item T) error
	Flush(ctx context.Context) error
	Close() error
}

// Receiver is the receive half of a substream: a lazy, pull-based sequence.
// Recv returns the next item (ok == true), orderly end-of-stream
// (ok == false, err == nil), or a transport fault (ok == false, err != nil).
// Once Recv reports end-of-stream or a fault, every subsequent call must
// report the same outcome.
//
// Close releases the receive half without waiting for more items; concrete
// transports use it to tell the peer's Sender that nothing more will be
// read, which is what lets cancelling a stream propagate as peer closure.
type Receiver[T any] interface {
	Recv(ctx context.Context) (T, bool, error)
	Close() error
}
