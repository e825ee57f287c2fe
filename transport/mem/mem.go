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

package mem

import (
	"context"
	"sync"

	"github.com/relaycore/qrpc"
)

// substreamCapacity is the per-substream flow-control window: each
// direction of every substream this transport opens can hold this many
// unread items before its sender blocks in Ready. This is a fixed reference
// value, not a policy knob.
const substreamCapacity = 128

// link is the rendezvous shared by one ServerEndpoint/ClientEndpoint pair.
// A client Open sends the server-side substream half on rendezvous and
// keeps the client-side half for itself; a server Open (accept) receives it.
type link[Req, Res any] struct {
	rendezvous chan qrpc.Substream[Req, Res]
	closed     chan struct{}
	closeOnce  sync.Once
}

func (l *link[Req, Res]) close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

// ServerEndpoint is the server's view of an in-memory connection: its Open
// method accepts the next substream a ClientEndpoint has opened.
type ServerEndpoint[Req, Res any] struct {
	link *link[Req, Res]
}

// Open accepts the next substream, completing once a peer ClientEndpoint
// has opened one. It fails with *OpenError if the ClientEndpoint side has
// been closed, or with ctx.Err() if ctx is cancelled first.
func (e *ServerEndpoint[Req, Res]) Open(ctx context.Context) (qrpc.Substream[Req, Res], error) {
	select {
	case sub := <-e.link.rendezvous:
		return sub, nil
	case <-e.link.closed:
		return qrpc.Substream[Req, Res]{}, &OpenError{}
	case <-ctx.Done():
		return qrpc.Substream[Req, Res]{}, ctx.Err()
	}
}

// Close marks this endpoint as gone: pending and future ClientEndpoint.Open
// calls on the paired endpoint fail with *OpenError. It is idempotent.
func (e *ServerEndpoint[Req, Res]) Close() error {
	e.link.close()
	return nil
}

// ClientEndpoint is the client's view of an in-memory connection: its Open
// method asks the paired ServerEndpoint to accept a fresh substream.
type ClientEndpoint[Req, Res any] struct {
	link *link[Req, Res]
}

// Open allocates a fresh substream — two bounded pipes, one per direction —
// and hands the server-side half to the peer ServerEndpoint's Open (accept).
// It completes with the client-side half once that handoff succeeds,
// blocking if `buffer` opens are already pending a server accept. It fails with
// *OpenError if the ServerEndpoint has been closed, or with ctx.Err() if
// ctx is cancelled first.
func (e *ClientEndpoint[Req, Res]) Open(ctx context.Context) (qrpc.Substream[Res, Req], error) {
	c2s := newPipe[Req](substreamCapacity)
	s2c := newPipe[Res](substreamCapacity)

	serverSub := qrpc.Substream[Req, Res]{
		Send: &sendHalf[Res]{p: s2c},
		Recv: &recvHalf[Req]{p: c2s},
	}
	clientSub := qrpc.Substream[Res, Req]{
		Send: &sendHalf[Req]{p: c2s},
		Recv: &recvHalf[Res]{p: s2c},
	}

	select {
	case <-e.link.closed:
		return qrpc.Substream[Res, Req]{}, &OpenError{}
	default:
	}
	select {
	case e.link.rendezvous <- serverSub:
		return clientSub, nil
	case <-e.link.closed:
		return qrpc.Substream[Res, Req]{}, &OpenError{}
	case <-ctx.Done():
		return qrpc.Substream[Res, Req]{}, ctx.Err()
	}
}

// Close marks this endpoint as gone: pending and future ServerEndpoint.Open
// (accept) calls on the paired endpoint fail with *OpenError. It is
// idempotent.
func (e *ClientEndpoint[Req, Res]) Close() error {
	e.link.close()
	return nil
}

// Connection creates a paired (*ServerEndpoint, *ClientEndpoint) sharing an
// internal rendezvous channel of capacity buffer — the backlog of opens a
// ClientEndpoint may complete before a ServerEndpoint has accepted them.
// Req and Res are the service's request and response types; Req flows
// client-to-server, Res flows server-to-client.
func Connection[Req, Res any](buffer int) (*ServerEndpoint[Req, Res], *ClientEndpoint[Req, Res]) {
	l := &link[Req, Res]{
		rendezvous: make(chan qrpc.Substream[Req, Res], buffer),
		closed:     make(chan struct{}),
	}
	return &ServerEndpoint[Req, Res]{link: l}, &ClientEndpoint[Req, Res]{link: l}
}
