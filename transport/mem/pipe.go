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
)

// pipe is one direction of a substream: a bounded queue of capacity items
// plus the bookkeeping needed to implement qrpc's Ready/Send/Flush/Close
// sink protocol on top of it.
//
// slots is a token bucket pre-filled with `capacity` tokens, one per free
// buffer slot. Ready reserves a token (blocking until one is free); Send
// consumes the reservation by pushing onto items; Recv returns a token to
// the bucket once it has taken an item off items. This is what lets Ready
// be the only suspension point while Send itself never blocks: by the time
// Send runs, room in items is already guaranteed.
type pipe[T any] struct {
	items    chan T
	slots    chan struct{}
	recvGone chan struct{}

	closeItemsOnce sync.Once
	closeRecvOnce  sync.Once
}

func newPipe[T any](capacity int) *pipe[T] {
	p := &pipe[T]{
		items:    make(chan T, capacity),
		slots:    make(chan struct{}, capacity),
		recvGone: make(chan struct{}),
	}
	for i := 0; i < capacity; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// sendHalf is the Sender side of a pipe.
type sendHalf[T any] struct {
	p        *pipe[T]
	reserved bool
}

func (s *sendHalf[T]) Ready(ctx context.Context) error {
	if s.reserved {
		return nil
	}
	select {
	case <-s.p.recvGone:
		return &SendError{}
	default:
	}
	select {
	case <-s.p.slots:
		s.reserved = true
		return nil
	case <-s.p.recvGone:
		return &SendError{}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *sendHalf[T]) Send(item T) error {
	select {
	case <-s.p.recvGone:
		return &SendError{}
	default:
	}
	s.p.items <- item
	s.reserved = false
	return nil
}

func (s *sendHalf[T]) Flush(ctx context.Context) error {
	select {
	case <-s.p.recvGone:
		return &SendError{}
	default:
		return nil
	}
}

func (s *sendHalf[T]) Close() error {
	s.p.closeItemsOnce.Do(func() { close(s.p.items) })
	return nil
}

// recvHalf is the Receiver side of a pipe.
type recvHalf[T any] struct {
	p *pipe[T]
}

func (r *recvHalf[T]) Recv(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case item, ok := <-r.p.items:
		if !ok {
			return zero, false, nil
		}
		select {
		case r.p.slots <- struct{}{}:
		default:
			// The pipe was drained beyond its original capacity (cannot
			// happen given how sendHalf reserves slots), so there is
			// nowhere to return the token. Safe to drop.
		}
		return item, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (r *recvHalf[T]) Close() error {
	r.p.closeRecvOnce.Do(func() { close(r.p.recvGone) })
	return nil
}
