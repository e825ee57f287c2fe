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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/relaycore/qrpc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConnection_OpenCompletesOnAccept(t *testing.T) {
	ctx := context.Background()
	server, client := Connection[int, string](1)

	type openResult struct {
		sub qrpc.Substream[string, int]
		err error
	}
	done := make(chan openResult, 1)
	go func() {
		sub, err := client.Open(ctx)
		done <- openResult{sub: sub, err: err}
	}()

	serverSub, err := server.Open(ctx)
	require.NoError(t, err)

	res := <-done
	require.NoError(t, res.err)
	clientSub := res.sub
	require.NoError(t, clientSub.Send.Ready(ctx))
	require.NoError(t, clientSub.Send.Send(42))
	require.NoError(t, clientSub.Send.Flush(ctx))

	v, ok, err := serverSub.Recv.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	require.NoError(t, serverSub.Send.Ready(ctx))
	require.NoError(t, serverSub.Send.Send("ack"))

	v2, ok, err := clientSub.Recv.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ack", v2)

	require.NoError(t, clientSub.Send.Close())
	require.NoError(t, clientSub.Recv.Close())
	require.NoError(t, serverSub.Send.Close())
	require.NoError(t, serverSub.Recv.Close())
}

func TestServerEndpoint_OpenFailsAfterClientClosed(t *testing.T) {
	ctx := context.Background()
	server, client := Connection[int, string](1)
	require.NoError(t, client.Close())

	_, err := server.Open(ctx)
	require.Error(t, err)
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
}

func TestClientEndpoint_OpenFailsAfterServerClosed(t *testing.T) {
	ctx := context.Background()
	server, client := Connection[int, string](1)
	require.NoError(t, server.Close())

	_, err := client.Open(ctx)
	require.Error(t, err)
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
}

func TestClientEndpoint_OpenBlocksUntilContextDone(t *testing.T) {
	_, client := Connection[int, string](0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Open(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestPipe_BackpressureBlocksReadyUntilDrained pins down the flow-control
// window on a 2-slot pipe: filling the buffer exactly saturates it, and a
// further Ready only unblocks once a Recv frees a slot.
func TestPipe_BackpressureBlocksReadyUntilDrained(t *testing.T) {
	ctx := context.Background()
	p := newPipe[int](2)
	send := &sendHalf[int]{p: p}
	recv := &recvHalf[int]{p: p}

	require.NoError(t, send.Ready(ctx))
	require.NoError(t, send.Send(1))
	require.NoError(t, send.Ready(ctx))
	require.NoError(t, send.Send(2))

	readyDone := make(chan error, 1)
	go func() {
		readyDone <- send.Ready(context.Background())
	}()

	select {
	case <-readyDone:
		t.Fatal("Ready returned before any capacity was freed")
	case <-time.After(30 * time.Millisecond):
	}

	v, ok, err := recv.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case err := <-readyDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Ready did not unblock after Recv freed a slot")
	}
	require.NoError(t, send.Send(3))
}

// TestPipe_HoldingOnlyRecvKeepsPeerSenderAlive verifies the splitting
// invariant: closing one direction's send half leaves the opposite
// direction (and hence the peer's own sender, from the peer's point of
// view) completely unaffected.
func TestPipe_HoldingOnlyRecvKeepsPeerSenderAlive(t *testing.T) {
	ctx := context.Background()
	server, client := Connection[int, string](1)

	go func() {
		sub, _ := client.Open(ctx)
		_ = sub.Send.Ready(ctx)
		_ = sub.Send.Send(7)
	}()

	serverSub, err := server.Open(ctx)
	require.NoError(t, err)

	// Drop only the server's send half; its receive half (and thus the
	// client's send half, which is the same pipe from the other side)
	// must still work.
	require.NoError(t, serverSub.Send.Close())

	v, ok, err := serverSub.Recv.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestPipe_SendFailsAfterReceiverDropped(t *testing.T) {
	ctx := context.Background()
	p := newPipe[int](1)
	send := &sendHalf[int]{p: p}
	recv := &recvHalf[int]{p: p}

	require.NoError(t, recv.Close())

	err := send.Ready(ctx)
	require.Error(t, err)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
}

func TestPipe_CloseIsIdempotent(t *testing.T) {
	p := newPipe[int](1)
	send := &sendHalf[int]{p: p}
	recv := &recvHalf[int]{p: p}

	require.NoError(t, send.Close())
	require.NoError(t, send.Close())
	require.NoError(t, recv.Close())
	require.NoError(t, recv.Close())
}

func TestPipe_OrderlyCloseYieldsEndOfStream(t *testing.T) {
	ctx := context.Background()
	p := newPipe[int](4)
	send := &sendHalf[int]{p: p}
	recv := &recvHalf[int]{p: p}

	for _, v := range []int{1, 2, 3} {
		require.NoError(t, send.Ready(ctx))
		require.NoError(t, send.Send(v))
	}
	require.NoError(t, send.Close())

	for _, want := range []int{1, 2, 3} {
		v, ok, err := recv.Recv(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok, err := recv.Recv(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
