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

// A service schema is never given a concrete Go type of its own: it is the
// pair of type parameters (Req, Res) threaded through Client and through the
// four message-kind interfaces below. Req is the union of every request and
// update shape the service accepts; Res is the union of every response
// shape it produces. Go has no sum types, so generated service code
// typically realizes Req and Res as an interface type (or `any`) with one
// concrete case per message kind, and implements the conversions below with
// type switches or assertions.
//
// A message kind is not a runtime tag: it is whichever of the four
// interfaces below a given type satisfies. The generic constraint on each of
// Call, ServerStream, ClientStream, and Bidi is the compile-time dispatch —
// a value that only implements UnaryMessage cannot be passed to Bidi, and
// the compiler, not a runtime check, enforces that.

// UnaryMessage describes a single-request, single-response call. Resp is
// the response type this particular message projects out of the service's
// response union Res.
type UnaryMessage[Req, Res, Resp any] interface {
	// ToRequest injects this message into the service's request union.
	ToRequest() Req
	// FromResponse attempts to project the service's response union into
	// this message's response type. ok is false when the server replied
	// with a different message kind's response.
	FromResponse(res Res) (resp Resp, ok bool)
}

// ServerStreamMessage describes a call whose request opens a stream of
// responses. Its method set is identical to UnaryMessage's; the two are
// kept as distinct interfaces so that Call and ServerStream each constrain
// their msg parameter to exactly the pattern they implement.
type ServerStreamMessage[Req, Res, Resp any] interface {
	ToRequest() Req
	FromResponse(res Res) (resp Resp, ok bool)
}

// ClientStreamMessage describes a call whose initial request is followed by
// a stream of caller-supplied updates, with a single response at the end.
// Upd is the update type accepted after the initial request.
type ClientStreamMessage[Req, Res, Upd, Resp any] interface {
	ToRequest() Req
	// ToUpdateRequest embeds an update into the service's request union.
	// Unlike FromResponse, this injection is total: every Upd value has a
	// corresponding Req value.
	ToUpdateRequest(update Upd) Req
	FromResponse(res Res) (resp Resp, ok bool)
}

// BidiStreamMessage describes a call whose initial request opens both an
// update stream from the caller and a response stream from the peer, with
// neither side's lifetime tied to the other.
type BidiStreamMessage[Req, Res, Upd, Resp any] interface {
	ToRequest() Req
	ToUpdateRequest(update Upd) Req
	FromResponse(res Res) (resp Resp, ok bool)
}
