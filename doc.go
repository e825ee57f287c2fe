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

// Package qrpc is a transport-agnostic, typed RPC client engine. It defines
// four interaction patterns — unary, server-streaming, client-streaming, and
// bidirectional streaming — as a single generic surface parameterized by a
// service's request and response types, together with a substream transport
// contract ([Connection], [Sender], [Receiver]) that any concrete transport
// can implement.
//
// This package deliberately stops at the client and the transport contract.
// It has no opinion about byte-level framing, serialization, or how a server
// dispatches incoming substreams to handlers; those are the concerns of a
// concrete transport (see the [transport/mem] package for a reference
// in-memory implementation) and of generated service code.
//
// [transport/mem]: https://pkg.go.dev/github.com/relaycore/qrpc/transport/mem
package qrpc
