/*
 *  Copyright (c) 2011 NeuStar, Inc.
 *  All rights reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package kafkacore

import (
	"context"
	"time"
)

// IPVersion selects which address family Transport.Open resolves to,
// per spec.md §4.4.
type IPVersion int

const (
	IPUnspecified IPVersion = iota
	IPv4
	IPv6
)

// SASLConfig configures the optional pre-handshake of spec.md §4.4.
// A zero value disables SASL entirely.
type SASLConfig struct {
	Mechanism string // "PLAIN", "SCRAM-SHA-256", or "SCRAM-SHA-512"
	Username  string
	Password  string
}

func (s *SASLConfig) enabled() bool { return s != nil && s.Mechanism != "" }

// Transport is one TCP endpoint, per spec.md §4.4. Two implementations
// are provided: tcpTransport (real sockets) and MockTransport
// (in-memory, for tests), chosen at Connection construction time, per
// the §9 redesign flag replacing monkey-patched socket I/O.
type Transport interface {
	// Open connects (and, if sasl is non-nil, performs the pre-handshake)
	// within the given timeout.
	Open(ctx context.Context, host string, port int32, timeout time.Duration, ipVersion IPVersion, sasl *SASLConfig) error
	// Send writes the full buffer or fails with CannotSend/IOTimeout.
	Send(ctx context.Context, b []byte) error
	// Receive returns exactly n bytes or fails with CannotRecv/IOTimeout.
	Receive(ctx context.Context, n int) ([]byte, error)
	Close() error
	IsAlive() bool
}
