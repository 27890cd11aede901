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
	"sync"
	"time"
)

// MockHandler maps one canned request frame to a canned response
// frame (or an error), the "optional per-request hooks" of spec.md
// §9's replacement for monkey-patched socket I/O.
type MockHandler func(request []byte) (response []byte, err error)

// MockTransport is the in-memory Transport implementation used by
// tests in place of a real broker. It implements the same blocking
// contract as tcpTransport but resolves instantly; a handler or a
// canned FIFO queue of responses decides what Receive returns.
type MockTransport struct {
	mu      sync.Mutex
	alive   bool
	handler MockHandler
	queue   [][]byte
	pending []byte
	host    string
	port    int32
}

// NewMockTransport builds a MockTransport backed by a handler function
// invoked once per Send with the full request frame.
func NewMockTransport(handler MockHandler) *MockTransport {
	return &MockTransport{handler: handler}
}

// NewMockTransportQueue builds a MockTransport that returns the given
// response frames in order, one per Send, ignoring request content.
func NewMockTransportQueue(responses ...[]byte) *MockTransport {
	m := &MockTransport{}
	m.queue = append(m.queue, responses...)
	return m
}

func (m *MockTransport) Open(_ context.Context, host string, port int32, _ time.Duration, _ IPVersion, _ *SASLConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.host, m.port = host, port
	m.alive = true
	return nil
}

func (m *MockTransport) Send(_ context.Context, b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alive {
		return newError(NoConnection, nil, "mock transport closed")
	}

	if m.handler != nil {
		resp, err := m.handler(b)
		if err != nil {
			m.alive = false
			return err
		}
		m.pending = append(m.pending, resp...)
		return nil
	}

	if len(m.queue) == 0 {
		return newError(CannotSend, nil, "mock transport queue exhausted")
	}
	m.pending = append(m.pending, m.queue[0]...)
	m.queue = m.queue[1:]
	return nil
}

func (m *MockTransport) Receive(_ context.Context, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alive {
		return nil, newError(NoConnection, nil, "mock transport closed")
	}
	if len(m.pending) < n {
		return nil, newError(CannotRecv, nil, "mock transport: short read, wanted %d had %d", n, len(m.pending))
	}
	out := m.pending[:n]
	m.pending = m.pending[n:]
	return out, nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive = false
	return nil
}

func (m *MockTransport) IsAlive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive
}
