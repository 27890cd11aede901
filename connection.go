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
	"encoding/binary"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Connection is the cluster-aware router of spec.md §4.5: the heart of
// the system. It is a single-threaded cooperative object — see
// spec.md §5 — so every exported method must be serialized by the
// caller; there is no background goroutine anywhere in this type,
// unlike the teacher's BrokerConsumer.ConsumeOnChannel, which this
// repo intentionally does not carry forward (see DESIGN.md).
type Connection struct {
	cfg Config
	log *zap.Logger

	newTransport func() Transport

	meta *metadataCache

	mu            sync.Mutex
	transports    map[string]Transport
	breakers      map[string]*gobreaker.CircuitBreaker
	nextBrokerIdx int
	correlationId int32
	nonfatals     *multierror.Error
	clusterErr    map[string]error
	closed        bool
}

// NewConnection builds a Connection seeded with cfg.Host/cfg.Port and
// cfg.BrokerList, using real TCP transports.
func NewConnection(cfg Config) *Connection {
	return newConnection(cfg, func() Transport { return newTCPTransport() })
}

// NewConnectionWithTransport builds a Connection whose Transports are
// produced by newTransport instead of real TCP sockets — the seam
// connection_test.go uses to drive a Connection against an in-memory
// Transport, replacing the teacher's monkey-patched socket I/O (spec.md
// §9).
func NewConnectionWithTransport(cfg Config, newTransport func() Transport) *Connection {
	return newConnection(cfg, newTransport)
}

func newConnection(cfg Config, newTransport func() Transport) *Connection {
	seed := append([]BrokerMetadata{}, cfg.BrokerList...)
	if cfg.Host != "" {
		port := cfg.Port
		if port == 0 {
			port = DefaultPort
		}
		seed = append(seed, BrokerMetadata{Host: cfg.Host, Port: port})
	}
	return &Connection{
		cfg:           cfg,
		log:           cfg.logger(),
		newTransport:  newTransport,
		meta:          newMetadataCache(seed),
		transports:    map[string]Transport{},
		breakers:      map[string]*gobreaker.CircuitBreaker{},
		correlationId: cfg.CorrelationId,
		clusterErr:    map[string]error{},
	}
}

// --- observability (spec.md §4.5.7) ---

// KnownServers returns every broker endpoint this Connection has
// seeded or learned, as host:port strings.
func (c *Connection) KnownServers() []string {
	brokers := c.meta.knownBrokers()
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		out = append(out, b.Addr())
	}
	return out
}

// IsServerKnown reports whether ep appears in the broker list.
func (c *Connection) IsServerKnown(ep string) bool {
	for _, b := range c.meta.knownBrokers() {
		if b.Addr() == ep {
			return true
		}
	}
	return false
}

// IsServerAlive reports whether ep has an open, live Transport and its
// circuit breaker is not open.
func (c *Connection) IsServerAlive(ep string) bool {
	c.mu.Lock()
	t, hasT := c.transports[ep]
	br, hasBr := c.breakers[ep]
	c.mu.Unlock()
	if hasBr && br.State() == gobreaker.StateOpen {
		return false
	}
	return hasT && t.IsAlive()
}

// NonfatalErrors returns a copy of the accumulated non-fatal error
// log.
func (c *Connection) NonfatalErrors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nonfatals == nil {
		return nil
	}
	out := make([]error, len(c.nonfatals.Errors))
	copy(out, c.nonfatals.Errors)
	return out
}

// ClearNonfatals empties the non-fatal error log.
func (c *Connection) ClearNonfatals() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonfatals = nil
}

// ClusterErrors returns a copy of the per-endpoint last-error map.
func (c *Connection) ClusterErrors() map[string]error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]error, len(c.clusterErr))
	for k, v := range c.clusterErr {
		out[k] = v
	}
	return out
}

// CloseConnection drops the cached Transport for one endpoint, if any.
func (c *Connection) CloseConnection(ep string) error {
	c.mu.Lock()
	t, ok := c.transports[ep]
	delete(c.transports, ep)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return t.Close()
}

// Close drops every Transport and clears the transport cache and the
// per-topic routing tables; the broker list is kept. The Connection
// must not be used afterward.
func (c *Connection) Close() error {
	c.mu.Lock()
	transports := c.transports
	c.transports = map[string]Transport{}
	c.closed = true
	c.mu.Unlock()

	c.meta.mu.Lock()
	c.meta.topics = map[string]map[int32]PartitionInfo{}
	c.meta.mu.Unlock()

	var result *multierror.Error
	for _, t := range transports {
		if err := t.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// --- internal plumbing ---

func (c *Connection) appendNonfatal(ep string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonfatals = multierror.Append(c.nonfatals, err)
	if ep != "" {
		c.clusterErr[ep] = err
	}
}

// nextCorrelationId returns the next correlation ID, wrapping to 0
// rather than going negative once it would overflow int32, per
// spec.md §3's "wraps below a documented maximum".
func (c *Connection) nextCorrelationId() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.correlationId
	c.correlationId++
	if c.correlationId < 0 {
		c.correlationId = 0
	}
	return id
}

func (c *Connection) breakerFor(ep string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[ep]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        ep,
		MaxRequests: 1,
		Timeout:     c.cfg.backoff() * 5,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	c.breakers[ep] = b
	return b
}

// noteIOResult feeds the outcome of an I/O attempt against ep to its
// circuit breaker, so isServerAlive (and round-robin broker selection)
// reflects a run of fatal failures without changing the retry/backoff
// contract of spec.md §4.5.5 — the breaker is consulted for routing,
// not substituted for the retry loop.
func (c *Connection) noteIOResult(ep string, ioErr error) {
	br := c.breakerFor(ep)
	br.Execute(func() (interface{}, error) { return nil, ioErr })
}

// transportFor returns the cached live Transport for ep, opening a
// fresh one if none exists or the cached one has gone dead.
func (c *Connection) transportFor(ctx context.Context, ep BrokerMetadata) (Transport, error) {
	addr := ep.Addr()

	c.mu.Lock()
	if t, ok := c.transports[addr]; ok && t.IsAlive() {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	t := c.newTransport()
	if err := t.Open(ctx, ep.Host, ep.Port, c.cfg.Timeout, c.cfg.IPVersion, c.cfg.sasl()); err != nil {
		c.log.Debug("transport open failed", zap.String("endpoint", addr), zap.Error(err))
		c.noteIOResult(addr, err)
		if kerr, ok := err.(*Error); ok {
			return nil, withEndpoint(kerr, addr)
		}
		return nil, withEndpoint(newError(CannotBind, err, "open %s", addr), addr)
	}

	c.mu.Lock()
	c.transports[addr] = t
	c.mu.Unlock()
	c.noteIOResult(addr, nil)
	return t, nil
}

// sendFrame writes frame to ep's Transport, closing and discarding the
// Transport on failure.
func (c *Connection) sendFrame(ctx context.Context, ep BrokerMetadata, t Transport, frame []byte) error {
	if err := t.Send(ctx, frame); err != nil {
		c.CloseConnection(ep.Addr())
		c.noteIOResult(ep.Addr(), err)
		if kerr, ok := err.(*Error); ok {
			return withEndpoint(kerr, ep.Addr())
		}
		return withEndpoint(newError(CannotSend, err, "send to %s", ep.Addr()), ep.Addr())
	}
	c.noteIOResult(ep.Addr(), nil)
	return nil
}

// receiveFrame reads one length-prefixed response frame from t and
// verifies its correlation ID matches wantCorrelationId, per spec.md
// §4.5.3. On any failure, including a correlation mismatch, the
// Transport is closed.
func (c *Connection) receiveFrame(ctx context.Context, ep BrokerMetadata, t Transport, wantCorrelationId int32) ([]byte, error) {
	sizeBuf, err := t.Receive(ctx, 4)
	if err != nil {
		c.CloseConnection(ep.Addr())
		c.noteIOResult(ep.Addr(), err)
		if kerr, ok := err.(*Error); ok {
			return nil, withEndpoint(kerr, ep.Addr())
		}
		return nil, withEndpoint(newError(CannotRecv, err, "receive size from %s", ep.Addr()), ep.Addr())
	}
	size := int32(binary.BigEndian.Uint32(sizeBuf))
	if size < 4 {
		c.CloseConnection(ep.Addr())
		return nil, withEndpoint(newError(RequestOrResponseMalformed, nil, "response size %d too small", size), ep.Addr())
	}

	body, err := t.Receive(ctx, int(size))
	if err != nil {
		c.CloseConnection(ep.Addr())
		c.noteIOResult(ep.Addr(), err)
		if kerr, ok := err.(*Error); ok {
			return nil, withEndpoint(kerr, ep.Addr())
		}
		return nil, withEndpoint(newError(CannotRecv, err, "receive body from %s", ep.Addr()), ep.Addr())
	}

	gotCorrelationId := int32(binary.BigEndian.Uint32(body[0:4]))
	if gotCorrelationId != wantCorrelationId {
		c.CloseConnection(ep.Addr())
		return nil, withEndpoint(newError(MismatchCorrelationId, nil,
			"got correlation id %d, want %d", gotCorrelationId, wantCorrelationId), ep.Addr())
	}

	full := make([]byte, 0, 4+len(body))
	full = append(full, sizeBuf...)
	full = append(full, body...)
	c.noteIOResult(ep.Addr(), nil)
	return full, nil
}

// sleepBackoff waits backoffMs, or until ctx is done, whichever comes
// first, per spec.md §4.5.6. The fixed-delay duration itself comes
// from a cenkalti/backoff ConstantBackOff so the policy is expressed
// with the same library the retry loop is documented against, even
// though attempt counting stays under this loop's explicit control
// rather than backoff.Retry's.
func (c *Connection) sleepBackoff(ctx context.Context) {
	d := backoff.NewConstantBackOff(c.cfg.backoff()).NextBackOff()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// pickAnyBroker returns the next broker in round-robin order for a
// METADATA request, skipping endpoints whose circuit breaker is open,
// per spec.md §4.5.1/§4.5.2.
func (c *Connection) pickAnyBroker() (BrokerMetadata, error) {
	brokers := c.meta.knownBrokers()
	if len(brokers) == 0 {
		return BrokerMetadata{}, newError(NoKnownBrokers, nil, "no known brokers")
	}

	c.mu.Lock()
	start := c.nextBrokerIdx
	c.nextBrokerIdx++
	c.mu.Unlock()

	for i := 0; i < len(brokers); i++ {
		b := brokers[(start+i)%len(brokers)]
		c.mu.Lock()
		br, ok := c.breakers[b.Addr()]
		c.mu.Unlock()
		if ok && br.State() == gobreaker.StateOpen {
			continue
		}
		return b, nil
	}
	return brokers[start%len(brokers)], nil
}

// fetchMetadata issues one METADATA request against any reachable
// broker and merges the response into the cache, per spec.md §4.5.1.
// It has its own attempt budget, identical in shape to the main retry
// loop.
func (c *Connection) fetchMetadata(ctx context.Context, topics []string) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		ep, err := c.pickAnyBroker()
		if err != nil {
			return err
		}

		t, err := c.transportFor(ctx, ep)
		if err == nil {
			correlationId := c.nextCorrelationId()
			frame := EncodeMetadataRequest(correlationId, c.cfg.ClientId, 0, &MetadataRequest{Topics: topics})
			if err = c.sendFrame(ctx, ep, t, frame); err == nil {
				var respFrame []byte
				respFrame, err = c.receiveFrame(ctx, ep, t, correlationId)
				if err == nil {
					_, resp, decErr := DecodeMetadataResponse(respFrame)
					if decErr != nil {
						return decErr
					}
					if incompleteMetadata(resp, topics) {
						err = newError(CannotGetMetadata, nil, "incomplete metadata from %s", ep.Addr())
					} else {
						c.meta.merge(resp)
						return nil
					}
				}
			}
		}

		lastErr = err
		if kerr, ok := err.(*Error); ok && kerr.Retriable() {
			c.appendNonfatal(ep.Addr(), kerr)
			if attempt < c.cfg.MaxAttempts {
				c.sleepBackoff(ctx)
			}
			continue
		}
		return err
	}
	return lastErr
}

// incompleteMetadata reports whether the response leaves any
// requested topic without an elected, known leader, per spec.md
// §4.5.1.
func incompleteMetadata(resp *MetadataResponse, requested []string) bool {
	byNode := map[int32]bool{}
	for _, b := range resp.Brokers {
		byNode[b.NodeId] = true
	}
	for _, t := range resp.Topics {
		if t.ErrorCode == LeaderNotAvailable || t.ErrorCode == UnknownTopicOrPartition {
			if len(requested) == 0 {
				continue // "all topics" responses may legitimately list none yet
			}
			return true
		}
		for _, p := range t.Partitions {
			if p.LeaderNodeId < 0 || !byNode[p.LeaderNodeId] {
				return true
			}
		}
	}
	return false
}

// ensureMetadata guarantees the topic has a cached partition routing
// table, fetching it if absent.
func (c *Connection) ensureMetadata(ctx context.Context, topic string) error {
	if c.meta.hasTopic(topic) {
		return nil
	}
	return c.fetchMetadata(ctx, []string{topic})
}

// retryResult is what one attempt of the retry loop reports back.
type retryResult struct {
	code Code
	err  error
}

// withRetry drives the retry/backoff state machine of spec.md §4.5.5
// around a single attempt function. attempt performs one full
// round-trip (ensuring its own leader resolution) and reports either
// a protocol-level Code (success is NoError) or a transport/decode
// error.
func (c *Connection) withRetry(ctx context.Context, topic string, attempt func(ctx context.Context) retryResult) error {
	var lastErr error
	for n := 1; n <= c.cfg.MaxAttempts; n++ {
		if topic != "" {
			if err := c.ensureMetadata(ctx, topic); err != nil {
				if kerr, ok := err.(*Error); ok && kerr.Retriable() {
					c.appendNonfatal("", kerr)
					lastErr = kerr
					if n < c.cfg.MaxAttempts {
						c.sleepBackoff(ctx)
					}
					continue
				}
				return err
			}
		}

		res := attempt(ctx)
		if res.err == nil && res.code == NoError {
			return nil
		}

		var kerr *Error
		switch {
		case res.err != nil:
			if e, ok := res.err.(*Error); ok {
				kerr = e
			} else {
				kerr = newError(ResponseNotReceived, res.err, "operation failed")
			}
		default:
			kerr = newError(res.code, nil, "broker reported %s", res.code)
		}

		lastErr = kerr
		if !kerr.Retriable() {
			return withNonFatals(kerr, c.nonfatals)
		}

		c.appendNonfatal(kerr.Endpoint, kerr)
		if topic != "" {
			c.meta.invalidate(topic)
		}
		if n < c.cfg.MaxAttempts {
			c.sleepBackoff(ctx)
		}
	}

	if fe, ok := lastErr.(*Error); ok {
		return withNonFatals(fe, c.nonfatals)
	}
	return lastErr
}
