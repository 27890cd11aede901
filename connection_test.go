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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeCluster is a tiny in-process broker simulator used by
// connection_test.go in place of a real TCP cluster: it decodes the
// same wire frames the real Connection sends and answers them
// according to test-controlled leader state, replacing the teacher's
// monkey-patched socket I/O per spec.md §9/DESIGN.md.
type fakeCluster struct {
	mu              sync.Mutex
	brokers         []BrokerMetadata
	leaderAddr      string
	alwaysNotLeader bool
	storage         map[string][]*Record
	nextOffset      map[string]int64
	produceCount    map[string]int
	openCount       map[string]int
	corruptNextResp bool
}

func newFakeCluster(brokers []BrokerMetadata, leaderAddr string) *fakeCluster {
	return &fakeCluster{
		brokers:      brokers,
		leaderAddr:   leaderAddr,
		storage:      map[string][]*Record{},
		nextOffset:   map[string]int64{},
		produceCount: map[string]int{},
		openCount:    map[string]int{},
	}
}

func partitionKey(topic string, partition int32) string {
	return fmt.Sprintf("%s/%d", topic, partition)
}

func (c *fakeCluster) setLeader(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderAddr = addr
}

func (c *fakeCluster) noteOpen(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openCount[addr]++
}

func (c *fakeCluster) leaderNodeId() int32 {
	for _, b := range c.brokers {
		if b.Addr() == c.leaderAddr {
			return b.NodeId
		}
	}
	return -1
}

func (c *fakeCluster) handle(addr string, hdr RequestHeader, body []byte) ([]byte, error) {
	switch hdr.ApiKey {
	case ApiMetadata:
		c.mu.Lock()
		resp := &MetadataResponse{
			Brokers: append([]BrokerMetadata{}, c.brokers...),
			Topics: []TopicMetadata{{
				ErrorCode: NoError,
				Topic:     "mytopic",
				Partitions: []PartitionMetadata{{
					ErrorCode:    NoError,
					Partition:    0,
					LeaderNodeId: c.leaderNodeId(),
					Replicas:     []int32{1, 2},
					Isr:          []int32{1, 2},
				}},
			}},
		}
		c.mu.Unlock()
		return EncodeMetadataResponse(hdr.CorrelationId, resp), nil

	case ApiProduce:
		req, err := decodeProduceRequestBody(body)
		if err != nil {
			return nil, err
		}
		topic := req.Topics[0].Topic
		partition := req.Topics[0].Partitions[0].Partition
		key := partitionKey(topic, partition)

		c.mu.Lock()
		c.produceCount[addr]++
		isLeader := addr == c.leaderAddr && !c.alwaysNotLeader
		var ec Code = NotLeaderForPartition
		var baseOffset int64 = -1
		if isLeader {
			ec = NoError
			baseOffset = c.nextOffset[key]
			for _, r := range req.Topics[0].Partitions[0].Records {
				r.Offset = c.nextOffset[key]
				c.storage[key] = append(c.storage[key], r)
				c.nextOffset[key]++
			}
		}
		resp := &ProduceResponse{Topics: []ProduceTopicResponse{{
			Topic: topic,
			Partitions: []ProducePartitionResponse{{
				Partition:  partition,
				ErrorCode:  ec,
				BaseOffset: baseOffset,
			}},
		}}}
		corrupt := c.corruptNextResp
		c.corruptNextResp = false
		c.mu.Unlock()

		frame := EncodeProduceResponse(hdr.CorrelationId, resp)
		if corrupt {
			frame = corruptCorrelationId(frame)
		}
		return frame, nil

	case ApiFetch:
		req, err := decodeFetchRequestBody(body)
		if err != nil {
			return nil, err
		}
		topic := req.Topics[0].Topic
		partition := req.Topics[0].Partitions[0].Partition
		fetchOffset := req.Topics[0].Partitions[0].FetchOffset
		key := partitionKey(topic, partition)

		c.mu.Lock()
		isLeader := addr == c.leaderAddr
		var ec Code = NotLeaderForPartition
		var records []*Record
		var hw int64
		if isLeader {
			ec = NoError
			hw = c.nextOffset[key]
			for _, r := range c.storage[key] {
				if r.Offset >= fetchOffset {
					records = append(records, r)
				}
			}
		}
		c.mu.Unlock()

		resp := &FetchResponse{Topics: []FetchTopicResponse{{
			Topic: topic,
			Partitions: []FetchPartitionResponse{{
				Partition:           partition,
				ErrorCode:           ec,
				HighwaterMarkOffset: hw,
				Records:             records,
			}},
		}}}
		return EncodeFetchResponse(hdr.CorrelationId, resp), nil
	case ApiOffset:
		req, err := decodeOffsetRequestBody(body)
		if err != nil {
			return nil, err
		}
		topic := req.Topics[0].Topic
		partition := req.Topics[0].Partitions[0].Partition
		key := partitionKey(topic, partition)

		c.mu.Lock()
		isLeader := addr == c.leaderAddr
		var ec Code = NotLeaderForPartition
		var offsets []int64
		if isLeader {
			ec = NoError
			offsets = []int64{c.nextOffset[key], 0}
		}
		c.mu.Unlock()

		resp := &OffsetResponse{Topics: []OffsetTopicResponse{{
			Topic: topic,
			Partitions: []OffsetPartitionResponse{{
				Partition: partition,
				ErrorCode: ec,
				Offsets:   offsets,
			}},
		}}}
		return EncodeOffsetResponse(hdr.CorrelationId, resp), nil
	}
	return nil, newError(UnknownApiKey, nil, "fake cluster: unsupported apiKey %d", hdr.ApiKey)
}

// corruptCorrelationId flips the correlationId field of an encoded
// response frame, simulating spec.md §8 scenario 6.
func corruptCorrelationId(frame []byte) []byte {
	out := append([]byte{}, frame...)
	got := binary.BigEndian.Uint32(out[4:8])
	binary.BigEndian.PutUint32(out[4:8], got^0xFFFFFFFF)
	return out
}

// fakeTransport is the Transport implementation that routes through a
// fakeCluster.
type fakeTransport struct {
	mu      sync.Mutex
	cluster *fakeCluster
	addr    string
	alive   bool
	pending []byte
}

func (t *fakeTransport) Open(_ context.Context, host string, port int32, _ time.Duration, _ IPVersion, _ *SASLConfig) error {
	t.addr = addrOf(host, port)
	t.alive = true
	t.cluster.noteOpen(t.addr)
	return nil
}

func (t *fakeTransport) Send(_ context.Context, b []byte) error {
	hdr, body, err := decodeRequestHeader(b)
	if err != nil {
		return err
	}
	resp, err := t.cluster.handle(t.addr, hdr, body)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.pending = append(t.pending, resp...)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Receive(_ context.Context, n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) < n {
		return nil, newError(CannotRecv, nil, "fake transport: short read")
	}
	out := t.pending[:n]
	t.pending = t.pending[n:]
	return out, nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive = false
	return nil
}

func (t *fakeTransport) IsAlive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

func newFakeConnection(cfg Config, cluster *fakeCluster) *Connection {
	return NewConnectionWithTransport(cfg, func() Transport {
		return &fakeTransport{cluster: cluster}
	})
}

func testConfig(brokers []BrokerMetadata) Config {
	cfg := DefaultConfig()
	cfg.BrokerList = brokers
	cfg.MaxAttempts = 4
	cfg.BackoffMs = 5
	cfg.ClientId = "test-client"
	return cfg
}

// TestProduceThenFetchSingleRecord exercises spec.md §8 scenario 1.
func TestProduceThenFetchSingleRecord(t *testing.T) {
	brokerA := BrokerMetadata{NodeId: 1, Host: "broker-a", Port: 9092}
	cluster := newFakeCluster([]BrokerMetadata{brokerA}, brokerA.Addr())
	conn := newFakeConnection(testConfig([]BrokerMetadata{brokerA}), cluster)
	defer conn.Close()

	ctx := context.Background()
	ack, err := conn.Produce(ctx, "mytopic", 0, []*Record{NewRecord([]byte(""), []byte("Hello!"))}, AcksLeader)
	require.NoError(t, err)
	require.Equal(t, int64(0), ack.BaseOffset)

	msgs, err := conn.Fetch(ctx, "mytopic", 0, ack.BaseOffset, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].Valid)
	require.Equal(t, []byte("Hello!"), msgs[0].Value)
	require.Equal(t, ack.BaseOffset, msgs[0].Offset)
}

// TestLeaderFailoverRetriesAndSucceeds exercises spec.md §8 scenario 3.
func TestLeaderFailoverRetriesAndSucceeds(t *testing.T) {
	brokerA := BrokerMetadata{NodeId: 1, Host: "broker-a", Port: 9092}
	brokerB := BrokerMetadata{NodeId: 2, Host: "broker-b", Port: 9092}
	cluster := newFakeCluster([]BrokerMetadata{brokerA, brokerB}, brokerA.Addr())
	conn := newFakeConnection(testConfig([]BrokerMetadata{brokerA, brokerB}), cluster)
	defer conn.Close()

	ctx := context.Background()
	_, err := conn.Produce(ctx, "mytopic", 0, []*Record{NewRecord(nil, []byte("first"))}, AcksLeader)
	require.NoError(t, err)
	require.Empty(t, conn.NonfatalErrors())

	// Leader moves to B without the client knowing yet.
	cluster.setLeader(brokerB.Addr())

	ack, err := conn.Produce(ctx, "mytopic", 0, []*Record{NewRecord(nil, []byte("second"))}, AcksLeader)
	require.NoError(t, err)
	require.NotNil(t, ack)

	nonfatals := conn.NonfatalErrors()
	require.Len(t, nonfatals, 1)
}

// TestCorrelationMismatchClosesTransportAndRetries exercises spec.md
// §8 scenario 6: a mismatched correlation ID is fatal for that
// Transport (it is discarded), but the operation itself retries on a
// fresh connection and succeeds.
func TestCorrelationMismatchClosesTransportAndRetries(t *testing.T) {
	brokerA := BrokerMetadata{NodeId: 1, Host: "broker-a", Port: 9092}
	cluster := newFakeCluster([]BrokerMetadata{brokerA}, brokerA.Addr())
	conn := newFakeConnection(testConfig([]BrokerMetadata{brokerA}), cluster)
	defer conn.Close()

	ctx := context.Background()
	_, err := conn.Produce(ctx, "mytopic", 0, []*Record{NewRecord(nil, []byte("warm up"))}, AcksLeader)
	require.NoError(t, err)

	cluster.mu.Lock()
	openBefore := cluster.openCount[brokerA.Addr()]
	cluster.corruptNextResp = true
	cluster.mu.Unlock()

	ack, err := conn.Produce(ctx, "mytopic", 0, []*Record{NewRecord(nil, []byte("after mismatch"))}, AcksLeader)
	require.NoError(t, err)
	require.NotNil(t, ack)

	cluster.mu.Lock()
	openAfter := cluster.openCount[brokerA.Addr()]
	cluster.mu.Unlock()
	require.Greater(t, openAfter, openBefore, "a fresh Transport must be opened after the mismatch")

	found := false
	for _, e := range conn.NonfatalErrors() {
		if kerr, ok := e.(*Error); ok && kerr.Code == MismatchCorrelationId {
			found = true
		}
	}
	require.True(t, found, "expected a MismatchCorrelationId entry in the non-fatal log")
}

// TestRetryBudgetExhaustedIsFatal exercises spec.md §8's "no more than
// maxAttempts total send attempts" invariant and the backoff-preceded
// retry requirement.
func TestRetryBudgetExhaustedIsFatal(t *testing.T) {
	brokerA := BrokerMetadata{NodeId: 1, Host: "broker-a", Port: 9092}
	cluster := newFakeCluster([]BrokerMetadata{brokerA}, brokerA.Addr())
	cluster.alwaysNotLeader = true

	cfg := testConfig([]BrokerMetadata{brokerA})
	cfg.MaxAttempts = 3
	cfg.BackoffMs = 5
	conn := newFakeConnection(cfg, cluster)
	defer conn.Close()

	start := time.Now()
	_, err := conn.Produce(context.Background(), "mytopic", 0, []*Record{NewRecord(nil, []byte("x"))}, AcksLeader)
	elapsed := time.Since(start)
	require.Error(t, err)

	kerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, NotLeaderForPartition, kerr.Code)
	require.NotNil(t, kerr.NonFatals)

	cluster.mu.Lock()
	sends := cluster.produceCount[brokerA.Addr()]
	cluster.mu.Unlock()
	require.Equal(t, cfg.MaxAttempts, sends)

	require.GreaterOrEqual(t, elapsed, time.Duration(cfg.MaxAttempts-1)*cfg.backoff())
}

// TestRequiredAcksZeroDoesNotWaitForResponse exercises spec.md §4.5.4:
// with requiredAcks=0 the Connection must not attempt to read a reply.
func TestRequiredAcksZeroDoesNotWaitForResponse(t *testing.T) {
	brokerA := BrokerMetadata{NodeId: 1, Host: "broker-a", Port: 9092}
	cluster := newFakeCluster([]BrokerMetadata{brokerA}, brokerA.Addr())
	conn := newFakeConnection(testConfig([]BrokerMetadata{brokerA}), cluster)
	defer conn.Close()

	ack, err := conn.Produce(context.Background(), "mytopic", 0, []*Record{NewRecord(nil, []byte("fire and forget"))}, AcksNone)
	require.NoError(t, err)
	require.NotNil(t, ack)
}

// TestListOffsets exercises the OFFSET wire operation end to end.
func TestListOffsets(t *testing.T) {
	brokerA := BrokerMetadata{NodeId: 1, Host: "broker-a", Port: 9092}
	cluster := newFakeCluster([]BrokerMetadata{brokerA}, brokerA.Addr())
	conn := newFakeConnection(testConfig([]BrokerMetadata{brokerA}), cluster)
	defer conn.Close()

	ctx := context.Background()
	_, err := conn.Produce(ctx, "mytopic", 0, []*Record{
		NewRecord(nil, []byte("a")),
		NewRecord(nil, []byte("b")),
	}, AcksLeader)
	require.NoError(t, err)

	offsets, err := conn.ListOffsets(ctx, "mytopic", 0, OffsetLatest, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 0}, offsets)
}

func TestConnectionObservability(t *testing.T) {
	brokerA := BrokerMetadata{NodeId: 1, Host: "broker-a", Port: 9092}
	brokerB := BrokerMetadata{NodeId: 2, Host: "broker-b", Port: 9092}
	cluster := newFakeCluster([]BrokerMetadata{brokerA, brokerB}, brokerA.Addr())
	conn := newFakeConnection(testConfig([]BrokerMetadata{brokerA, brokerB}), cluster)
	defer conn.Close()

	require.True(t, conn.IsServerKnown(brokerA.Addr()))
	require.True(t, conn.IsServerKnown(brokerB.Addr()))
	require.False(t, conn.IsServerKnown("nowhere:9092"))

	_, err := conn.Produce(context.Background(), "mytopic", 0, []*Record{NewRecord(nil, []byte("v"))}, AcksLeader)
	require.NoError(t, err)
	require.True(t, conn.IsServerAlive(brokerA.Addr()))

	require.NoError(t, conn.CloseConnection(brokerA.Addr()))
	require.False(t, conn.IsServerAlive(brokerA.Addr()))

	conn.ClearNonfatals()
	require.Empty(t, conn.NonfatalErrors())
}
