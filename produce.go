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

import "context"

// ProduceAck is the domain shape returned by Produce: the broker's
// per-partition acknowledgement, per spec.md §4.6.
type ProduceAck struct {
	Partition  int32
	BaseOffset int64
}

// Produce sends records to exactly one (topic, partition), per the
// single-(topic,partition)-per-call restriction of spec.md §4.5.2 (the
// protocol codec itself still supports the full multi-topic,
// multi-partition wire shape; see proto_produce.go).
//
// requiredAcks follows the AcksNone/AcksLeader/AcksAllISR sentinels.
// With AcksNone the broker sends no reply: Produce returns as soon as
// send succeeds, or SendNoAck if the socket is observed closed during
// the send, per spec.md §4.5.4/§7.
func (c *Connection) Produce(ctx context.Context, topic string, partition int32, records []*Record, requiredAcks int16) (*ProduceAck, error) {
	if topic == "" {
		return nil, newArgError("produce: topic must not be empty")
	}
	if len(records) == 0 {
		return nil, newArgError("produce: records must not be empty")
	}

	if requiredAcks == AcksNone {
		return c.produceNoAck(ctx, topic, partition, records)
	}

	var ack ProduceAck
	err := c.withRetry(ctx, topic, func(ctx context.Context) retryResult {
		info, ok := c.meta.leaderFor(topic, partition)
		if !ok {
			return retryResult{err: newError(LeaderNotFound, nil, "no leader cached for %s/%d", topic, partition)}
		}

		t, err := c.transportFor(ctx, info.Leader)
		if err != nil {
			return retryResult{err: err}
		}

		correlationId := c.nextCorrelationId()
		req := &ProduceRequest{
			RequiredAcks: requiredAcks,
			TimeoutMs:    int32(c.cfg.Timeout.Milliseconds()),
			Topics: []ProduceTopic{{
				Topic:      topic,
				Partitions: []ProducePartition{{Partition: partition, Records: records}},
			}},
		}
		frame := EncodeProduceRequest(correlationId, c.cfg.ClientId, 0, req)

		if err := c.sendFrame(ctx, info.Leader, t, frame); err != nil {
			return retryResult{err: err}
		}

		respFrame, err := c.receiveFrame(ctx, info.Leader, t, correlationId)
		if err != nil {
			return retryResult{err: err}
		}
		_, resp, err := DecodeProduceResponse(respFrame)
		if err != nil {
			return retryResult{err: err}
		}

		part, err := findProducePartition(resp, topic, partition)
		if err != nil {
			return retryResult{err: err}
		}
		ack = ProduceAck{Partition: part.Partition, BaseOffset: part.BaseOffset}
		return retryResult{code: part.ErrorCode}
	})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// produceNoAck implements the requiredAcks=0 path: send only, no
// retry loop (there is nothing to observe that would justify one
// beyond the send itself), per spec.md §4.5.4.
func (c *Connection) produceNoAck(ctx context.Context, topic string, partition int32, records []*Record) (*ProduceAck, error) {
	if err := c.ensureMetadata(ctx, topic); err != nil {
		return nil, err
	}
	info, ok := c.meta.leaderFor(topic, partition)
	if !ok {
		return nil, newError(LeaderNotFound, nil, "no leader cached for %s/%d", topic, partition)
	}

	t, err := c.transportFor(ctx, info.Leader)
	if err != nil {
		return nil, err
	}

	correlationId := c.nextCorrelationId()
	req := &ProduceRequest{
		RequiredAcks: AcksNone,
		TimeoutMs:    int32(c.cfg.Timeout.Milliseconds()),
		Topics: []ProduceTopic{{
			Topic:      topic,
			Partitions: []ProducePartition{{Partition: partition, Records: records}},
		}},
	}
	frame := EncodeProduceRequest(correlationId, c.cfg.ClientId, 0, req)

	if err := c.sendFrame(ctx, info.Leader, t, frame); err != nil {
		return nil, newError(SendNoAck, err, "requiredAcks=0 send to %s observed closed", info.Leader.Addr())
	}
	return &ProduceAck{Partition: partition, BaseOffset: OffsetAny}, nil
}

func findProducePartition(resp *ProduceResponse, topic string, partition int32) (*ProducePartitionResponse, error) {
	for _, t := range resp.Topics {
		if t.Topic != topic {
			continue
		}
		for i := range t.Partitions {
			if t.Partitions[i].Partition == partition {
				return &t.Partitions[i], nil
			}
		}
	}
	return nil, newError(PartitionMismatch, nil, "produce response missing %s/%d", topic, partition)
}
