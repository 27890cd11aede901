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

// FetchedMessage is the domain shape Fetch returns per record, per
// spec.md §4.6: offset, nextOffset, key, value, attributes, magicByte,
// highwaterMarkOffset, valid, error.
type FetchedMessage struct {
	Offset              int64
	NextOffset          int64
	Key                 []byte
	Value               []byte
	Attributes          int8
	MagicByte           int8
	HighwaterMarkOffset int64
	Valid               bool
	Error               error
}

// Fetch retrieves records from exactly one (topic, partition) starting
// at offset, per spec.md §4.5.2's single-(topic,partition)-per-call
// restriction. maxBytes falls back to Config.MaxBytes when zero or
// negative; MaxWaitMs and MinBytes always come from Config.
func (c *Connection) Fetch(ctx context.Context, topic string, partition int32, offset int64, maxBytes int32) ([]FetchedMessage, error) {
	if topic == "" {
		return nil, newArgError("fetch: topic must not be empty")
	}
	if maxBytes <= 0 {
		maxBytes = c.cfg.MaxBytes
	}

	var out []FetchedMessage
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
		req := &FetchRequest{
			ReplicaId: ReplicaIdConsumer,
			MaxWaitMs: c.cfg.MaxWaitMs,
			MinBytes:  c.cfg.MinBytes,
			Topics: []FetchTopic{{
				Topic:      topic,
				Partitions: []FetchPartition{{Partition: partition, FetchOffset: offset, MaxBytes: maxBytes}},
			}},
		}
		frame := EncodeFetchRequest(correlationId, c.cfg.ClientId, 0, req)

		if err := c.sendFrame(ctx, info.Leader, t, frame); err != nil {
			return retryResult{err: err}
		}
		respFrame, err := c.receiveFrame(ctx, info.Leader, t, correlationId)
		if err != nil {
			return retryResult{err: err}
		}
		_, resp, err := DecodeFetchResponse(respFrame)
		if err != nil {
			return retryResult{err: err}
		}

		part, err := findFetchPartition(resp, topic, partition)
		if err != nil {
			return retryResult{err: err}
		}

		out = recordsToMessages(part.Records, part.HighwaterMarkOffset)
		return retryResult{code: part.ErrorCode}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func recordsToMessages(records []*Record, hw int64) []FetchedMessage {
	msgs := make([]FetchedMessage, 0, len(records))
	for i, r := range records {
		next := r.Offset + 1
		if i+1 < len(records) {
			next = records[i+1].Offset
		}
		msgs = append(msgs, FetchedMessage{
			Offset:              r.Offset,
			NextOffset:          next,
			Key:                 r.Key,
			Value:               r.Value,
			Attributes:          r.Attributes,
			MagicByte:           r.MagicByte,
			HighwaterMarkOffset: hw,
			Valid:               r.Valid,
			Error:               r.Err,
		})
	}
	return msgs
}

func findFetchPartition(resp *FetchResponse, topic string, partition int32) (*FetchPartitionResponse, error) {
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
	return nil, newError(PartitionMismatch, nil, "fetch response missing %s/%d", topic, partition)
}
