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

// ListOffsets returns up to maxNumberOfOffsets valid offsets for
// (topic, partition) before the given time sentinel (OffsetLatest or
// OffsetEarliest), in descending order, per spec.md §4.3/§9. The
// source's RECEIVE_LATEST_OFFSET and RECEIVE_LATEST_OFFSETS both map
// to OffsetLatest; callers always get the full array back (DESIGN.md
// Open Question resolution).
func (c *Connection) ListOffsets(ctx context.Context, topic string, partition int32, time int64, maxNumberOfOffsets int32) ([]int64, error) {
	if topic == "" {
		return nil, newArgError("listOffsets: topic must not be empty")
	}
	if maxNumberOfOffsets <= 0 {
		maxNumberOfOffsets = c.cfg.MaxNumberOfOffsets
	}

	var offsets []int64
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
		req := &OffsetRequest{
			ReplicaId: ReplicaIdConsumer,
			Topics: []OffsetTopicQuery{{
				Topic: topic,
				Partitions: []OffsetPartitionQuery{{
					Partition:          partition,
					Time:               time,
					MaxNumberOfOffsets: maxNumberOfOffsets,
				}},
			}},
		}
		frame := EncodeOffsetRequest(correlationId, c.cfg.ClientId, 0, req)

		if err := c.sendFrame(ctx, info.Leader, t, frame); err != nil {
			return retryResult{err: err}
		}
		respFrame, err := c.receiveFrame(ctx, info.Leader, t, correlationId)
		if err != nil {
			return retryResult{err: err}
		}
		_, resp, err := DecodeOffsetResponse(respFrame)
		if err != nil {
			return retryResult{err: err}
		}

		part, err := findOffsetPartition(resp, topic, partition)
		if err != nil {
			return retryResult{err: err}
		}
		offsets = part.Offsets
		return retryResult{code: part.ErrorCode}
	})
	if err != nil {
		return nil, err
	}
	return offsets, nil
}

func findOffsetPartition(resp *OffsetResponse, topic string, partition int32) (*OffsetPartitionResponse, error) {
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
	return nil, newError(PartitionMismatch, nil, "offset response missing %s/%d", topic, partition)
}
