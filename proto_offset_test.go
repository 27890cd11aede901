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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOffsetRequestRoundTrip(t *testing.T) {
	req := &OffsetRequest{
		ReplicaId: ReplicaIdConsumer,
		Topics: []OffsetTopicQuery{
			{
				Topic: "mytopic",
				Partitions: []OffsetPartitionQuery{
					{Partition: 0, Time: OffsetLatest, MaxNumberOfOffsets: 100},
					{Partition: 1, Time: OffsetEarliest, MaxNumberOfOffsets: 1},
				},
			},
		},
	}
	frame := EncodeOffsetRequest(3, "client-c", 0, req)

	hdr, decoded, err := DecodeOffsetRequest(frame)
	require.NoError(t, err)
	require.Equal(t, int32(3), hdr.CorrelationId)
	require.Len(t, decoded.Topics[0].Partitions, 2)
	require.Equal(t, OffsetLatest, decoded.Topics[0].Partitions[0].Time)
	require.Equal(t, OffsetEarliest, decoded.Topics[0].Partitions[1].Time)
}

func TestOffsetResponseRoundTrip(t *testing.T) {
	resp := &OffsetResponse{
		Topics: []OffsetTopicResponse{
			{
				Topic: "mytopic",
				Partitions: []OffsetPartitionResponse{
					{Partition: 0, ErrorCode: NoError, Offsets: []int64{100, 50, 0}},
				},
			},
		},
	}
	frame := EncodeOffsetResponse(4, resp)

	hdr, decoded, err := DecodeOffsetResponse(frame)
	require.NoError(t, err)
	require.Equal(t, int32(4), hdr.CorrelationId)
	require.Equal(t, []int64{100, 50, 0}, decoded.Topics[0].Partitions[0].Offsets)
}
