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

func TestMetadataRequestRoundTrip(t *testing.T) {
	req := &MetadataRequest{Topics: []string{"topic-a", "topic-b"}}
	frame := EncodeMetadataRequest(1, "client-d", 0, req)

	hdr, decoded, err := DecodeMetadataRequest(frame)
	require.NoError(t, err)
	require.Equal(t, int32(1), hdr.CorrelationId)
	require.Equal(t, []string{"topic-a", "topic-b"}, decoded.Topics)
}

func TestMetadataRequestAllTopicsIsEmptyArray(t *testing.T) {
	req := &MetadataRequest{}
	frame := EncodeMetadataRequest(2, "client-d", 0, req)

	_, decoded, err := DecodeMetadataRequest(frame)
	require.NoError(t, err)
	require.Empty(t, decoded.Topics)
}

func TestMetadataResponseRoundTrip(t *testing.T) {
	resp := &MetadataResponse{
		Brokers: []BrokerMetadata{
			{NodeId: 1, Host: "broker-a", Port: 9092},
			{NodeId: 2, Host: "broker-b", Port: 9092},
		},
		Topics: []TopicMetadata{
			{
				ErrorCode: NoError,
				Topic:     "mytopic",
				Partitions: []PartitionMetadata{
					{ErrorCode: NoError, Partition: 0, LeaderNodeId: 1, Replicas: []int32{1, 2}, Isr: []int32{1, 2}},
				},
			},
		},
	}
	frame := EncodeMetadataResponse(6, resp)

	hdr, decoded, err := DecodeMetadataResponse(frame)
	require.NoError(t, err)
	require.Equal(t, int32(6), hdr.CorrelationId)
	require.Len(t, decoded.Brokers, 2)
	require.Equal(t, "broker-a", decoded.Brokers[0].Host)
	require.Len(t, decoded.Topics, 1)
	require.Equal(t, int32(1), decoded.Topics[0].Partitions[0].LeaderNodeId)
	require.Equal(t, []int32{1, 2}, decoded.Topics[0].Partitions[0].Isr)
}

func TestBrokerMetadataAddr(t *testing.T) {
	b := BrokerMetadata{NodeId: 1, Host: "broker-a", Port: 9092}
	require.Equal(t, "broker-a:9092", b.Addr())
}
