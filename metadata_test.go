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

func TestMetadataCacheMergeAndLeaderFor(t *testing.T) {
	cache := newMetadataCache([]BrokerMetadata{{NodeId: 1, Host: "seed", Port: 9092}})

	resp := &MetadataResponse{
		Brokers: []BrokerMetadata{
			{NodeId: 1, Host: "seed", Port: 9092},
			{NodeId: 2, Host: "learned", Port: 9092},
		},
		Topics: []TopicMetadata{
			{
				ErrorCode: NoError,
				Topic:     "mytopic",
				Partitions: []PartitionMetadata{
					{ErrorCode: NoError, Partition: 0, LeaderNodeId: 2, Replicas: []int32{1, 2}, Isr: []int32{1, 2}},
				},
			},
		},
	}
	cache.merge(resp)

	require.True(t, cache.hasTopic("mytopic"))
	info, ok := cache.leaderFor("mytopic", 0)
	require.True(t, ok)
	require.Equal(t, "learned", info.Leader.Host)

	brokers := cache.knownBrokers()
	require.Len(t, brokers, 2)
}

func TestMetadataCacheInvalidate(t *testing.T) {
	cache := newMetadataCache(nil)
	cache.merge(&MetadataResponse{
		Brokers: []BrokerMetadata{{NodeId: 1, Host: "a", Port: 9092}},
		Topics: []TopicMetadata{
			{Topic: "t", Partitions: []PartitionMetadata{{Partition: 0, LeaderNodeId: 1}}},
		},
	})
	require.True(t, cache.hasTopic("t"))

	cache.invalidate("t")
	require.False(t, cache.hasTopic("t"))
}

func TestMetadataCacheUnknownTopic(t *testing.T) {
	cache := newMetadataCache(nil)
	_, ok := cache.leaderFor("missing", 0)
	require.False(t, ok)
}
