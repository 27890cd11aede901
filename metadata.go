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

import "sync"

// PartitionInfo is the cached routing entry for one (topic, partition)
// pair: its leader and the replica/ISR sets reported by the broker's
// last METADATA response, per spec.md §3's metadata snapshot.
type PartitionInfo struct {
	Leader    BrokerMetadata
	Replicas  []int32
	Isr       []int32
	ErrorCode Code
}

// metadataCache is the Connection's cluster-metadata cache: a broker
// list (seed + learned, deduped by host:port) and, per topic, a
// partition routing table. Each refresh replaces the whole routing
// table of every topic it reports and adds its brokers to the list
// (see merge).
type metadataCache struct {
	mu      sync.RWMutex
	brokers map[string]BrokerMetadata // keyed by Addr()
	topics  map[string]map[int32]PartitionInfo
}

func newMetadataCache(seed []BrokerMetadata) *metadataCache {
	m := &metadataCache{
		brokers: map[string]BrokerMetadata{},
		topics:  map[string]map[int32]PartitionInfo{},
	}
	for _, b := range seed {
		m.brokers[b.Addr()] = b
	}
	return m
}

// merge replaces the routing table for every topic named in resp
// (wholesale, per spec.md §3: "Immutable; replaced wholesale on
// refresh") and unions the broker list.
func (m *metadataCache) merge(resp *MetadataResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byNode := map[int32]BrokerMetadata{}
	for _, b := range resp.Brokers {
		m.brokers[b.Addr()] = b
		byNode[b.NodeId] = b
	}

	for _, t := range resp.Topics {
		partitions := make(map[int32]PartitionInfo, len(t.Partitions))
		for _, p := range t.Partitions {
			partitions[p.Partition] = PartitionInfo{
				Leader:    byNode[p.LeaderNodeId],
				Replicas:  p.Replicas,
				Isr:       p.Isr,
				ErrorCode: p.ErrorCode,
			}
		}
		m.topics[t.Topic] = partitions
	}
}

// leaderFor returns the cached leader for (topic, partition). ok is
// false if the topic hasn't been discovered yet.
func (m *metadataCache) leaderFor(topic string, partition int32) (PartitionInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	partitions, ok := m.topics[topic]
	if !ok {
		return PartitionInfo{}, false
	}
	p, ok := partitions[partition]
	return p, ok
}

// hasTopic reports whether the topic has ever been discovered.
func (m *metadataCache) hasTopic(topic string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.topics[topic]
	return ok
}

// invalidate drops the cached routing table for a topic, forcing a
// metadata refresh before the next request against it, per spec.md
// §4.5.6.
func (m *metadataCache) invalidate(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.topics, topic)
}

// knownBrokers returns a snapshot of the broker list.
func (m *metadataCache) knownBrokers() []BrokerMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]BrokerMetadata, 0, len(m.brokers))
	for _, b := range m.brokers {
		out = append(out, b)
	}
	return out
}
