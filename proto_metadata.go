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

import "bytes"

// MetadataRequest is the decoded METADATA request body: an array of
// topic names, empty meaning "all topics", per spec.md §4.3.
type MetadataRequest struct {
	Topics []string
}

func (r *MetadataRequest) encodeBody() []byte {
	var buf bytes.Buffer
	writeInt32(&buf, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(&buf, t)
	}
	return buf.Bytes()
}

// EncodeMetadataRequest encodes a full METADATA request frame.
func EncodeMetadataRequest(correlationId int32, clientId string, apiVersion int16, r *MetadataRequest) []byte {
	hdr := RequestHeader{ApiKey: ApiMetadata, ApiVersion: apiVersion, CorrelationId: correlationId, ClientId: clientId}
	return encodeRequest(hdr, r.encodeBody())
}

// DecodeMetadataRequest decodes a full METADATA request frame.
func DecodeMetadataRequest(b []byte) (RequestHeader, *MetadataRequest, error) {
	hdr, body, err := decodeRequestHeader(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	req := &MetadataRequest{}
	count, n, err := readInt32(body)
	if err != nil {
		return hdr, nil, err
	}
	body = body[n:]
	for i := int32(0); i < count; i++ {
		topic, n, err := readString(body)
		if err != nil {
			return hdr, nil, err
		}
		body = body[n:]
		req.Topics = append(req.Topics, topic)
	}
	return hdr, req, nil
}

// BrokerMetadata is one entry of a METADATA response's broker list,
// per spec.md §3's "Broker endpoint".
type BrokerMetadata struct {
	NodeId int32
	Host   string
	Port   int32
}

// Addr returns the host:port string used to key the connection cache.
func (b BrokerMetadata) Addr() string {
	return addrOf(b.Host, b.Port)
}

// PartitionMetadata is one partition entry of a METADATA response's
// topic, per spec.md §3.
type PartitionMetadata struct {
	ErrorCode      Code
	Partition      int32
	LeaderNodeId   int32
	Replicas       []int32
	Isr            []int32
}

// TopicMetadata is one topic entry of a METADATA response, per
// spec.md §3.
type TopicMetadata struct {
	ErrorCode  Code
	Topic      string
	Partitions []PartitionMetadata
}

// MetadataResponse is the decoded METADATA response body, per spec.md
// §4.3.
type MetadataResponse struct {
	Brokers []BrokerMetadata
	Topics  []TopicMetadata
}

func (r *MetadataResponse) encodeBody() []byte {
	var buf bytes.Buffer
	writeInt32(&buf, int32(len(r.Brokers)))
	for _, b := range r.Brokers {
		writeInt32(&buf, b.NodeId)
		writeString(&buf, b.Host)
		writeInt32(&buf, b.Port)
	}
	writeInt32(&buf, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeInt16(&buf, int16(t.ErrorCode))
		writeString(&buf, t.Topic)
		writeInt32(&buf, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			writeInt16(&buf, int16(p.ErrorCode))
			writeInt32(&buf, p.Partition)
			writeInt32(&buf, p.LeaderNodeId)
			writeInt32(&buf, int32(len(p.Replicas)))
			for _, r := range p.Replicas {
				writeInt32(&buf, r)
			}
			writeInt32(&buf, int32(len(p.Isr)))
			for _, r := range p.Isr {
				writeInt32(&buf, r)
			}
		}
	}
	return buf.Bytes()
}

// EncodeMetadataResponse encodes a full METADATA response frame.
func EncodeMetadataResponse(correlationId int32, r *MetadataResponse) []byte {
	return encodeResponse(ResponseHeader{CorrelationId: correlationId}, r.encodeBody())
}

// DecodeMetadataResponse decodes a full METADATA response frame.
func DecodeMetadataResponse(b []byte) (ResponseHeader, *MetadataResponse, error) {
	hdr, body, err := decodeResponseHeader(b)
	if err != nil {
		return ResponseHeader{}, nil, err
	}

	resp := &MetadataResponse{}
	brokerCount, n, err := readInt32(body)
	if err != nil {
		return hdr, nil, err
	}
	body = body[n:]

	for i := int32(0); i < brokerCount; i++ {
		var bm BrokerMetadata
		bm.NodeId, n, err = readInt32(body)
		if err != nil {
			return hdr, nil, err
		}
		body = body[n:]
		bm.Host, n, err = readString(body)
		if err != nil {
			return hdr, nil, err
		}
		body = body[n:]
		bm.Port, n, err = readInt32(body)
		if err != nil {
			return hdr, nil, err
		}
		body = body[n:]
		resp.Brokers = append(resp.Brokers, bm)
	}

	topicCount, n, err := readInt32(body)
	if err != nil {
		return hdr, nil, err
	}
	body = body[n:]

	for i := int32(0); i < topicCount; i++ {
		var t TopicMetadata
		ec, n, err := readInt16(body)
		if err != nil {
			return hdr, nil, err
		}
		t.ErrorCode = Code(ec)
		body = body[n:]

		t.Topic, n, err = readString(body)
		if err != nil {
			return hdr, nil, err
		}
		body = body[n:]

		partCount, n, err := readInt32(body)
		if err != nil {
			return hdr, nil, err
		}
		body = body[n:]

		for j := int32(0); j < partCount; j++ {
			var p PartitionMetadata
			ec, n, err := readInt16(body)
			if err != nil {
				return hdr, nil, err
			}
			p.ErrorCode = Code(ec)
			body = body[n:]

			p.Partition, n, err = readInt32(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]

			p.LeaderNodeId, n, err = readInt32(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]

			repCount, n, err := readInt32(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]
			for k := int32(0); k < repCount; k++ {
				rep, n, err := readInt32(body)
				if err != nil {
					return hdr, nil, err
				}
				body = body[n:]
				p.Replicas = append(p.Replicas, rep)
			}

			isrCount, n, err := readInt32(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]
			for k := int32(0); k < isrCount; k++ {
				isr, n, err := readInt32(body)
				if err != nil {
					return hdr, nil, err
				}
				body = body[n:]
				p.Isr = append(p.Isr, isr)
			}

			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return hdr, resp, nil
}
