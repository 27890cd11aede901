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

// ProducePartition is one partition entry of a PRODUCE request.
type ProducePartition struct {
	Partition int32
	Records   []*Record
}

// ProduceTopic is one topic entry of a PRODUCE request. The codec
// encodes/decodes the full multi-topic, multi-partition array shape
// the wire protocol allows; the Produce façade (produce.go) enforces
// the single-(topic,partition)-per-call restriction, per SPEC_FULL.md
// §4.6.
type ProduceTopic struct {
	Topic      string
	Partitions []ProducePartition
}

// ProduceRequest is the decoded PRODUCE request body, per spec.md
// §4.3.
type ProduceRequest struct {
	RequiredAcks int16
	TimeoutMs    int32
	Topics       []ProduceTopic
}

// Required-acks sentinel values.
const (
	AcksNone   int16 = 0
	AcksLeader int16 = 1
	AcksAllISR int16 = -1
)

func (r *ProduceRequest) encodeBody() []byte {
	var buf bytes.Buffer
	writeInt16(&buf, r.RequiredAcks)
	writeInt32(&buf, r.TimeoutMs)
	writeInt32(&buf, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(&buf, t.Topic)
		writeInt32(&buf, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			writeInt32(&buf, p.Partition)
			ms := EncodeMessageSet(p.Records)
			writeInt32(&buf, int32(len(ms)))
			buf.Write(ms)
		}
	}
	return buf.Bytes()
}

// EncodeProduceRequest encodes a full PRODUCE request frame.
func EncodeProduceRequest(correlationId int32, clientId string, apiVersion int16, r *ProduceRequest) []byte {
	hdr := RequestHeader{ApiKey: ApiProduce, ApiVersion: apiVersion, CorrelationId: correlationId, ClientId: clientId}
	return encodeRequest(hdr, r.encodeBody())
}

// DecodeProduceRequest decodes a full PRODUCE request frame, returning
// the header and body. Used by tests verifying the round-trip law of
// spec.md §8.
func DecodeProduceRequest(b []byte) (RequestHeader, *ProduceRequest, error) {
	hdr, body, err := decodeRequestHeader(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	req, err := decodeProduceRequestBody(body)
	return hdr, req, err
}

func decodeProduceRequestBody(b []byte) (*ProduceRequest, error) {
	req := &ProduceRequest{}
	var n int
	var err error

	req.RequiredAcks, n, err = readInt16(b)
	if err != nil {
		return nil, err
	}
	b = b[n:]

	req.TimeoutMs, n, err = readInt32(b)
	if err != nil {
		return nil, err
	}
	b = b[n:]

	topicCount, n, err := readInt32(b)
	if err != nil {
		return nil, err
	}
	b = b[n:]

	for i := int32(0); i < topicCount; i++ {
		var topic ProduceTopic
		topic.Topic, n, err = readString(b)
		if err != nil {
			return nil, err
		}
		b = b[n:]

		partCount, n, err := readInt32(b)
		if err != nil {
			return nil, err
		}
		b = b[n:]

		for j := int32(0); j < partCount; j++ {
			var part ProducePartition
			part.Partition, n, err = readInt32(b)
			if err != nil {
				return nil, err
			}
			b = b[n:]

			msSize, n, err := readInt32(b)
			if err != nil {
				return nil, err
			}
			b = b[n:]
			if int32(len(b)) < msSize {
				return nil, errShortArray
			}
			part.Records, err = DecodeMessageSet(b[:msSize])
			if err != nil {
				return nil, err
			}
			b = b[msSize:]

			topic.Partitions = append(topic.Partitions, part)
		}
		req.Topics = append(req.Topics, topic)
	}
	return req, nil
}

// ProducePartitionResponse is one partition's result in a PRODUCE
// response.
type ProducePartitionResponse struct {
	Partition  int32
	ErrorCode  Code
	BaseOffset int64
}

// ProduceTopicResponse is one topic's results in a PRODUCE response.
type ProduceTopicResponse struct {
	Topic      string
	Partitions []ProducePartitionResponse
}

// ProduceResponse is the decoded PRODUCE response body, sent only when
// RequiredAcks != AcksNone, per spec.md §4.3/§4.5.4.
type ProduceResponse struct {
	Topics []ProduceTopicResponse
}

func (r *ProduceResponse) encodeBody() []byte {
	var buf bytes.Buffer
	writeInt32(&buf, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(&buf, t.Topic)
		writeInt32(&buf, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			writeInt32(&buf, p.Partition)
			writeInt16(&buf, int16(p.ErrorCode))
			writeInt64(&buf, p.BaseOffset)
		}
	}
	return buf.Bytes()
}

// EncodeProduceResponse encodes a full PRODUCE response frame.
func EncodeProduceResponse(correlationId int32, r *ProduceResponse) []byte {
	return encodeResponse(ResponseHeader{CorrelationId: correlationId}, r.encodeBody())
}

// DecodeProduceResponse decodes a full PRODUCE response frame.
func DecodeProduceResponse(b []byte) (ResponseHeader, *ProduceResponse, error) {
	hdr, body, err := decodeResponseHeader(b)
	if err != nil {
		return ResponseHeader{}, nil, err
	}

	resp := &ProduceResponse{}
	topicCount, n, err := readInt32(body)
	if err != nil {
		return hdr, nil, err
	}
	body = body[n:]

	for i := int32(0); i < topicCount; i++ {
		var t ProduceTopicResponse
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
			var p ProducePartitionResponse
			p.Partition, n, err = readInt32(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]

			ec, n, err := readInt16(body)
			if err != nil {
				return hdr, nil, err
			}
			p.ErrorCode = Code(ec)
			body = body[n:]

			p.BaseOffset, n, err = readInt64(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]

			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return hdr, resp, nil
}
