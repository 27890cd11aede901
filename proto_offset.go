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

// Offset request "time" sentinels, per spec.md §4.3. The source
// material documents both RECEIVE_LATEST_OFFSET and
// RECEIVE_LATEST_OFFSETS for the same -1 sentinel; per the Open
// Question resolution in DESIGN.md, this client treats them as one.
const (
	OffsetLatest   int64 = -1
	OffsetEarliest int64 = -2
)

// OffsetPartitionQuery is one partition entry of an OFFSET request.
type OffsetPartitionQuery struct {
	Partition          int32
	Time               int64
	MaxNumberOfOffsets int32
}

// OffsetTopicQuery is one topic entry of an OFFSET request.
type OffsetTopicQuery struct {
	Topic      string
	Partitions []OffsetPartitionQuery
}

// OffsetRequest is the decoded OFFSET request body, per spec.md §4.3.
type OffsetRequest struct {
	ReplicaId int32
	Topics    []OffsetTopicQuery
}

func (r *OffsetRequest) encodeBody() []byte {
	var buf bytes.Buffer
	writeInt32(&buf, r.ReplicaId)
	writeInt32(&buf, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(&buf, t.Topic)
		writeInt32(&buf, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			writeInt32(&buf, p.Partition)
			writeInt64(&buf, p.Time)
			writeInt32(&buf, p.MaxNumberOfOffsets)
		}
	}
	return buf.Bytes()
}

// EncodeOffsetRequest encodes a full OFFSET request frame.
func EncodeOffsetRequest(correlationId int32, clientId string, apiVersion int16, r *OffsetRequest) []byte {
	hdr := RequestHeader{ApiKey: ApiOffset, ApiVersion: apiVersion, CorrelationId: correlationId, ClientId: clientId}
	return encodeRequest(hdr, r.encodeBody())
}

// DecodeOffsetRequest decodes a full OFFSET request frame.
func DecodeOffsetRequest(b []byte) (RequestHeader, *OffsetRequest, error) {
	hdr, body, err := decodeRequestHeader(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	req, err := decodeOffsetRequestBody(body)
	return hdr, req, err
}

func decodeOffsetRequestBody(b []byte) (*OffsetRequest, error) {
	req := &OffsetRequest{}
	var n int
	var err error

	req.ReplicaId, n, err = readInt32(b)
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
		var t OffsetTopicQuery
		t.Topic, n, err = readString(b)
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
			var p OffsetPartitionQuery
			p.Partition, n, err = readInt32(b)
			if err != nil {
				return nil, err
			}
			b = b[n:]
			p.Time, n, err = readInt64(b)
			if err != nil {
				return nil, err
			}
			b = b[n:]
			p.MaxNumberOfOffsets, n, err = readInt32(b)
			if err != nil {
				return nil, err
			}
			b = b[n:]
			t.Partitions = append(t.Partitions, p)
		}
		req.Topics = append(req.Topics, t)
	}
	return req, nil
}

// OffsetPartitionResponse is one partition's result in an OFFSET
// response.
type OffsetPartitionResponse struct {
	Partition int32
	ErrorCode Code
	Offsets   []int64
}

// OffsetTopicResponse is one topic's results in an OFFSET response.
type OffsetTopicResponse struct {
	Topic      string
	Partitions []OffsetPartitionResponse
}

// OffsetResponse is the decoded OFFSET response body, per spec.md
// §4.3.
type OffsetResponse struct {
	Topics []OffsetTopicResponse
}

func (r *OffsetResponse) encodeBody() []byte {
	var buf bytes.Buffer
	writeInt32(&buf, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(&buf, t.Topic)
		writeInt32(&buf, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			writeInt32(&buf, p.Partition)
			writeInt16(&buf, int16(p.ErrorCode))
			writeInt32(&buf, int32(len(p.Offsets)))
			for _, o := range p.Offsets {
				writeInt64(&buf, o)
			}
		}
	}
	return buf.Bytes()
}

// EncodeOffsetResponse encodes a full OFFSET response frame.
func EncodeOffsetResponse(correlationId int32, r *OffsetResponse) []byte {
	return encodeResponse(ResponseHeader{CorrelationId: correlationId}, r.encodeBody())
}

// DecodeOffsetResponse decodes a full OFFSET response frame.
func DecodeOffsetResponse(b []byte) (ResponseHeader, *OffsetResponse, error) {
	hdr, body, err := decodeResponseHeader(b)
	if err != nil {
		return ResponseHeader{}, nil, err
	}

	resp := &OffsetResponse{}
	topicCount, n, err := readInt32(body)
	if err != nil {
		return hdr, nil, err
	}
	body = body[n:]

	for i := int32(0); i < topicCount; i++ {
		var t OffsetTopicResponse
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
			var p OffsetPartitionResponse
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

			offCount, n, err := readInt32(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]

			for k := int32(0); k < offCount; k++ {
				off, n, err := readInt64(body)
				if err != nil {
					return hdr, nil, err
				}
				body = body[n:]
				p.Offsets = append(p.Offsets, off)
			}

			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return hdr, resp, nil
}
