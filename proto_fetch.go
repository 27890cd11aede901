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

// ReplicaIdConsumer is the ReplicaId a consumer (as opposed to a
// follower broker) sends on a FETCH request, per spec.md §4.3.
const ReplicaIdConsumer int32 = -1

// FetchPartition is one partition entry of a FETCH request.
type FetchPartition struct {
	Partition   int32
	FetchOffset int64
	MaxBytes    int32
}

// FetchTopic is one topic entry of a FETCH request.
type FetchTopic struct {
	Topic      string
	Partitions []FetchPartition
}

// FetchRequest is the decoded FETCH request body, per spec.md §4.3.
type FetchRequest struct {
	ReplicaId int32
	MaxWaitMs int32
	MinBytes  int32
	Topics    []FetchTopic
}

func (r *FetchRequest) encodeBody() []byte {
	var buf bytes.Buffer
	writeInt32(&buf, r.ReplicaId)
	writeInt32(&buf, r.MaxWaitMs)
	writeInt32(&buf, r.MinBytes)
	writeInt32(&buf, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(&buf, t.Topic)
		writeInt32(&buf, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			writeInt32(&buf, p.Partition)
			writeInt64(&buf, p.FetchOffset)
			writeInt32(&buf, p.MaxBytes)
		}
	}
	return buf.Bytes()
}

// EncodeFetchRequest encodes a full FETCH request frame.
func EncodeFetchRequest(correlationId int32, clientId string, apiVersion int16, r *FetchRequest) []byte {
	hdr := RequestHeader{ApiKey: ApiFetch, ApiVersion: apiVersion, CorrelationId: correlationId, ClientId: clientId}
	return encodeRequest(hdr, r.encodeBody())
}

// DecodeFetchRequest decodes a full FETCH request frame.
func DecodeFetchRequest(b []byte) (RequestHeader, *FetchRequest, error) {
	hdr, body, err := decodeRequestHeader(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	req, err := decodeFetchRequestBody(body)
	return hdr, req, err
}

func decodeFetchRequestBody(b []byte) (*FetchRequest, error) {
	req := &FetchRequest{}
	var n int
	var err error

	req.ReplicaId, n, err = readInt32(b)
	if err != nil {
		return nil, err
	}
	b = b[n:]
	req.MaxWaitMs, n, err = readInt32(b)
	if err != nil {
		return nil, err
	}
	b = b[n:]
	req.MinBytes, n, err = readInt32(b)
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
		var t FetchTopic
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
			var p FetchPartition
			p.Partition, n, err = readInt32(b)
			if err != nil {
				return nil, err
			}
			b = b[n:]
			p.FetchOffset, n, err = readInt64(b)
			if err != nil {
				return nil, err
			}
			b = b[n:]
			p.MaxBytes, n, err = readInt32(b)
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

// FetchPartitionResponse is one partition's result in a FETCH
// response.
type FetchPartitionResponse struct {
	Partition           int32
	ErrorCode           Code
	HighwaterMarkOffset int64
	Records             []*Record
}

// FetchTopicResponse is one topic's results in a FETCH response.
type FetchTopicResponse struct {
	Topic      string
	Partitions []FetchPartitionResponse
}

// FetchResponse is the decoded FETCH response body, per spec.md §4.3.
type FetchResponse struct {
	Topics []FetchTopicResponse
}

func (r *FetchResponse) encodeBody() []byte {
	var buf bytes.Buffer
	writeInt32(&buf, int32(len(r.Topics)))
	for _, t := range r.Topics {
		writeString(&buf, t.Topic)
		writeInt32(&buf, int32(len(t.Partitions)))
		for _, p := range t.Partitions {
			writeInt32(&buf, p.Partition)
			writeInt16(&buf, int16(p.ErrorCode))
			writeInt64(&buf, p.HighwaterMarkOffset)
			ms := EncodeMessageSet(p.Records)
			writeInt32(&buf, int32(len(ms)))
			buf.Write(ms)
		}
	}
	return buf.Bytes()
}

// EncodeFetchResponse encodes a full FETCH response frame.
func EncodeFetchResponse(correlationId int32, r *FetchResponse) []byte {
	return encodeResponse(ResponseHeader{CorrelationId: correlationId}, r.encodeBody())
}

// DecodeFetchResponse decodes a full FETCH response frame. The
// trailing message set of each partition is decoded tolerantly per
// spec.md §3/§8 via DecodeMessageSet.
func DecodeFetchResponse(b []byte) (ResponseHeader, *FetchResponse, error) {
	hdr, body, err := decodeResponseHeader(b)
	if err != nil {
		return ResponseHeader{}, nil, err
	}

	resp := &FetchResponse{}
	topicCount, n, err := readInt32(body)
	if err != nil {
		return hdr, nil, err
	}
	body = body[n:]

	for i := int32(0); i < topicCount; i++ {
		var t FetchTopicResponse
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
			var p FetchPartitionResponse
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

			p.HighwaterMarkOffset, n, err = readInt64(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]

			msSize, n, err := readInt32(body)
			if err != nil {
				return hdr, nil, err
			}
			body = body[n:]

			// Tolerate the broker truncating the tail of the message set
			// below msSize bytes, per spec.md §3.
			chunk := body
			if int32(len(chunk)) > msSize {
				chunk = chunk[:msSize]
			}
			p.Records, err = DecodeMessageSet(chunk)
			if err != nil {
				return hdr, nil, err
			}

			if int32(len(body)) >= msSize {
				body = body[msSize:]
			} else {
				body = nil
			}

			t.Partitions = append(t.Partitions, p)
		}
		resp.Topics = append(resp.Topics, t)
	}
	return hdr, resp, nil
}
