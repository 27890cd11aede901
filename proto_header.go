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

// ApiKey identifies one of the four wire operations in scope, per
// spec.md §4.3.
type ApiKey int16

const (
	ApiProduce  ApiKey = 0
	ApiFetch    ApiKey = 1
	ApiOffset   ApiKey = 2
	ApiMetadata ApiKey = 3
)

// RequestHeader is the common prefix of every request, per spec.md
// §4.3: size, apiKey, apiVersion, correlationId, clientId.
type RequestHeader struct {
	ApiKey        ApiKey
	ApiVersion    int16
	CorrelationId int32
	ClientId      string
}

// encodeRequest writes the request header followed by body, prefixing
// the whole thing with the int32 size field that covers everything
// after itself.
func encodeRequest(h RequestHeader, body []byte) []byte {
	var hdr bytes.Buffer
	writeInt16(&hdr, int16(h.ApiKey))
	writeInt16(&hdr, h.ApiVersion)
	writeInt32(&hdr, h.CorrelationId)
	writeString(&hdr, h.ClientId)

	size := int32(hdr.Len() + len(body))
	var out bytes.Buffer
	writeInt32(&out, size)
	out.Write(hdr.Bytes())
	out.Write(body)
	return out.Bytes()
}

// decodeRequestHeader decodes the size-prefixed request header,
// returning the header and the remaining body bytes.
func decodeRequestHeader(b []byte) (RequestHeader, []byte, error) {
	size, n, err := readInt32(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	b = b[n:]
	if int32(len(b)) < size {
		return RequestHeader{}, nil, errShortHeader
	}
	b = b[:size]

	apiKey, n, err := readInt16(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	b = b[n:]

	apiVersion, n, err := readInt16(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	b = b[n:]

	correlationId, n, err := readInt32(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	b = b[n:]

	clientId, n, err := readString(b)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	b = b[n:]

	return RequestHeader{
		ApiKey:        ApiKey(apiKey),
		ApiVersion:    apiVersion,
		CorrelationId: correlationId,
		ClientId:      clientId,
	}, b, nil
}

// ResponseHeader is the common prefix of every response: size,
// correlationId.
type ResponseHeader struct {
	CorrelationId int32
}

func encodeResponse(h ResponseHeader, body []byte) []byte {
	var out bytes.Buffer
	writeInt32(&out, int32(4+len(body)))
	writeInt32(&out, h.CorrelationId)
	out.Write(body)
	return out.Bytes()
}

func decodeResponseHeader(b []byte) (ResponseHeader, []byte, error) {
	size, n, err := readInt32(b)
	if err != nil {
		return ResponseHeader{}, nil, err
	}
	b = b[n:]
	if int32(len(b)) < size {
		return ResponseHeader{}, nil, errShortHeader
	}
	b = b[:size]

	correlationId, n, err := readInt32(b)
	if err != nil {
		return ResponseHeader{}, nil, err
	}
	b = b[n:]

	return ResponseHeader{CorrelationId: correlationId}, b, nil
}
