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

func TestRequestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	hdr := RequestHeader{ApiKey: ApiProduce, ApiVersion: 0, CorrelationId: 99, ClientId: "my-client"}
	frame := encodeRequest(hdr, []byte("body-bytes"))

	decodedHdr, body, err := decodeRequestHeader(frame)
	require.NoError(t, err)
	require.Equal(t, hdr, decodedHdr)
	require.Equal(t, []byte("body-bytes"), body)
}

func TestRequestHeaderEmptyClientId(t *testing.T) {
	hdr := RequestHeader{ApiKey: ApiMetadata, ApiVersion: 0, CorrelationId: 1, ClientId: ""}
	frame := encodeRequest(hdr, nil)

	decodedHdr, body, err := decodeRequestHeader(frame)
	require.NoError(t, err)
	require.Equal(t, hdr, decodedHdr)
	require.Empty(t, body)
}

func TestResponseHeaderEncodeDecodeRoundTrip(t *testing.T) {
	hdr := ResponseHeader{CorrelationId: 777}
	frame := encodeResponse(hdr, []byte("response-body"))

	decodedHdr, body, err := decodeResponseHeader(frame)
	require.NoError(t, err)
	require.Equal(t, hdr, decodedHdr)
	require.Equal(t, []byte("response-body"), body)
}

func TestDecodeRequestHeaderTruncated(t *testing.T) {
	hdr := RequestHeader{ApiKey: ApiFetch, ApiVersion: 0, CorrelationId: 1, ClientId: "c"}
	frame := encodeRequest(hdr, []byte("xx"))
	_, _, err := decodeRequestHeader(frame[:len(frame)-1])
	require.Error(t, err)
}
