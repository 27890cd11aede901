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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writeBytes(&buf, []byte("payload"))
	out, n, err := readBytes(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), out)
	require.Equal(t, buf.Len(), n)
}

func TestWriteReadBytesNull(t *testing.T) {
	var buf bytes.Buffer
	writeBytes(&buf, nil)
	out, n, err := readBytes(buf.Bytes())
	require.NoError(t, err)
	require.Nil(t, out)
	require.Equal(t, 4, n)
}

func TestWriteReadStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writeString(&buf, "mytopic")
	out, n, err := readString(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "mytopic", out)
	require.Equal(t, buf.Len(), n)
}

func TestWriteReadStringEmpty(t *testing.T) {
	var buf bytes.Buffer
	writeString(&buf, "")
	out, n, err := readString(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "", out)
	require.Equal(t, 2, n)
}

func TestReadBytesTruncated(t *testing.T) {
	var buf bytes.Buffer
	writeBytes(&buf, []byte("hello"))
	_, _, err := readBytes(buf.Bytes()[:5])
	require.Error(t, err)
}

func TestReadStringTruncated(t *testing.T) {
	var buf bytes.Buffer
	writeString(&buf, "hello")
	_, _, err := readString(buf.Bytes()[:3])
	require.Error(t, err)
}

func TestIntegerRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	writeInt8(&buf, -5)
	writeInt16(&buf, -1000)
	writeInt32(&buf, -100000)
	writeInt64(&buf, -10000000000)

	b := buf.Bytes()
	v8, n, err := readInt8(b)
	require.NoError(t, err)
	require.Equal(t, int8(-5), v8)
	b = b[n:]

	v16, n, err := readInt16(b)
	require.NoError(t, err)
	require.Equal(t, int16(-1000), v16)
	b = b[n:]

	v32, n, err := readInt32(b)
	require.NoError(t, err)
	require.Equal(t, int32(-100000), v32)
	b = b[n:]

	v64, _, err := readInt64(b)
	require.NoError(t, err)
	require.Equal(t, int64(-10000000000), v64)
}
