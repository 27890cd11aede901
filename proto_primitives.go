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

// Primitive wire types for the protocol codec, per spec.md §3: signed
// 8/16/32/64-bit big-endian integers, length-prefixed byte strings
// (int32 length, -1 is null), length-prefixed UTF-8 strings (int16
// length), and arrays (int32 count followed by elements).
package kafkacore

import (
	"bytes"
	"encoding/binary"
)

var (
	errShortRecord  = newError(RequestOrResponseMalformed, nil, "truncated record")
	errShortString  = newError(RequestOrResponseMalformed, nil, "truncated string")
	errShortBytes   = newError(RequestOrResponseMalformed, nil, "truncated byte string")
	errShortHeader  = newError(RequestOrResponseMalformed, nil, "truncated header")
	errShortArray   = newError(RequestOrResponseMalformed, nil, "truncated array")
)

func writeInt8(buf *bytes.Buffer, v int8)   { buf.WriteByte(byte(v)) }
func writeInt16(buf *bytes.Buffer, v int16) { var b [2]byte; binary.BigEndian.PutUint16(b[:], uint16(v)); buf.Write(b[:]) }
func writeInt32(buf *bytes.Buffer, v int32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], uint32(v)); buf.Write(b[:]) }
func writeInt64(buf *bytes.Buffer, v int64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], uint64(v)); buf.Write(b[:]) }

// writeBytes writes a length-prefixed byte string; nil encodes as
// length -1.
func writeBytes(buf *bytes.Buffer, b []byte) {
	if b == nil {
		writeInt32(buf, -1)
		return
	}
	writeInt32(buf, int32(len(b)))
	buf.Write(b)
}

// writeString writes a length-prefixed UTF-8 string with an int16
// length; an empty string encodes as length 0 with no payload.
func writeString(buf *bytes.Buffer, s string) {
	writeInt16(buf, int16(len(s)))
	buf.WriteString(s)
}

func readInt8(b []byte) (int8, int, error) {
	if len(b) < 1 {
		return 0, 0, errShortHeader
	}
	return int8(b[0]), 1, nil
}

func readInt16(b []byte) (int16, int, error) {
	if len(b) < 2 {
		return 0, 0, errShortHeader
	}
	return int16(binary.BigEndian.Uint16(b)), 2, nil
}

func readInt32(b []byte) (int32, int, error) {
	if len(b) < 4 {
		return 0, 0, errShortHeader
	}
	return int32(binary.BigEndian.Uint32(b)), 4, nil
}

func readInt64(b []byte) (int64, int, error) {
	if len(b) < 8 {
		return 0, 0, errShortHeader
	}
	return int64(binary.BigEndian.Uint64(b)), 8, nil
}

// readBytes reads a length-prefixed byte string, returning (nil, 4,
// nil) for a null (-1 length) string.
func readBytes(b []byte) ([]byte, int, error) {
	if len(b) < 4 {
		return nil, 0, errShortBytes
	}
	n := int32(binary.BigEndian.Uint32(b))
	if n == -1 {
		return nil, 4, nil
	}
	if n < 0 || len(b) < 4+int(n) {
		return nil, 0, errShortBytes
	}
	out := make([]byte, n)
	copy(out, b[4:4+n])
	return out, 4 + int(n), nil
}

// readString reads a length-prefixed UTF-8 string with an int16
// length.
func readString(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, errShortString
	}
	n := int16(binary.BigEndian.Uint16(b))
	if n == -1 {
		return "", 2, nil
	}
	if n < 0 || len(b) < 2+int(n) {
		return "", 0, errShortString
	}
	return string(b[2 : 2+int(n)]), 2 + int(n), nil
}
