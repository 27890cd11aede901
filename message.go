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
	"encoding/binary"
	"hash/crc32"
)

// OffsetAny is the sentinel offset a producer supplies for a Record it
// is about to send; the broker assigns the real offset.
const OffsetAny int64 = -1

// MagicByte values. Magic 0 is the original format with no timestamp;
// magic 1 adds the Timestamp field, per spec.md §3.
const (
	Magic0 int8 = 0
	Magic1 int8 = 1
)

// Record is a single wire-format message, the counterpart of the
// teacher's Message type (lytics-kafka's consumer.go), generalized with
// the offset/timestamp/magic fields the teacher's 0.7-era format
// lacked.
type Record struct {
	Offset      int64
	CRC         uint32
	MagicByte   int8
	Attributes  int8
	Timestamp   int64 // only meaningful when MagicByte >= Magic1
	Key         []byte // nil means null
	Value       []byte // nil means null

	// Valid and Err are populated by decode; a Record with Valid==false
	// carries a non-nil Err describing why (e.g. CRC mismatch), per
	// spec.md §4.6's Message.valid/error contract.
	Valid bool
	Err   error
}

// Compression extracts the codec from the low 3 bits of Attributes.
func (r *Record) Compression() CompressionCodec {
	return CompressionCodec(r.Attributes & compressionMask)
}

// NewRecord builds an uncompressed record with the given key/value,
// magic 1 (timestamp present), and OffsetAny.
func NewRecord(key, value []byte) *Record {
	return &Record{
		Offset:    OffsetAny,
		MagicByte: Magic1,
		Key:       key,
		Value:     value,
		Valid:     true,
	}
}

// body returns the CRC-covered portion: MagicByte, Attributes,
// [Timestamp], Key, Value.
func (r *Record) body() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(r.MagicByte))
	buf.WriteByte(byte(r.Attributes))
	if r.MagicByte >= Magic1 {
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(r.Timestamp))
		buf.Write(ts[:])
	}
	writeBytes(&buf, r.Key)
	writeBytes(&buf, r.Value)
	return buf.Bytes()
}

// encodeMessage renders the CRC + body of this record (the part that
// the MessageSize field in the enclosing triple measures).
func (r *Record) encodeMessage() []byte {
	body := r.body()
	crc := crc32.ChecksumIEEE(body)
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, crc)
	copy(out[4:], body)
	return out
}

// Encode renders the full (offset, size, message) triple for this
// record, as it appears inside a MessageSet.
func (r *Record) Encode() []byte {
	msg := r.encodeMessage()
	out := make([]byte, 8+4+len(msg))
	binary.BigEndian.PutUint64(out[0:8], uint64(r.Offset))
	binary.BigEndian.PutUint32(out[8:12], uint32(len(msg)))
	copy(out[12:], msg)
	return out
}

// decodeRecordMessage decodes the CRC+body portion of a record (i.e.
// the bytes described by a triple's MessageSize field). It never
// returns a decode error for a CRC mismatch; instead it marks the
// Record invalid so sibling records in the same set keep decoding, per
// spec.md §4.3/§8.
func decodeRecordMessage(b []byte) (*Record, error) {
	if len(b) < 4+1+1 {
		return nil, errShortRecord
	}
	crc := binary.BigEndian.Uint32(b[0:4])
	body := b[4:]

	r := &Record{CRC: crc}
	r.MagicByte = int8(body[0])
	r.Attributes = int8(body[1])
	off := 2
	if r.MagicByte >= Magic1 {
		if len(body) < off+8 {
			return nil, errShortRecord
		}
		r.Timestamp = int64(binary.BigEndian.Uint64(body[off : off+8]))
		off += 8
	}

	key, n, err := readBytes(body[off:])
	if err != nil {
		return nil, err
	}
	off += n
	r.Key = key

	value, n, err := readBytes(body[off:])
	if err != nil {
		return nil, err
	}
	off += n
	r.Value = value

	computed := crc32.ChecksumIEEE(body[:off])
	if computed != crc {
		r.Valid = false
		r.Err = newError(InvalidMessage, nil, "CRC mismatch: stored %08x computed %08x", crc, computed)
	} else {
		r.Valid = true
	}
	return r, nil
}
