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

// EncodeMessageSet concatenates the wire encoding of each record, with
// no enclosing length frame — the caller (a produce/fetch partition
// entry) supplies that frame, per spec.md §3.
func EncodeMessageSet(records []*Record) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r.Encode())
	}
	return buf.Bytes()
}

// DecodeMessageSet decodes a MessageSet, tolerating a truncated final
// triple: if the trailing bytes aren't enough to hold a full header or
// a full record body, decoding stops and returns the records decoded
// so far with no error, per spec.md §3/§8 ("decoders must tolerate ...
// a partial trailing triple").
//
// A compressed outer Record (attributes indicate a non-none codec) is
// decompressed and recursively decoded; its inner records are inlined
// with their own offsets (the outer offset carries no semantics for a
// compressed batch).
func DecodeMessageSet(b []byte) ([]*Record, error) {
	var out []*Record
	for len(b) > 0 {
		if len(b) < 12 { // offset(8) + size(4)
			break
		}
		offset, _, _ := readInt64(b)
		size, _, _ := readInt32(b[8:])
		if size < 0 {
			break
		}
		end := 12 + int(size)
		if end > len(b) {
			// partial trailing triple: header present, not enough body
			break
		}

		rec, err := decodeRecordMessage(b[12:end])
		if err != nil {
			// a malformed-but-complete triple still truncates the tail
			// tolerantly rather than raising, matching the broker's own
			// "may truncate the tail for efficiency" allowance.
			break
		}
		rec.Offset = offset

		if rec.Valid && rec.Compression() != CompressionNone {
			inner, err := decodeCompressedRecord(rec)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		} else {
			out = append(out, rec)
		}

		b = b[end:]
	}
	return out, nil
}

// decodeCompressedRecord decompresses a compressed outer Record's
// value and decodes the inner MessageSet, per spec.md §3. Inner
// offsets come from the decoded stream itself; the function also
// verifies they're strictly increasing, a property exercised by the
// round-trip tests in messageset_test.go.
func decodeCompressedRecord(outer *Record) ([]*Record, error) {
	raw, err := Decompress(outer.Compression(), outer.Value)
	if err != nil {
		return nil, err
	}
	inner, err := DecodeMessageSet(raw)
	if err != nil {
		return nil, err
	}
	var prev int64 = -1
	first := true
	for _, r := range inner {
		if !first && r.Offset <= prev {
			return nil, newError(RequestOrResponseMalformed, nil, "compressed batch offsets not strictly increasing")
		}
		prev = r.Offset
		first = false
	}
	return inner, nil
}

// NewCompressedRecord builds a single outer Record whose value is the
// codec-compressed encoding of the given inner records, per spec.md
// §3's "Compressed MessageSet" shape.
func NewCompressedRecord(codec CompressionCodec, records []*Record) (*Record, error) {
	inner := EncodeMessageSet(records)
	compressed, err := Compress(codec, inner)
	if err != nil {
		return nil, err
	}
	return &Record{
		Offset:     OffsetAny,
		MagicByte:  Magic1,
		Attributes: int8(codec),
		Value:      compressed,
		Valid:      true,
	}, nil
}
