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
	"encoding/binary"
	"math"
)

// Pack64 encodes a signed 64-bit integer as 8 big-endian bytes. Go's
// int64 is always 64 bits wide, even on 32-bit hosts, so no carry
// representation is needed here; the contract still rejects values
// outside the signed-64 range for callers coming from a narrower type.
func Pack64(v int64) ([]byte, error) {
	if v < math.MinInt64 || v > math.MaxInt64 {
		return nil, newArgError("pack64: value out of signed-64 range")
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf, nil
}

// Unpack64 decodes 8 big-endian bytes into a signed 64-bit integer.
func Unpack64(b []byte) (int64, error) {
	if len(b) < 8 {
		return 0, newArgError("unpack64: need 8 bytes")
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// Sum64 adds two signed 64-bit integers, saturating at the signed-64
// bounds instead of wrapping on overflow.
func Sum64(a, b int64) int64 {
	sum := a + b
	// overflow occurs iff operands have the same sign and the result's
	// sign differs from the operands'
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		if a > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return sum
}
