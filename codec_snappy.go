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
	xerial "github.com/eapache/go-xerial-snappy"
)

// snappyCompress emits the framed "xerial" container spec.md §4.2
// describes: the eapache/go-xerial-snappy library already bounds each
// frame at a safe size for interoperability, so no manual chunking is
// needed here.
func snappyCompress(b []byte) ([]byte, error) {
	return xerial.EncodeStream(nil, b), nil
}

// snappyDecompress accepts any number of xerial frames, per §4.2's
// tolerant multi-frame requirement.
func snappyDecompress(b []byte) ([]byte, error) {
	out, err := xerial.Decode(b)
	if err != nil {
		return nil, newError(CompressionError, err, "snappy (xerial) decompress")
	}
	return out, nil
}
