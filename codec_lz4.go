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
	"io"

	"github.com/pierrec/lz4/v4"
)

func lz4Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, newError(CompressionError, err, "lz4 compress")
	}
	if err := w.Close(); err != nil {
		return nil, newError(CompressionError, err, "lz4 compress close")
	}
	return buf.Bytes(), nil
}

func lz4Decompress(b []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(b))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(CompressionError, err, "lz4 decompress")
	}
	return out, nil
}
