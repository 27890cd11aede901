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

	"github.com/klauspost/compress/gzip"
)

func gzipCompress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, newError(CompressionError, err, "gzip compress")
	}
	if err := w.Close(); err != nil {
		return nil, newError(CompressionError, err, "gzip compress close")
	}
	return buf.Bytes(), nil
}

func gzipDecompress(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, newError(CompressionError, err, "gzip decompress: bad header")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(CompressionError, err, "gzip decompress")
	}
	return out, nil
}
