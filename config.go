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
	"time"

	"go.uber.org/zap"
)

// DefaultPort is the broker cluster's default TCP port.
const DefaultPort int32 = 9092

// MessageSizeOverhead is the fixed per-Record wire overhead, for
// callers budgeting records against Config.MaxBytes: 12 bytes for the
// enclosing offset/size, 14 for the CRC, magic byte, attributes and the
// two bytes-or-null length prefixes (26 in all for a magic-0 Record),
// and 8 for a magic-1 Record's timestamp. Key and value lengths come on
// top. Nothing in this package reads the constant.
const MessageSizeOverhead = 34

// Config holds every recognized construction option for a Connection,
// per spec.md §6. There is deliberately no file/env loader here; that
// belongs to an out-of-scope façade.
type Config struct {
	Host       string
	Port       int32
	BrokerList []BrokerMetadata

	Timeout   time.Duration
	IPVersion IPVersion

	ClientId      string
	CorrelationId int32

	MaxAttempts int
	BackoffMs   int

	RequiredAcks int16

	MaxBytes           int32
	MaxWaitMs          int32
	MinBytes           int32
	MaxNumberOfOffsets int32

	Compression CompressionCodec

	SASLMechanism string
	SASLUsername  string
	SASLPassword  string

	Logger *zap.Logger
}

// DefaultConfig returns a Config populated with the defaults from
// spec.md §6.
func DefaultConfig() Config {
	return Config{
		Port:               DefaultPort,
		Timeout:            1500 * time.Millisecond,
		IPVersion:          IPUnspecified,
		MaxAttempts:        4,
		BackoffMs:          200,
		RequiredAcks:       AcksLeader,
		MaxBytes:           1000000,
		MaxWaitMs:          100,
		MinBytes:           0,
		MaxNumberOfOffsets: 100,
		Compression:        CompressionNone,
	}
}

func (c *Config) sasl() *SASLConfig {
	if c.SASLMechanism == "" {
		return nil
	}
	return &SASLConfig{
		Mechanism: c.SASLMechanism,
		Username:  c.SASLUsername,
		Password:  c.SASLPassword,
	}
}

func (c *Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c *Config) backoff() time.Duration {
	return time.Duration(c.BackoffMs) * time.Millisecond
}
