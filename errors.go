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
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Code identifies a client-side or server-side error condition, per
// spec.md §7. Client-side codes live in negative space; server-side
// codes are the non-negative error codes reported by the broker.
type Code int32

// Client-side codes (negative numeric space, reserved by this library).
const (
	ArgError                   Code = -1
	CannotSend                 Code = -2
	SendNoAck                  Code = -3
	CannotRecv                 Code = -4
	CannotBind                 Code = -5
	UnknownMetadataAttributes  Code = -6
	UnknownApiKey              Code = -7
	CannotGetMetadata          Code = -8
	LeaderNotFound             Code = -9
	MismatchCorrelationId      Code = -10
	NoKnownBrokers             Code = -11
	RequestOrResponseMalformed Code = -12
	TopicMismatch              Code = -13
	PartitionMismatch          Code = -14
	NotBinaryString            Code = -15
	CompressionError           Code = -16
	ResponseNotReceived        Code = -17
	IncompatibleHostIpVersion  Code = -18
	NoConnection               Code = -19
	GroupCoordinatorNotFound   Code = -20
	IOTimeout                  Code = -21
	Unauthenticated            Code = -22
	InvalidMessage             Code = -23
)

// Server-side codes (non-negative, as reported by the broker).
const (
	NoError                      Code = 0
	OffsetOutOfRange             Code = 1
	CorruptMessage               Code = 2
	UnknownTopicOrPartition      Code = 3
	InvalidMessageSize           Code = 4
	LeaderNotAvailable           Code = 5
	NotLeaderForPartition        Code = 6
	RequestTimedOut              Code = 7
	BrokerNotAvailable           Code = 8
	ReplicaNotAvailable          Code = 9
	MessageSizeTooLarge          Code = 10
	StaleControllerEpoch         Code = 11
	OffsetMetadataTooLarge       Code = 12
	NetworkException             Code = 13
	GroupLoadInProgress          Code = 14
	GroupCoordinatorNotAvailable Code = 15
	NotCoordinatorForGroup       Code = 16
	NotEnoughReplicas            Code = 19
	NotEnoughReplicasAfterAppend Code = 20
	RebalanceInProgress          Code = 27
)

var codeNames = map[Code]string{
	ArgError:                   "ArgError",
	CannotSend:                 "CannotSend",
	SendNoAck:                  "SendNoAck",
	CannotRecv:                 "CannotRecv",
	CannotBind:                 "CannotBind",
	UnknownMetadataAttributes:  "UnknownMetadataAttributes",
	UnknownApiKey:              "UnknownApiKey",
	CannotGetMetadata:          "CannotGetMetadata",
	LeaderNotFound:             "LeaderNotFound",
	MismatchCorrelationId:      "MismatchCorrelationId",
	NoKnownBrokers:             "NoKnownBrokers",
	RequestOrResponseMalformed: "RequestOrResponseMalformed",
	TopicMismatch:              "TopicMismatch",
	PartitionMismatch:          "PartitionMismatch",
	NotBinaryString:            "NotBinaryString",
	CompressionError:           "CompressionError",
	ResponseNotReceived:        "ResponseNotReceived",
	IncompatibleHostIpVersion:  "IncompatibleHostIpVersion",
	NoConnection:               "NoConnection",
	GroupCoordinatorNotFound:   "GroupCoordinatorNotFound",
	IOTimeout:                  "IOTimeout",
	Unauthenticated:            "Unauthenticated",
	InvalidMessage:             "InvalidMessage",

	NoError:                      "NoError",
	OffsetOutOfRange:             "OffsetOutOfRange",
	CorruptMessage:               "CorruptMessage",
	UnknownTopicOrPartition:      "UnknownTopicOrPartition",
	InvalidMessageSize:           "InvalidMessageSize",
	LeaderNotAvailable:           "LeaderNotAvailable",
	NotLeaderForPartition:        "NotLeaderForPartition",
	RequestTimedOut:              "RequestTimedOut",
	BrokerNotAvailable:           "BrokerNotAvailable",
	ReplicaNotAvailable:          "ReplicaNotAvailable",
	MessageSizeTooLarge:          "MessageSizeTooLarge",
	StaleControllerEpoch:         "StaleControllerEpoch",
	OffsetMetadataTooLarge:       "OffsetMetadataTooLarge",
	NetworkException:             "NetworkException",
	GroupLoadInProgress:          "GroupLoadInProgress",
	GroupCoordinatorNotAvailable: "GroupCoordinatorNotAvailable",
	NotCoordinatorForGroup:       "NotCoordinatorForGroup",
	NotEnoughReplicas:            "NotEnoughReplicas",
	NotEnoughReplicasAfterAppend: "NotEnoughReplicasAfterAppend",
	RebalanceInProgress:          "RebalanceInProgress",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int32(c))
}

// retriableCodes is the classification table from spec.md §4.5.5.
var retriableCodes = map[Code]bool{
	LeaderNotAvailable:           true,
	NotLeaderForPartition:        true,
	BrokerNotAvailable:           true,
	ReplicaNotAvailable:          true,
	RequestTimedOut:              true,
	NetworkException:             true,
	GroupLoadInProgress:          true,
	GroupCoordinatorNotAvailable: true,
	NotCoordinatorForGroup:       true,
	NotEnoughReplicas:            true,
	NotEnoughReplicasAfterAppend: true,
	RebalanceInProgress:          true,
	UnknownTopicOrPartition:      true,
	StaleControllerEpoch:         true,
	LeaderNotFound:               true,
	NoConnection:                 true,
	CannotSend:                   true,
	CannotRecv:                   true,
	CannotBind:                   true,
	MismatchCorrelationId:        true,
}

// Retriable reports whether an error of the given code should be
// retried by the Connection's retry/backoff loop, per spec.md §4.5.5.
func Retriable(c Code) bool {
	return retriableCodes[c]
}

// Error is the uniform error type for both client-side and server-side
// failures. It wraps an optional underlying cause and, for fatal
// errors raised out of the retry loop, the accumulated non-fatal log.
type Error struct {
	Code      Code
	Message   string
	Endpoint  string
	cause     error
	NonFatals *multierror.Error
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Retriable reports whether this error's code is retriable.
func (e *Error) Retriable() bool { return Retriable(e.Code) }

func newError(code Code, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	var wrapped error
	if cause != nil {
		wrapped = errors.Wrap(cause, msg)
	}
	return &Error{Code: code, Message: msg, cause: wrapped}
}

func newArgError(format string, args ...interface{}) *Error {
	return newError(ArgError, nil, format, args...)
}

func withEndpoint(err *Error, endpoint string) *Error {
	err.Endpoint = endpoint
	return err
}

// withNonFatals attaches the accumulated non-fatal log to a fatal
// error before it's raised to the caller, per spec.md §7.
func withNonFatals(err *Error, log *multierror.Error) *Error {
	err.NonFatals = log
	return err
}
