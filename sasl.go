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
	"context"
	"encoding/binary"

	"github.com/xdg-go/scram"
)

// apiVersions and saslHandshake are API keys outside the four in-scope
// operations (spec.md §4.3); the pre-handshake of §4.4 speaks them
// directly over the same length-prefixed request/response framing
// rather than through the protocol codec, since this client never
// otherwise encodes/decodes them.
const (
	apiVersions   ApiKey = 18
	saslHandshake ApiKey = 17
)

// performSASLHandshake runs the optional pre-handshake of spec.md
// §4.4: an ApiVersions probe, a SaslHandshake naming the mechanism,
// then mechanism-specific exchange frames.
func performSASLHandshake(ctx context.Context, t *tcpTransport, cfg *SASLConfig) error {
	if err := sendApiVersionsProbe(ctx, t); err != nil {
		return err
	}
	if err := sendSaslHandshake(ctx, t, cfg.Mechanism); err != nil {
		return err
	}

	switch cfg.Mechanism {
	case "PLAIN":
		return saslPlain(ctx, t, cfg)
	case "SCRAM-SHA-256":
		return saslSCRAM(ctx, t, cfg, scram.SHA256)
	case "SCRAM-SHA-512":
		return saslSCRAM(ctx, t, cfg, scram.SHA512)
	default:
		return newError(ArgError, nil, "unsupported SASL mechanism %q", cfg.Mechanism)
	}
}

// sendApiVersionsProbe sends an empty-body ApiVersions request and
// drains its response. Some brokers require this before SaslHandshake
// even though this client never negotiates versions off of it (see
// DESIGN.md Open Question #5).
func sendApiVersionsProbe(ctx context.Context, t *tcpTransport) error {
	hdr := RequestHeader{ApiKey: apiVersions, ApiVersion: 0, CorrelationId: 0, ClientId: ""}
	frame := encodeRequest(hdr, nil)
	if err := t.Send(ctx, frame); err != nil {
		return err
	}
	return drainResponse(ctx, t)
}

func sendSaslHandshake(ctx context.Context, t *tcpTransport, mechanism string) error {
	var body bytes.Buffer
	writeString(&body, mechanism)
	hdr := RequestHeader{ApiKey: saslHandshake, ApiVersion: 0, CorrelationId: 0, ClientId: ""}
	frame := encodeRequest(hdr, body.Bytes())
	if err := t.Send(ctx, frame); err != nil {
		return err
	}
	return drainResponse(ctx, t)
}

// drainResponse reads and discards one length-prefixed response frame.
func drainResponse(ctx context.Context, t *tcpTransport) error {
	sizeBuf, err := t.Receive(ctx, 4)
	if err != nil {
		return err
	}
	size := int32(binary.BigEndian.Uint32(sizeBuf))
	if size < 0 {
		return newError(RequestOrResponseMalformed, nil, "negative response size")
	}
	_, err = t.Receive(ctx, int(size))
	return err
}

// saslPlain implements RFC 4616 PLAIN as a single raw, length-prefixed
// exchange frame, the pre-KIP-152 convention the Kafka wire protocol
// uses for SASL byte exchange.
func saslPlain(ctx context.Context, t *tcpTransport, cfg *SASLConfig) error {
	msg := []byte("\x00" + cfg.Username + "\x00" + cfg.Password)
	return sendRawFrame(ctx, t, msg)
}

// saslSCRAM drives the SCRAM-SHA-256/512 client conversation via
// github.com/xdg-go/scram, exchanging raw frames with the broker.
func saslSCRAM(ctx context.Context, t *tcpTransport, cfg *SASLConfig, hash scram.HashGeneratorFcn) error {
	client, err := hash.NewClient(cfg.Username, cfg.Password, "")
	if err != nil {
		return newError(Unauthenticated, err, "scram client init")
	}
	conv := client.NewConversation()

	clientFirst, err := conv.Step("")
	if err != nil {
		return newError(Unauthenticated, err, "scram client-first")
	}
	if err := sendRawFrame(ctx, t, []byte(clientFirst)); err != nil {
		return err
	}

	serverFirst, err := recvRawFrame(ctx, t)
	if err != nil {
		return err
	}
	clientFinal, err := conv.Step(string(serverFirst))
	if err != nil {
		return newError(Unauthenticated, err, "scram client-final")
	}
	if err := sendRawFrame(ctx, t, []byte(clientFinal)); err != nil {
		return err
	}

	serverFinal, err := recvRawFrame(ctx, t)
	if err != nil {
		return err
	}
	if _, err := conv.Step(string(serverFinal)); err != nil {
		return newError(Unauthenticated, err, "scram server-final verification")
	}
	if !conv.Done() {
		return newError(Unauthenticated, nil, "scram conversation did not complete")
	}
	return nil
}

func sendRawFrame(ctx context.Context, t *tcpTransport, payload []byte) error {
	var buf bytes.Buffer
	writeInt32(&buf, int32(len(payload)))
	buf.Write(payload)
	if err := t.Send(ctx, buf.Bytes()); err != nil {
		return newError(Unauthenticated, err, "send sasl frame")
	}
	return nil
}

func recvRawFrame(ctx context.Context, t *tcpTransport) ([]byte, error) {
	sizeBuf, err := t.Receive(ctx, 4)
	if err != nil {
		return nil, newError(Unauthenticated, err, "recv sasl frame size")
	}
	size := int32(binary.BigEndian.Uint32(sizeBuf))
	if size < 0 {
		return nil, newError(Unauthenticated, nil, "negative sasl frame size")
	}
	payload, err := t.Receive(ctx, int(size))
	if err != nil {
		return nil, newError(Unauthenticated, err, "recv sasl frame")
	}
	return payload, nil
}
