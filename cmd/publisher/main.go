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

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	kafkacore "github.com/lytics/kafkacore"
)

/*
 This publisher tool has 4 send modes:
 1.  Pass message:
         ./publisher -message="good stuff bob" -hostname=192.168.1.15:9092

 2.  Pass Msg, SendCT:  send the same message sendct # of times
        ./publisher -sendct=100 -message="good stuff bob"

 3.  MessageFile:  pass a message file and it will read
          ./publisher -messagefile=/tmp/msgs.log

 4.  Stdin:  if message, message file empty it accepts
              messages from console (message ends at newline)
              ./publisher -topic=atopic -partition=0
               >my message here<enter>
             with -multi it alternates each line between partition
             and partition+1.
*/
var hostname string
var topic string
var partition int
var sendCt int
var message string
var messageFile string
var compress bool
var multi bool

func init() {
	flag.StringVar(&hostname, "hostname", "localhost:9092", "host:port string for the broker")
	flag.StringVar(&topic, "topic", "test", "topic to publish to")
	flag.IntVar(&partition, "partition", 0, "partition to publish to")
	flag.StringVar(&message, "message", "", "message to publish")
	flag.IntVar(&sendCt, "sendct", 0, "to do a pseudo load test, set sendct & pass a message")
	flag.StringVar(&messageFile, "messagefile", "", "read message from this file")
	flag.BoolVar(&compress, "compress", false, "compress the messages published (snappy)")
	flag.BoolVar(&multi, "multi", false, "alternate stdin lines between partition and partition+1")
}

// newConnection builds a Connection seeded with hostname, splitting it
// into host and port the way Config.Host/Config.Port expect.
func newConnection(logger *zap.Logger) (*kafkacore.Connection, error) {
	host, portStr, err := net.SplitHostPort(hostname)
	if err != nil {
		return nil, fmt.Errorf("parse hostname %q: %w", hostname, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse port in %q: %w", hostname, err)
	}

	cfg := kafkacore.DefaultConfig()
	cfg.Host = host
	cfg.Port = int32(port)
	cfg.ClientId = "publisher"
	cfg.Logger = logger
	return kafkacore.NewConnection(cfg), nil
}

func makeRecord(payload []byte) *kafkacore.Record {
	if compress {
		rec, err := kafkacore.NewCompressedRecord(kafkacore.CompressionSnappy, []*kafkacore.Record{kafkacore.NewRecord(nil, payload)})
		if err != nil {
			// fall back to uncompressed rather than drop the message
			return kafkacore.NewRecord(nil, payload)
		}
		return rec
	}
	return kafkacore.NewRecord(nil, payload)
}

func publishOne(conn *kafkacore.Connection, logger *zap.Logger, part int32, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ack, err := conn.Produce(ctx, topic, part, []*kafkacore.Record{makeRecord(payload)}, kafkacore.AcksLeader)
	if err != nil {
		logger.Error("publish failed", zap.String("topic", topic), zap.Int32("partition", part), zap.Error(err))
		return
	}
	logger.Info("published", zap.String("topic", topic), zap.Int32("partition", part), zap.Int64("offset", ack.BaseOffset))
}

// sendFile publishes the whole contents of msgFile as a single record.
func sendFile(conn *kafkacore.Connection, logger *zap.Logger, msgFile string) {
	fmt.Println("Publishing file:", msgFile)
	payload, err := os.ReadFile(msgFile)
	if err != nil {
		logger.Error("read message file", zap.Error(err))
		return
	}
	start := time.Now()
	publishOne(conn, logger, int32(partition), payload)
	logger.Info("sending complete", zap.Duration("elapsed", time.Since(start)))
}

// sendMessage publishes -message once and returns.
func sendMessage(conn *kafkacore.Connection, logger *zap.Logger) {
	fmt.Println("Publishing:", message)
	publishOne(conn, logger, int32(partition), []byte(message))
}

// sendManyMessages publishes -message sendct times in a row. The
// Connection is single-threaded cooperative (spec.md §5), so this is a
// plain loop rather than the teacher's channel-fed background
// goroutine.
func sendManyMessages(conn *kafkacore.Connection, logger *zap.Logger) {
	fmt.Println("Publishing:", message, ": will send", sendCt, "times")
	start := time.Now()
	for i := 0; i < sendCt; i++ {
		publishOne(conn, logger, int32(partition), []byte(message))
	}
	logger.Info("sending complete", zap.Duration("elapsed", time.Since(start)), zap.Int("count", sendCt))
}

// stdinProducer publishes each line read from stdin as it arrives. With
// -multi, lines alternate between partition and partition+1 so a quick
// manual test touches more than one partition.
func stdinProducer(conn *kafkacore.Connection, logger *zap.Logger) {
	b := bufio.NewReader(os.Stdin)
	fmt.Println("reading from stdin")
	next := int32(partition)
	for {
		line, err := b.ReadString('\n')
		if err != nil {
			return
		}
		payload := []byte(line)[:len(line)-1]
		fmt.Println("sending ---", line, payload)
		publishOne(conn, logger, next, payload)
		if multi {
			if next == int32(partition) {
				next = int32(partition) + 1
			} else {
				next = int32(partition)
			}
		}
	}
}

func main() {
	flag.Parse()
	fmt.Printf("Broker: %s, topic: %s, partition: %d\n", hostname, topic, partition)
	fmt.Println(" ---------------------- ")

	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	conn, err := newConnection(logger)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}

	switch {
	case len(message) == 0 && len(messageFile) != 0:
		sendFile(conn, logger, messageFile)
	case len(message) > 0 && sendCt == 0:
		sendMessage(conn, logger)
	case len(message) > 0 && sendCt > 0:
		sendManyMessages(conn, logger)
	default:
		stdinProducer(conn, logger)
	}
}
