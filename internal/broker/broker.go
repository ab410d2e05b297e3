// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package broker is a thin MQTT client wrapping eclipse/paho.mqtt.golang:
// ack-batched publish and topic subscription for the agent's local
// message broker connection, which a sidecar bridges to the cloud.
package broker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ammp-edge/ae-agent/internal/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// PublishQoS mirrors the reference client: at-least-once delivery for
	// outbound data so a bridge restart never silently drops a payload.
	PublishQoS = 1
	// SubscribeQoS mirrors the reference client: exactly-once delivery for
	// inbound config/command messages, which must not be applied twice.
	SubscribeQoS = 2

	// ackQueueCapacity bounds how many publishes may be in flight
	// (awaiting their broker ack) at once; the caller blocks once the
	// queue is full, which is the scheduler's only publish backpressure.
	ackQueueCapacity = 10
)

// Message is one outbound or inbound broker message.
type Message struct {
	Topic   string
	Payload []byte
}

// Client wraps a single MQTT connection.
type Client struct {
	conn mqtt.Client
}

// Connect dials host:port and returns a ready Client, identified by
// clientID. It fails if the connection is not established within
// timeout.
func Connect(host string, port int, clientID string, timeout time.Duration) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Infof("broker: connected to %s:%d", host, port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("broker: connection lost: %v", err)
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("broker: connecting to %s:%d: timed out", host, port)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("broker: connecting to %s:%d: %w", host, port, err)
	}

	return &Client{conn: c}, nil
}

func (c *Client) Close() {
	c.conn.Disconnect(250)
}

// Publish sends every message with QoS AtLeastOnce, awaiting each
// message's ack before sending more than ackQueueCapacity concurrently.
// It returns the first publish error encountered, if any, after
// attempting every message.
func (c *Client) Publish(ctx context.Context, messages []Message, retain bool) error {
	tokens := make([]mqtt.Token, len(messages))

	var firstErr error
	await := func(i int) {
		tokens[i].Wait()
		if err := tokens[i].Error(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("broker: publishing to %q: %w", messages[i].Topic, err)
		}
	}

	for i, m := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i >= ackQueueCapacity {
			await(i - ackQueueCapacity)
		}
		tokens[i] = c.conn.Publish(m.Topic, PublishQoS, retain, m.Payload)
	}

	for i := max(0, len(messages)-ackQueueCapacity); i < len(messages); i++ {
		await(i)
	}
	return firstErr
}

// Subscribe subscribes to every topic with QoS ExactlyOnce, delivering
// received messages to sink. If maxMessages is positive, Subscribe
// unsubscribes and returns once that many messages have been received.
func (c *Client) Subscribe(ctx context.Context, topics []string, sink chan<- Message, maxMessages int) error {
	var received atomic.Int64
	var closeDone sync.Once
	done := make(chan struct{})

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case sink <- Message{Topic: msg.Topic(), Payload: msg.Payload()}:
		case <-ctx.Done():
			return
		}
		if maxMessages > 0 && received.Add(1) >= int64(maxMessages) {
			closeDone.Do(func() { close(done) })
		}
	}

	for _, topic := range topics {
		token := c.conn.Subscribe(topic, SubscribeQoS, handler)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("broker: subscribing to %q: %w", topic, err)
		}
	}

	if maxMessages > 0 {
		select {
		case <-done:
		case <-ctx.Done():
		}
		for _, topic := range topics {
			c.conn.Unsubscribe(topic)
		}
	}
	return nil
}
