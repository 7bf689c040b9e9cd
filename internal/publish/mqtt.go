// Package publish mirrors gps snapshots to an MQTT broker as retained JSON
// messages so dashboards pick up the latest state on subscribe.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ChriR/GPS-Speedo-Logger/internal/gps"
)

type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

const publishTimeout = 2 * time.Second

// Publisher writes <prefix>/fix, <prefix>/trip, <prefix>/satellites and
// <prefix>/status. Unchanged payloads are not resent.
type Publisher struct {
	prefix string
	c      client
	last   map[string][]byte
}

// Connect dials the broker. The broker keeps <prefix>/online at "false"
// while the publisher is gone.
func Connect(cfg Config) (*Publisher, error) {
	prefix := strings.Trim(cfg.TopicPrefix, "/")
	online := prefix + "/online"
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetWill(online, "false", 1, true).
		SetOnConnectHandler(func(c mqtt.Client) {
			c.Publish(online, 1, true, "true")
			log.Printf("mqtt: connected broker=%s", cfg.Broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return newPublisher(prefix, c), nil
}

func newPublisher(prefix string, c client) *Publisher {
	return &Publisher{prefix: prefix, c: c, last: make(map[string][]byte)}
}

// Run publishes every snapshot received until ctx is done.
func (p *Publisher) Run(ctx context.Context, snaps <-chan gps.Snapshot) {
	defer p.c.Disconnect(250)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-snaps:
			if err := p.Publish(s); err != nil {
				log.Printf("mqtt: %v", err)
			}
		}
	}
}

// Publish sends the parts of s that changed since the last call.
func (p *Publisher) Publish(s gps.Snapshot) error {
	parts := []struct {
		topic string
		v     any
	}{
		{"fix", s.Fix},
		{"trip", s.Trip},
		{"satellites", s.Satellites},
		{"status", s.Status},
	}
	for _, part := range parts {
		payload, err := json.Marshal(part.v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", part.topic, err)
		}
		topic := p.prefix + "/" + part.topic
		if bytes.Equal(p.last[topic], payload) {
			continue
		}
		token := p.c.Publish(topic, 0, true, payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("publish %s: timeout", topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		p.last[topic] = payload
	}
	return nil
}
