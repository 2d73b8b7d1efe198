// Package mq wires the Kafka producer used as the durable transport
// leg of the Event Bus Adapter's outbox drain.
package mq

import (
	"log"

	"github.com/EmilynnJ/ccodeseer/internal/config"

	"github.com/IBM/sarama"
)

// Producer wraps a sarama.SyncProducer so it can be passed around and
// closed explicitly instead of living behind a package-level global.
type Producer struct {
	sync sarama.SyncProducer
}

// Open creates a synchronous Kafka producer, waiting for all replica
// acks before a send is considered successful.
func Open(cfg *config.KafkaConfig) *Producer {
	kafkaCfg := sarama.NewConfig()
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForAll
	kafkaCfg.Producer.Retry.Max = 3
	kafkaCfg.Producer.Return.Successes = true

	sync, err := sarama.NewSyncProducer(cfg.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("[mq] failed to create kafka producer: %v", err)
	}

	log.Println("[mq] kafka producer ready")
	return &Producer{sync: sync}
}

// Send publishes value under key on topic.
func (p *Producer) Send(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}
	_, _, err := p.sync.SendMessage(msg)
	return err
}

// Close releases the underlying producer.
func (p *Producer) Close() error {
	if p == nil || p.sync == nil {
		return nil
	}
	return p.sync.Close()
}
