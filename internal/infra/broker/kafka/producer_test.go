package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestProducerPublishSendsHeadersAndKey(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	var got *sarama.ProducerMessage
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		got = msg
		return nil
	})
	p := newProducer(mock)
	defer p.Close()

	err := p.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{}`), map[string]string{"content-type": "application/cloudevents+json"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.Topic != "booking.events.v1" {
		t.Fatalf("topic = %q", got.Topic)
	}
	key, _ := got.Key.Encode()
	if string(key) != "b-1" {
		t.Fatalf("key = %q", key)
	}
	if len(got.Headers) != 1 || string(got.Headers[0].Key) != "content-type" {
		t.Fatalf("headers = %+v", got.Headers)
	}
}

func TestProducerPublishHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := newProducer(mock)
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, "t", "k", nil, nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(Config{}); err != ErrNoBrokers {
		t.Fatalf("err = %v", err)
	}
}
