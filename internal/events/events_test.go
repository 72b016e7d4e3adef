package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNoBrokersGivesNoop(t *testing.T) {
	p := NewKafkaPublisher(nil, "designhouse.events")
	if _, ok := p.(Noop); !ok {
		t.Fatalf("expected Noop publisher, got %T", p)
	}
	if err := p.Publish(context.Background(), Event{Type: TypeOrderFinalized, ID: uuid.New(), At: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBrokersGiveKafkaPublisher(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "designhouse.events")
	kp, ok := p.(*KafkaPublisher)
	if !ok {
		t.Fatalf("expected *KafkaPublisher, got %T", p)
	}
	if kp.writer.Topic != "designhouse.events" {
		t.Fatalf("topic = %s", kp.writer.Topic)
	}
	_ = p.Close()
}
