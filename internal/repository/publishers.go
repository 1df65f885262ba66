package repository

import (
	"context"
	"errors"
	"fmt"

	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
)

type eventProducer interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
	Close() error
}

// KafkaRotationPublisher publishes each rotation as one message keyed by benchmark.
type KafkaRotationPublisher struct {
	producer eventProducer
}

func NewKafkaRotationPublisher(producer eventProducer) *KafkaRotationPublisher {
	return &KafkaRotationPublisher{producer: producer}
}

func (p *KafkaRotationPublisher) PublishRotation(ctx context.Context, rot *models.RotationEvent) error {
	return p.producer.Publish(ctx, []byte(rot.BenchmarkID), rot)
}

func (p *KafkaRotationPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// MultiPublisher fans a rotation out to every sink. A failing sink does not
// stop the others; all failures are returned joined.
type MultiPublisher struct {
	sinks []domrepo.RotationPublisher
}

func NewMultiPublisher(sinks ...domrepo.RotationPublisher) *MultiPublisher {
	out := make([]domrepo.RotationPublisher, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiPublisher{sinks: out}
}

func (m *MultiPublisher) Len() int { return len(m.sinks) }

func (m *MultiPublisher) PublishRotation(ctx context.Context, rot *models.RotationEvent) error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.PublishRotation(ctx, rot); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domrepo.RotationPublisher = (*KafkaRotationPublisher)(nil)
	_ domrepo.RotationPublisher = (*MultiPublisher)(nil)
)
