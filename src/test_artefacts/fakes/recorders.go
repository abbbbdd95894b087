package fakes

import (
	"context"
	"sync"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/infra/kafka"
)

// AuditRecorder keeps every recorded event.
type AuditRecorder struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	Err    error
}

func (r *AuditRecorder) Record(ctx context.Context, event domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *AuditRecorder) Events() []domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEvent(nil), r.events...)
}

// Producer captures Kafka messages per topic.
type Producer struct {
	mu       sync.Mutex
	messages map[string][]kafka.Message
	Err      error
}

func (p *Producer) Producer(messages []kafka.Message, topic string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	if p.messages == nil {
		p.messages = make(map[string][]kafka.Message)
	}
	p.messages[topic] = append(p.messages[topic], messages...)
	return nil
}

func (p *Producer) Messages(topic string) []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.messages[topic]...)
}

// Invalidator records every invalidation request.
type Invalidator struct {
	mu    sync.Mutex
	calls [][]entities.Reference
	Err   error
}

func (i *Invalidator) InvalidateByReferences(ctx context.Context, refs []entities.Reference) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.calls = append(i.calls, append([]entities.Reference(nil), refs...))
	return i.Err
}

func (i *Invalidator) Calls() [][]entities.Reference {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([][]entities.Reference(nil), i.calls...)
}

// Authorizer denies the (actor, action) pairs and subjects listed in Deny.
type Authorizer struct {
	DenyActions  map[string]bool
	DenySubjects map[entities.Reference]bool
}

func (a Authorizer) Can(ctx context.Context, actorID string, action string, subject entities.Reference) bool {
	if a.DenyActions[action] {
		return false
	}
	return !a.DenySubjects[subject]
}
