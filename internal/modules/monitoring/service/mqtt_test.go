package service

import (
	"context"
	"testing"

	"serverwatch/internal/modules/monitoring/types"
)

type mockSubscriber struct {
	handler func(ctx context.Context, c types.Candidate) error
}

func (m *mockSubscriber) SetMessageHandler(handler func(ctx context.Context, c types.Candidate) error) {
	m.handler = handler
}

func TestRegisterMQTT(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	sub := &mockSubscriber{}
	svc.RegisterMQTT(sub)

	if sub.handler == nil {
		t.Fatal("RegisterMQTT did not set a handler")
	}
	if err := sub.handler(context.Background(), validCandidate()); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if repo.appended != 1 {
		t.Fatalf("appended = %d; want 1", repo.appended)
	}

	bad := validCandidate()
	bad.Suhu = "panas"
	if err := sub.handler(context.Background(), bad); !types.IsValidation(err) {
		t.Fatalf("handler error = %v; want ValidationError", err)
	}
}
