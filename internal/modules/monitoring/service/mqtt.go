package service

import (
	"context"

	"serverwatch/internal/modules/monitoring/types"
)

// MessageSubscriber is the part of the MQTT subscriber the service needs.
type MessageSubscriber interface {
	SetMessageHandler(handler func(ctx context.Context, c types.Candidate) error)
}

// RegisterMQTT routes submissions received over MQTT through Submit.
func (s *Service) RegisterMQTT(subscriber MessageSubscriber) {
	subscriber.SetMessageHandler(func(ctx context.Context, c types.Candidate) error {
		_, err := s.Submit(ctx, SourceMQTT, c)
		return err
	})
}
