package twin

import (
	"context"
	"log"
)

const StatusMockSent = "mock-sent"

// MockOutbound acknowledges direct messages without delivering them.
type MockOutbound struct{}

func NewMockOutbound() *MockOutbound {
	return &MockOutbound{}
}

func (MockOutbound) SendDM(_ context.Context, to string, text string) (string, error) {
	log.Printf("[send-dm] stub: to=%q message=%q", to, text)
	return StatusMockSent, nil
}
