package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTextCompleter is a mock implementation of the generative text service
type MockTextCompleter struct {
	mock.Mock
}

// Complete mocks the Complete method
func (m *MockTextCompleter) Complete(ctx context.Context, prompt, systemInstruction string) (string, error) {
	args := m.Called(ctx, prompt, systemInstruction)
	return args.String(0), args.Error(1)
}

// MockImageSynthesizer is a mock implementation of the generative image service
type MockImageSynthesizer struct {
	mock.Mock
}

// SynthesizeImage mocks the SynthesizeImage method
func (m *MockImageSynthesizer) SynthesizeImage(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
