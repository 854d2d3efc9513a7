// Package providertest 提供 provider.Completer 的 testify 替身。
package providertest

import (
	"context"

	"stratex/internal/gateway/provider"

	"github.com/stretchr/testify/mock"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) ID() string { return "mock" }

func (m *MockCompleter) Complete(ctx context.Context, payload provider.ChatPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

// Purpose 匹配指定用途的请求。
func Purpose(purpose string) any {
	return mock.MatchedBy(func(p provider.ChatPayload) bool { return p.Purpose == purpose })
}

var _ provider.Completer = (*MockCompleter)(nil)
