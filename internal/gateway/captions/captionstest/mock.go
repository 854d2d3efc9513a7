// Package captionstest 提供 captions.Fetcher 的 testify 替身。
package captionstest

import (
	"context"

	"stratex/internal/gateway/captions"

	"github.com/stretchr/testify/mock"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, videoID string) (captions.Transcript, error) {
	args := m.Called(ctx, videoID)
	return args.Get(0).(captions.Transcript), args.Error(1)
}

var _ captions.Fetcher = (*MockFetcher)(nil)
