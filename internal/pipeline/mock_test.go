package pipeline

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/menu-scout/internal/model"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, name, location string) model.ResolutionResult {
	args := m.Called(ctx, name, location)
	return args.Get(0).(model.ResolutionResult)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, url string) model.ExtractedFacts {
	args := m.Called(ctx, url)
	return args.Get(0).(model.ExtractedFacts)
}

// recorder collects emitted updates.
type recorder struct {
	mu      sync.Mutex
	updates []model.Update
}

func (r *recorder) emit(u model.Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.Status
	}
	return out
}

func (r *recorder) last() model.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}
