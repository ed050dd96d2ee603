package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/adapters/llm/registry"
	"github.com/steveire/grantlee/internal/ports"
)

type fakeProvider struct {
	err  error
	wait time.Duration
}

func (p fakeProvider) Translate(context.Context, ports.Segment, ports.TranslateParams) (ports.TranslateResult, error) {
	return ports.TranslateResult{}, nil
}

func (p fakeProvider) ListModels(context.Context) ([]ports.ModelInfo, error) { return nil, nil }

func (p fakeProvider) Test(ctx context.Context) error {
	select {
	case <-time.After(p.wait):
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	r := registry.New(50 * time.Millisecond)
	r.Register("local", fakeProvider{})
	r.Register("broken", fakeProvider{err: errors.New("401 unauthorized")})
	r.Register("slow", fakeProvider{wait: time.Second})
	r.Register("unknown", nil)

	_, ok := r.Get("unknown")
	assert.False(t, ok)
	assert.Equal(t, []string{"broken", "local", "slow", "unknown"}, r.Names())

	got := r.HealthCheck(context.Background())
	require.Len(t, got, 4)
	assert.EqualError(t, got[0].Err, "401 unauthorized")
	assert.NoError(t, got[1].Err)
	assert.ErrorIs(t, got[2].Err, context.DeadlineExceeded)
	assert.Error(t, got[3].Err)
	for i, name := range r.Names() {
		assert.Equal(t, name, got[i].Name)
	}
}
