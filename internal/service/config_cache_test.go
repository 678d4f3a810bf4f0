package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymux/gateway/internal/domain"
	"github.com/paymux/gateway/internal/scoring"
)

type weightsSourceFake struct {
	weights scoring.Weights
	found   bool
	err     error
	calls   int
}

func (s *weightsSourceFake) Weights(context.Context) (scoring.Weights, bool, error) {
	s.calls++
	return s.weights, s.found, s.err
}

func TestWeightsCacheServesWithinTTL(t *testing.T) {
	src := &weightsSourceFake{weights: scoring.Weights{SuccessRate: 1}, found: true}
	clock := testNow
	cache := NewWeightsCache(src, 30*time.Second, func() time.Time { return clock })

	w, err := cache.Weights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, w.SuccessRate)
	assert.Equal(t, 1, src.calls)

	clock = clock.Add(10 * time.Second)
	_, err = cache.Weights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "within TTL the source is not hit again")

	clock = clock.Add(30 * time.Second)
	_, err = cache.Weights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestWeightsCacheStaleOnError(t *testing.T) {
	src := &weightsSourceFake{weights: scoring.Weights{SuccessRate: 1}, found: true}
	clock := testNow
	cache := NewWeightsCache(src, time.Second, func() time.Time { return clock })

	_, err := cache.Weights(context.Background())
	require.NoError(t, err)

	src.err = assert.AnError
	clock = clock.Add(2 * time.Second)
	w, err := cache.Weights(context.Background())
	require.NoError(t, err, "warm cache absorbs refresh errors")
	assert.Equal(t, 1.0, w.SuccessRate)
}

func TestWeightsCacheColdError(t *testing.T) {
	src := &weightsSourceFake{err: assert.AnError}
	cache := NewWeightsCache(src, time.Second, func() time.Time { return testNow })

	_, err := cache.Weights(context.Background())
	assert.Error(t, err)
}

func TestWeightsCacheDefaultsWhenUnconfigured(t *testing.T) {
	src := &weightsSourceFake{found: false}
	cache := NewWeightsCache(src, time.Second, func() time.Time { return testNow })

	w, err := cache.Weights(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultWeights(), w)
}

func TestRoundRobinRotates(t *testing.T) {
	rr := &RoundRobin{}
	candidates := []domain.GatewayConfig{
		{GatewayID: "a"}, {GatewayID: "b"}, {GatewayID: "c"},
	}

	first := rr.Order(candidates)
	second := rr.Order(candidates)
	third := rr.Order(candidates)
	fourth := rr.Order(candidates)

	assert.Equal(t, "a", first[0].GatewayID)
	assert.Equal(t, "b", second[0].GatewayID)
	assert.Equal(t, "c", third[0].GatewayID)
	assert.Equal(t, "a", fourth[0].GatewayID)

	assert.Equal(t, []string{"b", "c", "a"}, ids(second))
	assert.Zero(t, first[0].Score)
}

func ids(ranked []domain.RankedGateway) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.GatewayID)
	}
	return out
}

func TestRoundRobinEmpty(t *testing.T) {
	rr := &RoundRobin{}
	assert.Nil(t, rr.Order(nil))
}
