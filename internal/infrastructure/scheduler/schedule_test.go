package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(5*time.Minute), Every(5*time.Minute).Next(base))
	assert.Equal(t, time.Minute, Every(0).Interval)
	assert.Equal(t, "@every 5m0s", Every(5*time.Minute).String())
}

func TestDaily(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*3600)
	s, err := Daily(3, 30, riyadh)
	require.NoError(t, err)

	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // 03:00 local
	assert.Equal(t, time.Date(2024, 1, 1, 3, 30, 0, 0, riyadh), s.Next(before))

	at := time.Date(2024, 1, 1, 3, 30, 0, 0, riyadh)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 30, 0, 0, riyadh), s.Next(at), "next is strictly after t")

	_, err = Daily(24, 0, nil)
	assert.Error(t, err)
	_, err = Daily(1, 60, nil)
	assert.Error(t, err)
}
