package budget_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/goal-guardian/internal/budget"
)

func TestNew_WindowCoversWholeDays(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

	b, err := budget.New("a1", decimal.NewFromInt(500), now, 30)
	require.NoError(t, err)

	assert.Equal(t, "a1", b.AccountID)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), b.WindowStart)
	assert.True(t, b.Contains(time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC)))
	assert.False(t, b.Contains(time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)))
	assert.True(t, b.Contains(now))
}

func TestNew_Validation(t *testing.T) {
	now := time.Now()

	_, err := budget.New("a1", decimal.Zero, now, 30)
	assert.Error(t, err)

	_, err = budget.New("a1", decimal.NewFromInt(10), now, 0)
	assert.Error(t, err)
}
