package database

import (
	"errors"
	"testing"

	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastRetryReentersAfterConflict(t *testing.T) {
	// A duplicate-record conflict means the voter raced themselves; the
	// second attempt re-reads the committed record and must be taken.
	calls := 0
	counts, err := castWithConflictRetry(func() (models.VoteCounts, error) {
		calls++
		if calls == 1 {
			return models.VoteCounts{}, utils.NewAppError(utils.ErrDuplicate, "vote already recorded", nil)
		}
		return models.VoteCounts{Upvotes: 0, Downvotes: 1}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, models.VoteCounts{Upvotes: 0, Downvotes: 1}, counts)
}

func TestCastRetryPassesThroughOtherErrors(t *testing.T) {
	calls := 0
	storeErr := utils.NewStoreError("insert vote", errors.New("connection reset"))
	_, err := castWithConflictRetry(func() (models.VoteCounts, error) {
		calls++
		return models.VoteCounts{}, storeErr
	})

	assert.Equal(t, 1, calls)
	assert.True(t, utils.IsErrorCode(err, utils.ErrStoreUnavailable))
}

func TestCastRetryGivesUpAfterSecondConflict(t *testing.T) {
	calls := 0
	_, err := castWithConflictRetry(func() (models.VoteCounts, error) {
		calls++
		return models.VoteCounts{}, utils.NewAppError(utils.ErrDuplicate, "vote already recorded", nil)
	})

	assert.Equal(t, 2, calls)
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicate))
}
