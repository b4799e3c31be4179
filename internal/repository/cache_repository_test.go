package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/retzius/attendance-api/pkg/errors"
)

func TestAttendanceHistoryKey(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "attendance:sub-1:2026-03-01:2026-03-31", AttendanceHistoryKey("sub-1", &from, &to))
	assert.Equal(t, "attendance:sub-1:2026-03-01:", AttendanceHistoryKey("sub-1", &from, nil))
	assert.Equal(t, "attendance:sub-1::", AttendanceHistoryKey("sub-1", nil, nil))
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest []string
	err := repo.Get(ctx, "attendance:sub-1::", &dest)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "attendance:sub-1::", []string{"x"}, time.Minute))
	require.NoError(t, repo.InvalidateAttendance(ctx, "sub-1"))
	require.NoError(t, repo.Close())
}
