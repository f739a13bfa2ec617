package repository

import (
	"context"
	"testing"

	"github.com/Fi44er/payments_admin/internal/testutil"
	"github.com/Fi44er/payments_admin/utils"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollbackLogsFailure(t *testing.T) {
	logger := utils.NewNopLogger()
	hook := logtest.NewLocal(logger.Logger)
	repo := NewRepository(testutil.NewDB(t), logger)

	tx, err := repo.BeginTransaction(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.Commit(tx))

	repo.Rollback(tx)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Contains(t, last.Message, "Failed to roll back transaction")
}
