package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInconsistencyError(t *testing.T) {
	assert.NoError(t, inconsistencyError(nil))
	assert.NoError(t, inconsistencyError([]*Inconsistency{}))

	rows := []*Inconsistency{
		{UserID: "u1", Plan: "premium", TransactionID: "tx_1"},
		{UserID: "u2", Plan: "basic", TransactionID: "tx_2"},
	}
	err := inconsistencyError(rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLedgerInconsistency)
	assert.Contains(t, err.Error(), "2 active subscriptions")
	assert.Equal(t, []string{"u1", "u2"}, affectedUsers(rows))
}
