package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduler_ScheduleCron_ValidExpression(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	defer func() { _ = s.Stop(context.Background()) }()

	jobID, err := s.ScheduleCron("0 6 1 * *", func() {})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)
}

func TestScheduler_ScheduleCron_InvalidExpression(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	defer func() { _ = s.Stop(context.Background()) }()

	_, err = s.ScheduleCron("not a cron", func() {})
	require.Error(t, err)
}
