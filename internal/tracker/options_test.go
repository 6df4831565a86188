package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopOptions(t *testing.T) {
	service, _ := newTestService(t)

	options, err := service.StopOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, options, 4)

	assert.Equal(t, int64(100032), options[0].ID)
	assert.Equal(t, "Douglas St at Fort St (Stop 100032)", options[0].Label)
}

func TestRouteOptions(t *testing.T) {
	service, _ := newTestService(t)

	options, err := service.RouteOptions(context.Background())
	require.NoError(t, err)
	require.Len(t, options, 3)

	assert.Equal(t, "6", options[0].ShortName)
	assert.Equal(t, "6 Downtown/Royal Oak", options[0].Label)
}
