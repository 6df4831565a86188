package restapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bctvictracker.ca/internal/models"
)

func TestStopOptionsHandler(t *testing.T) {
	_, handler, _ := newTestAPI(t)

	recorder := serveRequest(t, handler, "/api/stops")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "public, max-age=300", recorder.Header().Get("Cache-Control"))

	env := decodeEnvelope(t, recorder)
	var stops []models.StopOption
	require.NoError(t, json.Unmarshal(env.Data, &stops))

	require.Len(t, stops, 3)
	assert.Equal(t, int64(100032), stops[0].ID)
	assert.Equal(t, "Douglas St at Fort St (Stop 100032)", stops[0].Label)
}

func TestRouteOptionsHandler(t *testing.T) {
	_, handler, _ := newTestAPI(t)

	recorder := serveRequest(t, handler, "/api/routes")
	require.Equal(t, http.StatusOK, recorder.Code)

	env := decodeEnvelope(t, recorder)
	var routes []models.RouteOption
	require.NoError(t, json.Unmarshal(env.Data, &routes))

	require.Len(t, routes, 2)
	assert.Equal(t, "6", routes[0].ShortName)
	assert.Equal(t, "6 Downtown/Royal Oak", routes[0].Label)
}
