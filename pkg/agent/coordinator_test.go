package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

func TestCoordinatorClient_PullSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/devices/relay-1/config", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshotAt(1234, 41))
	}))
	defer srv.Close()

	snap, err := NewCoordinatorClient(srv.URL, "relay-1", time.Second).PullSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), snap.LastUpdated)
	assert.True(t, snap.Schedule[41])
	assert.NoError(t, ValidateSnapshot(snap))
}

func TestCoordinatorClient_ErrorClasses(t *testing.T) {
	status := http.StatusServiceUnavailable
	body := `{"error":"busy"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := NewCoordinatorClient(srv.URL, "relay-1", time.Second)

	_, err := c.PullSnapshot(context.Background())
	require.Error(t, err)
	assert.False(t, common.IsPermanent(err))

	status = http.StatusNotFound
	_, err = c.PullSnapshot(context.Background())
	require.Error(t, err)
	assert.True(t, common.IsPermanent(err))

	status = http.StatusOK
	body = `{"schedule": "not a list"}`
	_, err = c.PullSnapshot(context.Background())
	require.Error(t, err)
	assert.True(t, common.IsPermanent(err))
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestCoordinatorClient_SendHeartbeat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/devices/relay-1/heartbeat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewCoordinatorClient(srv.URL+"/", "relay-1", time.Second).SendHeartbeat(context.Background(), &models.Heartbeat{
		Uptime:   120,
		SwitchOn: true,
		LastSync: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, 120.0, got["uptime"])
	assert.Equal(t, true, got["switchOn"])
	assert.Equal(t, 60.0, got["lastSync"])
}
