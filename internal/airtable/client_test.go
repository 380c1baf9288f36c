package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bettersystems/crm-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClient_NilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewClient(&config.AirtableConfig{}, zap.NewNop()))
}

func TestCreateRecord(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"rec123","createdTime":"2024-01-01T00:00:00.000Z","fields":{"Name":"Jane"}}`))
	}))
	defer srv.Close()

	c := NewClient(&config.AirtableConfig{APIKey: "pat", BaseID: "app1", Table: "Leads", BaseURL: srv.URL}, zap.NewNop())
	require.NotNil(t, c)

	rec, err := c.CreateRecord(context.Background(), Fields{"Name": "Jane", "Email": "jane@x.com"})
	require.NoError(t, err)

	assert.Equal(t, "rec123", rec.ID)
	assert.Equal(t, "/app1/Leads", gotPath)
	assert.Equal(t, "Bearer pat", gotAuth)
	assert.Equal(t, true, gotBody["typecast"])
	fields := gotBody["fields"].(map[string]interface{})
	assert.Equal(t, "jane@x.com", fields["Email"])
}

func TestCreateRecord_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"INVALID_PERMISSIONS"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(&config.AirtableConfig{APIKey: "pat", BaseID: "app1", Table: "Leads", BaseURL: srv.URL}, zap.NewNop())
	_, err := c.CreateRecord(context.Background(), Fields{"Name": "Jane"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
