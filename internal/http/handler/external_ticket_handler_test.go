package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func externalRequest(t *testing.T, body map[string]string, headers map[string]string) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/external-tickets", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func TestExternalTicketHandler_Receive(t *testing.T) {
	env := newHandlerEnv(t)
	client := testutil.CreateTestClient(t, env.db, "Acme", "ops@acme.test")
	testutil.CreateTestDeal(t, env.db, client.ID, "Retainer", testutil.Float64Ptr(120))

	ticket := map[string]string{
		"externalTicketId": "T-100",
		"submitterEmail":   "OPS@acme.test",
		"title":            "Login broken",
		"description":      "Users cannot sign in",
	}
	auth := map[string]string{"X-API-Key": "portal-key", "X-Application-Source": "portal"}

	t.Run("missing api key is unauthorized before validation", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.external.Receive(rr, externalRequest(t, map[string]string{}, map[string]string{"X-Application-Source": "portal"}))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong api key is unauthorized", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.external.Receive(rr, externalRequest(t, ticket, map[string]string{
			"X-API-Key": "nope", "X-Application-Source": "portal",
		}))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid API key", decodeAPIError(t, rr).Detail)
	})

	t.Run("unknown source is a bad request", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.external.Receive(rr, externalRequest(t, ticket, map[string]string{
			"X-API-Key": "portal-key", "X-Application-Source": "kiosk",
		}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("credentials in the body are accepted", func(t *testing.T) {
		body := map[string]string{
			"apiKey":            "portal-key",
			"applicationSource": "portal",
			"submitterEmail":    "someone@elsewhere.test",
			"title":             "Question",
			"description":       "How do I export?",
		}
		rr := httptest.NewRecorder()
		env.external.Receive(rr, externalRequest(t, body, nil))

		require.Equal(t, http.StatusCreated, rr.Code)
		var receipt domain.ExternalTicketReceiptDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &receipt))
		assert.False(t, receipt.ClientMatched)
	})

	t.Run("authenticated but invalid payload", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.external.Receive(rr, externalRequest(t, map[string]string{"title": "No description"}, auth))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		apiErr := decodeAPIError(t, rr)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "description")
		assert.Contains(t, apiErr.Errors, "submitterEmail")
	})

	t.Run("whitespace title is rejected", func(t *testing.T) {
		body := map[string]string{
			"submitterEmail": "ops@acme.test",
			"title":          "   ",
			"description":    "Users cannot sign in",
		}
		rr := httptest.NewRecorder()
		env.external.Receive(rr, externalRequest(t, body, auth))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Must not be blank", decodeAPIError(t, rr).Errors["title"])
	})

	var first domain.ExternalTicketReceiptDTO
	t.Run("creates and matches client and deal", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.external.Receive(rr, externalRequest(t, ticket, auth))

		require.Equal(t, http.StatusCreated, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))
		assert.True(t, first.ClientMatched)
		assert.True(t, first.DealMatched)
		assert.False(t, first.Duplicate)
		assert.Equal(t, domain.TicketStatusPending, first.Status)
	})

	t.Run("resubmission returns the existing ticket", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.external.Receive(rr, externalRequest(t, ticket, auth))

		require.Equal(t, http.StatusOK, rr.Code)
		var again domain.ExternalTicketReceiptDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &again))
		assert.Equal(t, first.ID, again.ID)
		assert.True(t, again.Duplicate)
	})
}

func TestExternalTicketHandler_Status(t *testing.T) {
	env := newHandlerEnv(t)
	rr := httptest.NewRecorder()
	env.external.Receive(rr, externalRequest(t, map[string]string{
		"externalTicketId": "T-7",
		"submitterEmail":   "user@partner.test",
		"title":            "Slow page",
		"description":      "Dashboard takes 10s",
		"priority":         "high",
		"page":             "/dashboard",
		"screenshotUrl":    "https://cdn.partner.test/slow.png",
	}, map[string]string{"X-API-Key": "portal-key", "X-Application-Source": "portal"}))
	require.Equal(t, http.StatusCreated, rr.Code)

	status := func(externalID string, headers map[string]string) *httptest.ResponseRecorder {
		req := newRequest(t, http.MethodGet, "/external-tickets/"+externalID+"/status", nil,
			map[string]string{"externalId": externalID})
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rr := httptest.NewRecorder()
		env.external.Status(rr, req)
		return rr
	}

	t.Run("found", func(t *testing.T) {
		rr := status("T-7", map[string]string{"X-API-Key": "portal-key", "X-Application-Source": "portal"})

		require.Equal(t, http.StatusOK, rr.Code)
		var dto domain.ExternalTicketStatusDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
		assert.Equal(t, "T-7", dto.ExternalTicketID)
		assert.Equal(t, domain.TicketStatusPending, dto.Status)
		assert.Equal(t, "Slow page", dto.Title)
		assert.Equal(t, domain.PriorityHigh, dto.Priority)
		assert.Nil(t, dto.Resolution)
		assert.NotEmpty(t, dto.CreatedAt)
	})

	t.Run("resolution is visible to the partner", func(t *testing.T) {
		resolution := "Added an index on the events table"
		require.NoError(t, env.db.Model(&domain.SupportTicket{}).
			Where("external_ticket_id = ?", "T-7").
			Updates(map[string]interface{}{"resolution": resolution, "status": domain.TicketStatusResolved}).Error)

		rr := status("T-7", map[string]string{"X-API-Key": "portal-key", "X-Application-Source": "portal"})
		require.Equal(t, http.StatusOK, rr.Code)
		var dto domain.ExternalTicketStatusDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
		require.NotNil(t, dto.Resolution)
		assert.Equal(t, resolution, *dto.Resolution)
		assert.Equal(t, domain.TicketStatusResolved, dto.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := status("T-8", map[string]string{"X-API-Key": "portal-key", "X-Application-Source": "portal"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("requires the api key", func(t *testing.T) {
		rr := status("T-7", map[string]string{"X-Application-Source": "portal"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestExternalTicketHandler_Health(t *testing.T) {
	env := newHandlerEnv(t)
	rr := httptest.NewRecorder()

	env.external.Health(rr, httptest.NewRequest(http.MethodGet, "/external-tickets/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var dto domain.ExternalSourcesDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
	assert.Equal(t, "ok", dto.Status)
	assert.Equal(t, []string{"portal"}, dto.Sources)
}
