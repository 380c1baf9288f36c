package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToJSONFieldName(t *testing.T) {
	tests := map[string]string{
		"Name":      "name",
		"ID":        "id",
		"ClientID":  "clientId",
		"TicketIDs": "ticketIds",
		"":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, toJSONFieldName(in), in)
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, 20},
		{"?page=3&pageSize=50", 3, 50},
		{"?page=0&pageSize=0", 1, 20},
		{"?page=-2&pageSize=5000", 1, 200},
		{"?page=abc", 1, 20},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page, pageSize := parsePagination(httptest.NewRequest(http.MethodGet, "/clients"+tt.query, nil))
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPageSize, pageSize)
		})
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantDetail string
	}{
		{
			name:       "not found",
			err:        fmt.Errorf("failed to get deal: %w", service.ErrDealNotFound),
			wantStatus: http.StatusNotFound,
			wantType:   domain.ErrorTypeNotFound,
			wantDetail: "Deal not found",
		},
		{
			name:       "invalid input keeps its detail",
			err:        fmt.Errorf("failed to create ticket: %w", fmt.Errorf("%w: deal 9 does not exist", service.ErrInvalidInput)),
			wantStatus: http.StatusBadRequest,
			wantType:   domain.ErrorTypeBadRequest,
			wantDetail: "invalid input: deal 9 does not exist",
		},
		{
			name:       "file too large",
			err:        service.ErrFileTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   domain.ErrorTypeBadRequest,
			wantDetail: "File too large",
		},
		{
			name:       "conflict",
			err:        fmt.Errorf("%w: username admin is taken", service.ErrConflict),
			wantStatus: http.StatusConflict,
			wantType:   domain.ErrorTypeConflict,
		},
		{
			name:       "missing integration",
			err:        service.ErrIntegrationNotConfigured,
			wantStatus: http.StatusInternalServerError,
			wantType:   domain.ErrorTypeInternal,
			wantDetail: service.ErrIntegrationNotConfigured.Error(),
		},
		{
			name:       "unexpected error is hidden",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantType:   domain.ErrorTypeInternal,
			wantDetail: "Failed to load things",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handleServiceError(rr, zap.NewNop(), tt.err, "load things")

			require.Equal(t, tt.wantStatus, rr.Code)
			var apiErr domain.APIError
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, apiErr.Detail)
			}
		})
	}
}
