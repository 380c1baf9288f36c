// Package airtable creates lead records in an Airtable table through the REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/config"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Fields is the column → value map of one Airtable record
type Fields map[string]interface{}

// Record is a created Airtable row
type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime"`
	Fields      Fields `json:"fields"`
}

// Client talks to a single base/table
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	baseID     string
	table      string
	logger     *zap.Logger
}

// NewClient returns nil when Airtable is not configured
func NewClient(cfg *config.AirtableConfig, logger *zap.Logger) *Client {
	if !cfg.Configured() {
		return nil
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		baseID:     cfg.BaseID,
		table:      cfg.Table,
		logger:     logger,
	}
}

// CreateRecord inserts one row. Airtable coerces string values into select options via typecast.
func (c *Client) CreateRecord(ctx context.Context, fields Fields) (*Record, error) {
	body, err := json.Marshal(map[string]interface{}{
		"fields":   fields,
		"typecast": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode airtable record: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.baseID), url.PathEscape(c.table))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build airtable request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airtable request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("airtable returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode airtable response: %w", err)
	}

	c.logger.Debug("airtable record created", zap.String("record_id", record.ID), zap.String("table", c.table))
	return &record, nil
}
