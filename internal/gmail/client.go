// Package gmail reads mailbox messages through the Gmail API for email log sync.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bettersystems/crm-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// pageSize is the largest page the list endpoint accepts
const pageSize int64 = 500

// Client lists and fetches messages of the authorized mailbox ("me")
type Client struct {
	svc *gm.Service
}

// NewClient builds an authorized Gmail client from the OAuth client credentials
// and a token file holding a refresh token. The oauth2 transport refreshes the
// access token as needed.
func NewClient(ctx context.Context, cfg *config.GmailConfig) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("gmail client id, secret and token file are required")
	}

	token, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gm.GmailReadonlyScope},
	}

	svc, err := gm.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gmail token file: %w", err)
	}
	defer f.Close()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode gmail token: %w", err)
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, fmt.Errorf("gmail token file has no credentials")
	}
	return &token, nil
}

// ListMessageIDs pages through messages matching query until max ids are collected
func (c *Client) ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error) {
	var ids []string
	pageToken := ""
	for int64(len(ids)) < max {
		call := c.svc.Users.Messages.List("me").Context(ctx).MaxResults(min(pageSize, max-int64(len(ids))))
		if query != "" {
			call = call.Q(query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Messages) == 0 {
			break
		}
	}
	return ids, nil
}

// GetMessage fetches a full message and parses headers and bodies
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).Context(ctx).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	return ParseMessage(msg), nil
}
