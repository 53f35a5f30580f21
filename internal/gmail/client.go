// Package gmail wraps the Gmail API for mailbox ingestion: listing
// recent messages, fetching full representations, and decoding the
// nested MIME structure into plain-text and HTML bodies.
package gmail

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Mailbox is the provider surface the ingestion pipeline consumes.
type Mailbox interface {
	// ListRecent returns the ids of the most recent messages, at most
	// max. An empty mailbox yields an empty slice, not an error.
	ListRecent(ctx context.Context, max int64) ([]string, error)

	// GetMessage fetches the full representation of one message.
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

// Client wraps the Gmail Users service for one authenticated mailbox.
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a Gmail client authenticated by the given token
// source.
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// ListRecent lists up to max of the most recent message ids in the
// mailbox.
func (c *Client) ListRecent(ctx context.Context, max int64) ([]string, error) {
	res, err := c.svc.Messages.List("me").MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// GetMessage retrieves a full Gmail message.
func (c *Client) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return msg, nil
}
