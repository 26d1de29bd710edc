package gmail

import (
	"context"

	"google.golang.org/api/gmail/v1"
)

// metadataHeaders are the only headers the scanner needs; fetching with
// format=metadata keeps responses small and avoids body download.
var metadataHeaders = []string{
	"From",
	"Subject",
	"Date",
	"List-Unsubscribe",
	"List-Unsubscribe-Post",
}

// batchDeleteSize is the Gmail API limit for messages.batchDelete.
const batchDeleteSize = 1000

// Client wraps the Gmail API service.
type Client struct {
	srv              *gmail.Service
	includeSpamTrash bool
}

// NewClient creates a new Gmail client.
func NewClient(srv *gmail.Service) *Client {
	return &Client{srv: srv}
}

// IncludeSpamTrash widens listings to spam and trash. Off by default.
func (c *Client) IncludeSpamTrash(include bool) {
	c.includeSpamTrash = include
}

// ListMessageIDs fetches one page of inbox message IDs.
func (c *Client) ListMessageIDs(
	ctx context.Context,
	pageToken string,
	pageSize int64,
) ([]MessageID, string, error) {
	req := c.srv.Users.Messages.List("me").
		LabelIds("INBOX").
		IncludeSpamTrash(c.includeSpamTrash).
		MaxResults(pageSize)

	if pageToken != "" {
		req = req.PageToken(pageToken)
	}

	res, err := req.Context(ctx).Do()
	if err != nil {
		return nil, "", err
	}

	ids := make([]MessageID, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, MessageID(m.Id))
	}

	return ids, res.NextPageToken, nil
}

// GetMessageMetadata fetches the scanner-relevant headers for one message.
func (c *Client) GetMessageMetadata(ctx context.Context, id MessageID) (RawHeaders, error) {
	msg, err := c.srv.Users.Messages.Get("me", string(id)).
		Format("metadata").
		MetadataHeaders(metadataHeaders...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	headers := make(RawHeaders)
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers.Add(h.Name, h.Value)
		}
	}
	return headers, nil
}

// CreateBlockFilter creates a filter that routes future mail from sender
// straight to the trash. Returns the filter ID.
func (c *Client) CreateBlockFilter(ctx context.Context, sender string) (string, error) {
	filter := &gmail.Filter{
		Criteria: &gmail.FilterCriteria{
			From: sender,
		},
		Action: &gmail.FilterAction{
			AddLabelIds:    []string{"TRASH"},
			RemoveLabelIds: []string{"INBOX"},
		},
	}

	res, err := c.srv.Users.Settings.Filters.Create("me", filter).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return res.Id, nil
}

// BatchDelete permanently deletes messages, chunked to the API limit.
// Returns the number of messages deleted before any error.
func (c *Client) BatchDelete(ctx context.Context, ids []MessageID) (int, error) {
	deleted := 0
	for start := 0; start < len(ids); start += batchDeleteSize {
		end := min(start+batchDeleteSize, len(ids))

		chunk := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			chunk = append(chunk, string(id))
		}

		req := &gmail.BatchDeleteMessagesRequest{Ids: chunk}
		if err := c.srv.Users.Messages.BatchDelete("me", req).Context(ctx).Do(); err != nil {
			return deleted, err
		}
		deleted += len(chunk)
	}
	return deleted, nil
}
