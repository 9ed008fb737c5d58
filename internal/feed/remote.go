package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/models"
)

// Cursor is the remote feed's opaque pagination cursor. The wire form is
// base64-encoded JSON of {created_at, id}; callers treat it as a token.
type Cursor struct {
	CreatedAt int64  `json:"created_at"`
	ID        string `json:"id"`
}

// Encode serializes the cursor to its opaque wire form.
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	data, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque cursor token. An empty token is a nil cursor
// (first page).
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "malformed feed cursor", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "malformed feed cursor", err)
	}
	return &c, nil
}

// RemotePage is one page of the remote paginated feed query.
type RemotePage struct {
	Memories   []models.RemoteMemory
	NextCursor *Cursor
	HasMore    bool
}

// RemoteFeed is the external paginated feed query. The type filter parameter
// is binary: one concrete type, or empty for all types. "Two of three" is
// not expressible remotely and gets post-filtered client-side.
type RemoteFeed interface {
	FetchPage(ctx context.Context, cursor *Cursor, typeFilter models.MemoryType, limit int) (*RemotePage, error)
}
