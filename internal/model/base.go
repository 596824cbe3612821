package model

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Cursor marks a position in the newest-first notification feed. Rows are
// ordered by (created_at, id) descending so ties on created_at page stably.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Encode returns an opaque string representation of the cursor.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%s|%s", c.CreatedAt.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a cursor produced by Encode.
func ParseCursor(s string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed cursor id: %w", err)
	}
	return &Cursor{CreatedAt: ts, ID: id}, nil
}

// ListOptions configures feed pagination.
type ListOptions struct {
	Limit      int
	Cursor     *Cursor
	UnreadOnly bool
}

// NormalizedLimit clamps the requested page size to sane bounds.
func (o ListOptions) NormalizedLimit() int {
	if o.Limit <= 0 {
		return DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		return MaxPageSize
	}
	return o.Limit
}

// MarkResult reports the outcome of a conditional mark-read.
type MarkResult struct {
	Found   bool
	Updated bool
}
