package dto

import (
	"encoding/json"
	"time"

	"mystore/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryQuery is the query string of GET /sales/:id/history.
type HistoryQuery struct {
	Limit int `form:"limit"`
}

// EffectiveLimit clamps the requested limit.
func (q HistoryQuery) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return defaultHistoryLimit
	case q.Limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return q.Limit
	}
}

// HistoryEntryResponse is one audit log entry.
type HistoryEntryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	UserID    string          `json:"user_id,omitempty"`
	UserEmail string          `json:"user_email,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// FromAuditRecord maps a stored entry.
func FromAuditRecord(r domain.AuditRecord) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:        r.ID.String(),
		Action:    string(r.Action),
		UserID:    r.UserID,
		UserEmail: r.UserEmail,
		RequestID: r.RequestID,
		Changes:   r.Changes,
		CreatedAt: r.CreatedAt,
	}
}
