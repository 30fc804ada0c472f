package handlers

import (
	"github.com/gin-gonic/gin"

	"mystore/internal/domain"
	"mystore/internal/infrastructure/http/v1/dto"
)

// HistoryHandler serves the audit trail of one entity type.
type HistoryHandler struct {
	*BaseHandler
	reader     domain.AuditReader
	entityType string
}

// NewHistoryHandler creates a handler reading entries of entityType.
func NewHistoryHandler(base *BaseHandler, reader domain.AuditReader, entityType string) *HistoryHandler {
	return &HistoryHandler{BaseHandler: base, reader: reader, entityType: entityType}
}

// History handles GET /<resource>/:id/history. Deleted entities keep
// their history.
func (h *HistoryHandler) History(c *gin.Context) {
	entityID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var q dto.HistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}

	records, err := h.reader.GetEntityHistory(c.Request.Context(), h.entityType, entityID, q.EffectiveLimit())
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]dto.HistoryEntryResponse, len(records))
	for i, r := range records {
		out[i] = dto.FromAuditRecord(r)
	}
	h.OK(c, out)
}
