// Package audit fills authorship fields from the authenticated caller.
package audit

import (
	"context"

	appctx "mystore/internal/core/context"
)

// EnrichCreatedBy sets createdBy and updatedBy to the caller's user ID.
// No-op when the context carries no user.
func EnrichCreatedBy(ctx context.Context, createdBy, updatedBy *string) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return
	}
	if createdBy != nil {
		*createdBy = userID
	}
	if updatedBy != nil {
		*updatedBy = userID
	}
}

// EnrichUpdatedBy sets only updatedBy.
func EnrichUpdatedBy(ctx context.Context, updatedBy *string) {
	if userID := appctx.GetUserID(ctx); userID != "" && updatedBy != nil {
		*updatedBy = userID
	}
}
