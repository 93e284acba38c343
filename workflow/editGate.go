package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/purchases_backend/utils"
)

// CanEditPosted reports whether the session carries the elevated-edit
// capability. Posted records are immutable without it. The capability is
// resolved once per session at login, not re-derived per call.
func CanEditPosted(ctx context.Context) bool {
	elevated, ok := utils.GetElevatedEditFromContext(ctx)
	return ok && elevated
}
