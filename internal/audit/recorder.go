package audit

import (
	"context"
	"log/slog"
)

// Recorder adapts the repository to the auth service's recording hook.
// Failures are logged and dropped: audit must never fail a request.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

// NewRecorder creates a best-effort audit recorder.
func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record writes one audit entry for an auth action.
func (r *Recorder) Record(ctx context.Context, action, entityID, userID, details string) {
	entry := &Entry{
		Action:     action,
		EntityType: "user",
		EntityID:   entityID,
		UserID:     userID,
		Source:     "auth",
		Details:    details,
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Warn("audit entry not recorded", "action", action, "error", err)
	}
}
