package sync

import (
	"context"
	"fmt"

	"github.com/bigtime/bigtime/internal/api"
	"github.com/bigtime/bigtime/internal/model"
)

// resolveOpenLogConflict handles a 409 on log creation: the server already
// has an open log for the badge. If that log is ours (same client id) the
// create raced an earlier successful push, so we adopt the server's id and
// mark the row synced. If it belongs to another device the clock-in lost
// the race and the local row is marked failed for a human to sort out.
func (e *Engine) resolveOpenLogConflict(ctx context.Context, l *model.TimeLog) error {
	logs, err := e.client.Logs.List(ctx, api.ListFilter{Badge: l.Badge})
	if err != nil {
		return fmt.Errorf("resolve conflict for log %d: %w", l.ID, err)
	}

	for _, remote := range logs {
		if remote.ClockOut != nil {
			continue
		}
		if remote.ClientID == l.ClientID {
			e.log.Info("conflict resolved: open log is ours",
				"id", l.ID, "remote_id", remote.ID, "badge", l.Badge)
			return e.db.MarkSynced(ctx, l.ID, remote.ID)
		}
		e.log.Warn("clock-in conflict: another device holds the open shift",
			"id", l.ID, "badge", l.Badge, "remote_client_id", remote.ClientID)
		return e.db.MarkFailed(ctx, l.ID)
	}

	// The server reported a conflict but shows no open log now; it was
	// likely closed in between. Leave the row failed rather than guessing.
	e.log.Warn("conflict reported but no open server log found",
		"id", l.ID, "badge", l.Badge)
	return e.db.MarkFailed(ctx, l.ID)
}
