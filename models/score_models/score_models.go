package score_models

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/utils"
)

// ScoreEntry is one append-only row in the RM scoring ledger. Entries are
// never updated or deleted; the running score is SUM(points) and always
// recomputable from history.
type ScoreEntry struct {
	ID              uuid.UUID `json:"id"`
	RMID            uuid.UUID `json:"rm_id"`
	VendorRequestID uuid.UUID `json:"vendor_request_id"`
	Outcome         string    `json:"outcome"`
	Points          int       `json:"points"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
}

// ScorePolicy holds the configured point deltas per outcome.
type ScorePolicy struct {
	ApprovalPoints  int
	RejectionPoints int
}

// LoadScorePolicy reads the point deltas from the environment, falling back
// to +10 / -5.
func LoadScorePolicy() ScorePolicy {
	return ScorePolicy{
		ApprovalPoints:  envInt("RM_SCORE_APPROVAL_POINTS", 10),
		RejectionPoints: envInt("RM_SCORE_REJECTION_POINTS", -5),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logger.WarnLogger.Warnf("Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}

// PointsFor returns the signed delta for a terminal vendor-request outcome.
func (p ScorePolicy) PointsFor(outcome string) (int, error) {
	switch outcome {
	case shared_models.VendorRequestApproved:
		return p.ApprovalPoints, nil
	case shared_models.VendorRequestRejected:
		return p.RejectionPoints, nil
	}
	return 0, fmt.Errorf("%w: unknown vendor request outcome %q", utils.ErrValidation, outcome)
}

// AppendScoreEntry records one outcome delta. The unique
// (vendor_request_id, outcome) index makes a re-invocation for the same
// terminal transition a no-op: the function returns (nil, false, nil) and
// the score is not double-counted.
func AppendScoreEntry(ctx context.Context, q shared_models.Querier, rmID, vendorRequestID uuid.UUID, outcome string, points int, reason string) (*ScoreEntry, bool, error) {
	if rmID == uuid.Nil || vendorRequestID == uuid.Nil {
		return nil, false, fmt.Errorf("%w: rm and vendor request are required", utils.ErrValidation)
	}

	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate UUID for score entry: %w", err)
	}
	entry := &ScoreEntry{
		ID:              id,
		RMID:            rmID,
		VendorRequestID: vendorRequestID,
		Outcome:         outcome,
		Points:          points,
		Reason:          reason,
		CreatedAt:       time.Now(),
	}

	tag, err := q.Exec(ctx, `
		INSERT INTO rm_score_entries (id, rm_id, vendor_request_id, outcome, points, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (vendor_request_id, outcome) DO NOTHING`,
		entry.ID, entry.RMID, entry.VendorRequestID, entry.Outcome, entry.Points, entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to append score entry for request %s: %v", vendorRequestID, err)
		return nil, false, fmt.Errorf("failed to append score entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.InfoLogger.Infof("Score entry for request %s outcome %s already recorded, no-op", vendorRequestID, outcome)
		return nil, false, nil
	}

	logger.InfoLogger.Infof("Recorded %+d points for RM %s (request %s, %s)", points, rmID, vendorRequestID, outcome)
	return entry, true, nil
}

// GetScore returns the RM's running total, summed from the ledger.
func GetScore(ctx context.Context, q shared_models.Querier, rmID uuid.UUID) (int, error) {
	var score int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM rm_score_entries WHERE rm_id = $1`, rmID).Scan(&score)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to compute score for RM %s: %v", rmID, err)
		return 0, fmt.Errorf("failed to compute score: %w", err)
	}
	return score, nil
}

// GetHistory returns the RM's ledger entries, newest first.
func GetHistory(ctx context.Context, q shared_models.Querier, rmID uuid.UUID, page, limit int) ([]ScoreEntry, error) {
	offset := (page - 1) * limit
	rows, err := q.Query(ctx, `
		SELECT id, rm_id, vendor_request_id, outcome, points, reason, created_at
		FROM rm_score_entries
		WHERE rm_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, rmID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch score history: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		if err := rows.Scan(&e.ID, &e.RMID, &e.VendorRequestID, &e.Outcome, &e.Points, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
