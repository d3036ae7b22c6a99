package vendor_request_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/score_models"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/utils"
)

// VendorRequest is an RM's onboarding submission for a salon. Its terminal
// transition (approved/rejected) is what feeds the RM scoring ledger.
type VendorRequest struct {
	ID        uuid.UUID  `json:"id"`
	SalonID   uuid.UUID  `json:"salon_id"`
	RMID      uuid.UUID  `json:"rm_id"`
	Status    string     `json:"status"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	DecidedBy *uuid.UUID `json:"decided_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewVendorRequest builds a pending vendor request.
func NewVendorRequest(salonID, rmID uuid.UUID) (*VendorRequest, error) {
	if salonID == uuid.Nil || rmID == uuid.Nil {
		return nil, fmt.Errorf("%w: salon and rm are required", utils.ErrValidation)
	}
	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for vendor request: %w", err)
	}
	now := time.Now()
	return &VendorRequest{
		ID:        id,
		SalonID:   salonID,
		RMID:      rmID,
		Status:    shared_models.VendorRequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CreateVendorRequest inserts a new vendor request.
func CreateVendorRequest(ctx context.Context, db *pgxpool.Pool, vr *VendorRequest) (*VendorRequest, error) {
	_, err := db.Exec(ctx, `
		INSERT INTO vendor_requests (id, salon_id, rm_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		vr.ID, vr.SalonID, vr.RMID, vr.Status, vr.CreatedAt, vr.UpdatedAt,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to insert vendor request for salon %s: %v", vr.SalonID, err)
		return nil, fmt.Errorf("failed to create vendor request: %w", err)
	}
	logger.InfoLogger.Infof("Vendor request %s created by RM %s for salon %s", vr.ID, vr.RMID, vr.SalonID)
	return vr, nil
}

// GetVendorRequestByID fetches a vendor request.
func GetVendorRequestByID(ctx context.Context, q shared_models.Querier, requestID uuid.UUID) (*VendorRequest, error) {
	vr := &VendorRequest{}
	err := q.QueryRow(ctx, `
		SELECT id, salon_id, rm_id, status, decided_at, decided_by, created_at, updated_at
		FROM vendor_requests WHERE id = $1`, requestID).Scan(
		&vr.ID, &vr.SalonID, &vr.RMID, &vr.Status, &vr.DecidedAt, &vr.DecidedBy, &vr.CreatedAt, &vr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor request not found")
		}
		return nil, fmt.Errorf("database error fetching vendor request: %w", err)
	}
	return vr, nil
}

// DecideVendorRequest moves a pending request to approved or rejected and
// appends the RM score entry in the same transaction - an explicit post-write
// step, not a hidden callback. Deciding an already-decided request with the
// same outcome is a no-op; a different outcome is rejected.
func DecideVendorRequest(ctx context.Context, db *pgxpool.Pool, policy score_models.ScorePolicy, requestID, decidedBy uuid.UUID, outcome string) (*VendorRequest, error) {
	if outcome != shared_models.VendorRequestApproved && outcome != shared_models.VendorRequestRejected {
		return nil, fmt.Errorf("%w: invalid outcome %q", utils.ErrValidation, outcome)
	}

	points, err := policy.PointsFor(outcome)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	tag, err := tx.Exec(ctx, `
		UPDATE vendor_requests
		SET status = $2, decided_at = $3, decided_by = $4, updated_at = $3
		WHERE id = $1 AND status = $5`,
		requestID, outcome, now, decidedBy, shared_models.VendorRequestPending,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to decide vendor request %s: %v", requestID, err)
		return nil, fmt.Errorf("failed to update vendor request: %w", err)
	}

	vr, err := GetVendorRequestByID(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if vr.Status == outcome {
			// Replayed decision; the score ledger's uniqueness guard would
			// reject the append anyway.
			return vr, nil
		}
		return nil, fmt.Errorf("%w: vendor request already decided as %q", utils.ErrValidation, vr.Status)
	}

	reason := fmt.Sprintf("vendor request %s for salon %s", outcome, vr.SalonID)
	if _, _, err := score_models.AppendScoreEntry(ctx, tx, vr.RMID, vr.ID, outcome, points, reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit vendor request decision: %w", err)
	}
	return vr, nil
}
