package vendor_request_models

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/score_models"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/utils"
)

func TestMain(m *testing.M) {
	logger.InitLoggers()
	os.Exit(m.Run())
}

func TestNewVendorRequest(t *testing.T) {
	salonID := uuid.New()
	rmID := uuid.New()

	vr, err := NewVendorRequest(salonID, rmID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, vr.ID)
	assert.Equal(t, salonID, vr.SalonID)
	assert.Equal(t, rmID, vr.RMID)
	assert.Equal(t, shared_models.VendorRequestPending, vr.Status)

	_, err = NewVendorRequest(uuid.Nil, rmID)
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = NewVendorRequest(salonID, uuid.Nil)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

// testPool connects to the database named by TEST_DATABASE_URL. The schema
// from migrations/001_init.sql must already be applied.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestDecideVendorRequestScoresExactlyOnce(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	policy := score_models.ScorePolicy{ApprovalPoints: 10, RejectionPoints: -5}
	rmID := uuid.New()
	adminID := uuid.New()

	vr, err := NewVendorRequest(uuid.New(), rmID)
	require.NoError(t, err)
	vr, err = CreateVendorRequest(ctx, pool, vr)
	require.NoError(t, err)

	decided, err := DecideVendorRequest(ctx, pool, policy, vr.ID, adminID, shared_models.VendorRequestApproved)
	require.NoError(t, err)
	assert.Equal(t, shared_models.VendorRequestApproved, decided.Status)

	score, err := score_models.GetScore(ctx, pool, rmID)
	require.NoError(t, err)
	assert.Equal(t, 10, score)

	// replaying the same decision is a no-op and never double-counts
	replayed, err := DecideVendorRequest(ctx, pool, policy, vr.ID, adminID, shared_models.VendorRequestApproved)
	require.NoError(t, err)
	assert.Equal(t, shared_models.VendorRequestApproved, replayed.Status)

	score, err = score_models.GetScore(ctx, pool, rmID)
	require.NoError(t, err)
	assert.Equal(t, 10, score)

	// flipping a decided request is rejected
	_, err = DecideVendorRequest(ctx, pool, policy, vr.ID, adminID, shared_models.VendorRequestRejected)
	assert.ErrorIs(t, err, utils.ErrValidation)

	history, err := score_models.GetHistory(ctx, pool, rmID, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 10, history[0].Points)
}
