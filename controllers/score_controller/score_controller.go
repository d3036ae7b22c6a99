package score_controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/score_models"
	"github.com/joy095/booking/models/shared_models"
	"github.com/joy095/booking/models/vendor_request_models"
	"github.com/joy095/booking/utils"
)

// ScoreController exposes the RM scoring ledger and the vendor-request
// decisions that feed it.
type ScoreController struct {
	DB     *pgxpool.Pool
	Policy score_models.ScorePolicy
}

// NewScoreController creates a new ScoreController with the configured
// point policy.
func NewScoreController(db *pgxpool.Pool) *ScoreController {
	return &ScoreController{DB: db, Policy: score_models.LoadScorePolicy()}
}

// CreateVendorRequestPayload submits a salon for onboarding review.
type CreateVendorRequestPayload struct {
	SalonID string `json:"salon_id" binding:"required"`
}

// CreateVendorRequest files a new onboarding request for the calling RM.
func (sc *ScoreController) CreateVendorRequest(c *gin.Context) {
	if err := utils.RequireRole(c, shared_models.RoleRM, shared_models.RoleAdmin); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "rm or admin role required"})
		return
	}
	rmID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req CreateVendorRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	salonID, err := uuid.Parse(req.SalonID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid salon id"})
		return
	}

	vr, err := vendor_request_models.NewVendorRequest(salonID, rmID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := vendor_request_models.CreateVendorRequest(c.Request.Context(), sc.DB, vr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create vendor request"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DecideVendorRequestPayload records the terminal outcome of a request.
type DecideVendorRequestPayload struct {
	Outcome string `json:"outcome" binding:"required"` // approved | rejected
}

// DecideVendorRequest applies the terminal transition and scores the RM in
// the same transaction. Replaying the same decision is a no-op.
func (sc *ScoreController) DecideVendorRequest(c *gin.Context) {
	if err := utils.RequireRole(c, shared_models.RoleAdmin); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}
	adminID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var req DecideVendorRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	vr, err := vendor_request_models.DecideVendorRequest(c.Request.Context(), sc.DB, sc.Policy, requestID, adminID, req.Outcome)
	if err != nil {
		if errors.Is(err, utils.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.ErrorLogger.Errorf("Failed to decide vendor request %s: %v", requestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decide vendor request"})
		return
	}
	c.JSON(http.StatusOK, vr)
}

// GetScore returns the RM's running total, summed from the ledger.
func (sc *ScoreController) GetScore(c *gin.Context) {
	rmID, err := uuid.Parse(c.Param("rm_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rm id"})
		return
	}

	score, err := score_models.GetScore(c.Request.Context(), sc.DB, rmID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute score"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rm_id": rmID, "score": score})
}

// GetHistory returns the RM's ledger entries, newest first.
func (sc *ScoreController) GetHistory(c *gin.Context) {
	rmID, err := uuid.Parse(c.Param("rm_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rm id"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, err := score_models.GetHistory(c.Request.Context(), sc.DB, rmID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch score history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rm_id": rmID, "entries": entries, "page": page, "limit": limit})
}
