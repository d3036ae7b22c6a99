// models/service_models
package service_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/booking/logger"
)

// Service is the catalog read model consumed at booking-creation time.
// The booking snapshots price and duration into its line items, so later
// catalog changes never touch existing bookings.
type Service struct {
	ID              uuid.UUID `json:"id"`
	SalonID         uuid.UUID `json:"salon_id"`
	Name            string    `json:"name"`
	Price           int64     `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// GetServiceByID fetches one catalog service.
func GetServiceByID(ctx context.Context, db *pgxpool.Pool, serviceID uuid.UUID) (*Service, error) {
	s := &Service{}
	err := db.QueryRow(ctx, `
		SELECT id, salon_id, name, price, duration_minutes, is_active, created_at, updated_at
		FROM services WHERE id = $1`, serviceID).Scan(
		&s.ID, &s.SalonID, &s.Name, &s.Price, &s.DurationMinutes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Service %s not found", serviceID)
			return nil, fmt.Errorf("service not found")
		}
		logger.ErrorLogger.Errorf("Failed to fetch service %s: %v", serviceID, err)
		return nil, fmt.Errorf("database error fetching service: %w", err)
	}
	return s, nil
}
