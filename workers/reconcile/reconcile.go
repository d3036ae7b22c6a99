package reconcile

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	gomail "gopkg.in/gomail.v2"

	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/payment_models"
)

// Reporter periodically scans for online payments stuck in pending with no
// gateway callback inside the configured window. Stuck payments are
// reported to the ops channel, never cancelled: reconciliation of a
// half-finished checkout is a human decision.
type Reporter struct {
	DB       *pgxpool.Pool
	Window   time.Duration
	Interval time.Duration
	OpsEmail string
}

// NewReporter builds a Reporter from the environment.
// PAYMENT_PENDING_ALERT_AFTER and PAYMENT_RECONCILE_INTERVAL are minutes.
func NewReporter(db *pgxpool.Pool) *Reporter {
	return &Reporter{
		DB:       db,
		Window:   time.Duration(envInt("PAYMENT_PENDING_ALERT_AFTER", 30)) * time.Minute,
		Interval: time.Duration(envInt("PAYMENT_RECONCILE_INTERVAL", 15)) * time.Minute,
		OpsEmail: os.Getenv("OPS_ALERT_EMAIL"),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// Run blocks until ctx is cancelled, reporting on every tick.
func (r *Reporter) Run(ctx context.Context) {
	logger.InfoLogger.Infof("Payment reconciliation reporter started (window %v, interval %v)", r.Window, r.Interval)
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoLogger.Info("Payment reconciliation reporter stopped")
			return
		case <-ticker.C:
			if err := r.ReportOnce(ctx); err != nil {
				logger.ErrorLogger.Errorf("Reconciliation scan failed: %v", err)
			}
		}
	}
}

// ReportOnce performs a single scan and report cycle.
func (r *Reporter) ReportOnce(ctx context.Context) error {
	stale, err := payment_models.ListStalePendingPayments(ctx, r.DB, time.Now().Add(-r.Window))
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d online payment(s) pending longer than %v:\n\n", len(stale), r.Window)
	for _, p := range stale {
		orderRef := "-"
		if p.GatewayOrderID != nil {
			orderRef = *p.GatewayOrderID
		}
		fmt.Fprintf(&b, "payment %s booking %s purpose %s amount %d %s order %s pending since %s\n",
			p.ID, p.BookingID, p.Purpose, p.Amount, p.Currency, orderRef, p.CreatedAt.Format(time.RFC3339))
	}
	body := b.String()

	logger.WarnLogger.Warnf("Stuck pending payments detected:\n%s", body)

	if r.OpsEmail == "" {
		return nil
	}
	if err := r.sendMail("Stuck pending payments need reconciliation", body); err != nil {
		logger.ErrorLogger.Errorf("Failed to send reconciliation alert email: %v", err)
	}
	return nil
}

func (r *Reporter) sendMail(subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	port := envInt("SMTP_PORT", 587)
	user := os.Getenv("SMTP_USERNAME")
	pass := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if host == "" || from == "" {
		return fmt.Errorf("smtp not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", r.OpsEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(host, port, user, pass)
	return d.DialAndSend(m)
}
