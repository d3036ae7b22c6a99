package booking_controller

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/joy095/booking/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitLoggers()
	os.Exit(m.Run())
}

// asUser injects the identity the auth middleware would normally set.
func asUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("sub", userID.String())
		c.Set("role", role)
		c.Next()
	}
}

func testRouter(auth gin.HandlerFunc) (*gin.Engine, *BookingController) {
	bc := NewBookingController(nil, nil)
	router := gin.New()
	group := router.Group("/")
	if auth != nil {
		group.Use(auth)
	}
	group.POST("/bookings", bc.CreateBooking)
	group.GET("/bookings/:booking_id", bc.GetBooking)
	group.POST("/bookings/:booking_id/cancel", bc.CancelBooking)
	group.POST("/bookings/:booking_id/complete", bc.MarkCompleted)
	group.DELETE("/bookings/:booking_id", bc.DeleteBooking)
	return router, bc
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateBookingRequiresAuth(t *testing.T) {
	router, _ := testRouter(nil)
	w := doJSON(router, http.MethodPost, "/bookings", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	router, _ := testRouter(asUser(uuid.New(), "customer"))

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"bad salon id", `{"salon_id":"not-a-uuid","date":"2026-09-10","time":"10:00","items":[{"service_id":"x"}]}`},
		{"bad date", `{"salon_id":"` + uuid.NewString() + `","date":"10-09-2026","time":"10:00","items":[{"service_id":"x"}]}`},
		{"no items", `{"salon_id":"` + uuid.NewString() + `","date":"2026-09-10","time":"10:00","items":[]}`},
		{"bad service id", `{"salon_id":"` + uuid.NewString() + `","date":"2026-09-10","time":"10:00","items":[{"service_id":"nope"}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/bookings", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetBookingRejectsBadID(t *testing.T) {
	router, _ := testRouter(nil)
	w := doJSON(router, http.MethodGet, "/bookings/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelBookingRejectsBadID(t *testing.T) {
	router, _ := testRouter(asUser(uuid.New(), "customer"))
	w := doJSON(router, http.MethodPost, "/bookings/not-a-uuid/cancel", `{"reason":"late"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFinishRequiresVendorRole(t *testing.T) {
	router, _ := testRouter(asUser(uuid.New(), "customer"))
	w := doJSON(router, http.MethodPost, "/bookings/"+uuid.NewString()+"/complete", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteBookingRequiresAdmin(t *testing.T) {
	router, _ := testRouter(asUser(uuid.New(), "vendor"))
	w := doJSON(router, http.MethodDelete, "/bookings/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestConvenienceFee(t *testing.T) {
	t.Setenv("CONVENIENCE_FEE", "7500")
	assert.Equal(t, int64(7500), convenienceFee())

	t.Setenv("CONVENIENCE_FEE", "-10")
	assert.Equal(t, int64(5000), convenienceFee())

	t.Setenv("CONVENIENCE_FEE", "")
	assert.Equal(t, int64(5000), convenienceFee())
}

func TestSlotHoldKey(t *testing.T) {
	salonID := uuid.New()
	key := slotHoldKey(salonID, "2026-09-10", "14:30")
	assert.Equal(t, "slot_hold:"+salonID.String()+":2026-09-10:14:30", key)
}
