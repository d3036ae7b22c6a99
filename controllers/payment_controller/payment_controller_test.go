package payment_controller

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

func asUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("sub", userID.String())
		c.Set("role", role)
		c.Next()
	}
}

func testRouter(auth gin.HandlerFunc) *gin.Engine {
	pc := NewPaymentController(nil, nil)
	router := gin.New()
	group := router.Group("/")
	if auth != nil {
		group.Use(auth)
	}
	group.POST("/bookings/:booking_id/payments", pc.InitiateOnlinePayment)
	group.POST("/bookings/:booking_id/venue-payment", pc.RecordVenuePayment)
	group.POST("/payments/:payment_id/refund", pc.ApplyRefund)
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestInitiatePaymentRequiresAuth(t *testing.T) {
	router := testRouter(nil)
	w := doJSON(router, http.MethodPost, "/bookings/"+uuid.NewString()+"/payments", `{"purpose":"platform_fee"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInitiatePaymentValidation(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "customer"))

	// unparseable booking id
	w := doJSON(router, http.MethodPost, "/bookings/nope/payments", `{"purpose":"platform_fee"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// purpose is required
	w = doJSON(router, http.MethodPost, "/bookings/"+uuid.NewString()+"/payments", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown purpose
	w = doJSON(router, http.MethodPost, "/bookings/"+uuid.NewString()+"/payments", `{"purpose":"tip"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// refunds go through the refund endpoint, not checkout
	w = doJSON(router, http.MethodPost, "/bookings/"+uuid.NewString()+"/payments", `{"purpose":"refund"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVenuePaymentRequiresVendorRole(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "customer"))
	w := doJSON(router, http.MethodPost, "/bookings/"+uuid.NewString()+"/venue-payment", `{"amount":50000,"method":"cash"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVenuePaymentValidation(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "vendor"))

	w := doJSON(router, http.MethodPost, "/bookings/nope/venue-payment", `{"amount":50000,"method":"cash"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// amount must be positive
	w = doJSON(router, http.MethodPost, "/bookings/"+uuid.NewString()+"/venue-payment", `{"amount":0,"method":"cash"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefundRequiresAdmin(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "vendor"))
	w := doJSON(router, http.MethodPost, "/payments/"+uuid.NewString()+"/refund", `{"amount":1000,"reason":"service not delivered"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRefundValidation(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "admin"))

	w := doJSON(router, http.MethodPost, "/payments/nope/refund", `{"amount":1000,"reason":"err"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// reason is required
	w = doJSON(router, http.MethodPost, "/payments/"+uuid.NewString()+"/refund", `{"amount":1000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
