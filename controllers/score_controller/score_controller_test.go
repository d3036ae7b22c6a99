package score_controller

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
	sc := NewScoreController(nil)
	router := gin.New()
	group := router.Group("/")
	if auth != nil {
		group.Use(auth)
	}
	group.POST("/vendor-requests", sc.CreateVendorRequest)
	group.POST("/vendor-requests/:request_id/decide", sc.DecideVendorRequest)
	group.GET("/rms/:rm_id/score", sc.GetScore)
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateVendorRequestRequiresRMRole(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "customer"))
	w := doJSON(router, http.MethodPost, "/vendor-requests", `{"salon_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateVendorRequestRejectsBadSalon(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "rm"))
	w := doJSON(router, http.MethodPost, "/vendor-requests", `{"salon_id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecideVendorRequestRequiresAdmin(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "rm"))
	w := doJSON(router, http.MethodPost, "/vendor-requests/"+uuid.NewString()+"/decide", `{"outcome":"approved"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDecideVendorRequestRejectsUnknownOutcome(t *testing.T) {
	router := testRouter(asUser(uuid.New(), "admin"))
	w := doJSON(router, http.MethodPost, "/vendor-requests/"+uuid.NewString()+"/decide", `{"outcome":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetScoreRejectsBadID(t *testing.T) {
	router := testRouter(nil)
	w := doJSON(router, http.MethodGet, "/rms/nope/score", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
