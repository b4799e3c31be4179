package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/retzius/attendance-api/internal/middleware"
	"github.com/retzius/attendance-api/internal/models"
)

func teacherContext(t *testing.T, w *httptest.ResponseRecorder, method, target string, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", FullName: "Alice Smith", Username: "alice"})
	return c
}

func TestAttendanceHandlerRecordMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/subjects/sub-1/attendance", strings.NewReader("{}"))
	c.Request = req

	handler.Record(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAttendanceHandlerRecordInvalidPayload(t *testing.T) {
	handler := NewAttendanceHandler(nil)
	w := httptest.NewRecorder()
	c := teacherContext(t, w, http.MethodPost, "/subjects/sub-1/attendance", "{not-json")

	handler.Record(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerHistoryInvalidFromDate(t *testing.T) {
	handler := NewAttendanceHandler(nil)
	w := httptest.NewRecorder()
	c := teacherContext(t, w, http.MethodGet, "/subjects/sub-1/attendance?from=bad-date", "")

	handler.History(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerHistoryInvalidToDate(t *testing.T) {
	handler := NewAttendanceHandler(nil)
	w := httptest.NewRecorder()
	c := teacherContext(t, w, http.MethodGet, "/subjects/sub-1/attendance?to=2026/03/01", "")

	handler.History(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
