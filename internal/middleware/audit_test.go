package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-achievement-api/internal/models"
)

type auditRecorderStub struct {
	mu   sync.Mutex
	logs []models.AuditLog
	err  error
}

func (s *auditRecorderStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *log)
	return s.err
}

func auditRouter(recorder AuditRecorder, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	r.PUT("/admin/weights/:category",
		Audit(recorder, nil, models.AuditActionWeightChange, models.AuditResourceWeight, "category"),
		func(c *gin.Context) { c.Status(status) },
	)
	return r
}

func TestAuditRecordsSuccessfulMutation(t *testing.T) {
	recorder := &auditRecorderStub{}
	r := auditRouter(recorder, http.StatusAccepted)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/weights/ACADEMIC", nil)
	req.Header.Set("User-Agent", "console/1.0")
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, models.AuditActionWeightChange, entry.Action)
	assert.Equal(t, models.AuditResourceWeight, entry.Resource)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "ACADEMIC", *entry.ResourceID)
	assert.Equal(t, "console/1.0", entry.UserAgent)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.NewValues, &body))
	assert.Equal(t, "/admin/weights/:category", body["path"])
	assert.Equal(t, http.MethodPut, body["method"])
	assert.Equal(t, float64(http.StatusAccepted), body["status"])
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	recorder := &auditRecorderStub{}
	r := auditRouter(recorder, http.StatusServiceUnavailable)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/weights/ACADEMIC", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, recorder.logs)
}

func TestAuditWriteFailureKeepsResponse(t *testing.T) {
	recorder := &auditRecorderStub{err: errors.New("audit table missing")}
	r := auditRouter(recorder, http.StatusAccepted)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/weights/MASTERY", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, recorder.logs, 1)
}
