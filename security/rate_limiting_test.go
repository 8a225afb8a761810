package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestEvent() (*core.RequestEvent, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/run", nil)
	req.RemoteAddr = "10.0.0.7:51234"

	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	return e, rec
}

func TestTriggerRateLimit_FirstRequestSetsWindow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 2, time.Hour)

	mock.ExpectIncr("ratelimit:maintenance:ip:10.0.0.7").SetVal(1)
	mock.ExpectExpire("ratelimit:maintenance:ip:10.0.0.7", time.Hour).SetVal(true)

	e, rec := newRequestEvent()
	require.NoError(t, limiter.TriggerRateLimit().Func(e))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerRateLimit_OverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 2, time.Hour)

	mock.ExpectIncr("ratelimit:maintenance:ip:10.0.0.7").SetVal(3)

	e, rec := newRequestEvent()
	require.NoError(t, limiter.TriggerRateLimit().Func(e))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many maintenance runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerRateLimit_ByAuthenticatedUser(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 5, time.Hour)

	mock.ExpectIncr("ratelimit:maintenance:user:admin123456789").SetVal(2)

	e, rec := newRequestEvent()
	e.Auth = core.NewRecord(core.NewAuthCollection("_superusers"))
	e.Auth.Id = "admin123456789"

	require.NoError(t, limiter.TriggerRateLimit().Func(e))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerRateLimit_RedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 1, time.Hour)

	mock.ExpectIncr("ratelimit:maintenance:ip:10.0.0.7").SetErr(errors.New("connection refused"))

	e, rec := newRequestEvent()
	require.NoError(t, limiter.TriggerRateLimit().Func(e))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
