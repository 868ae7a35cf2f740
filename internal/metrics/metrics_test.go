package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	ok := OperationsTotal.WithLabelValues("test_op", "ok")
	conflict := OperationsTotal.WithLabelValues("test_op", string(apperrors.KindConflict))
	internal := OperationsTotal.WithLabelValues("test_op", string(apperrors.KindInternal))
	before := []float64{testutil.ToFloat64(ok), testutil.ToFloat64(conflict), testutil.ToFloat64(internal)}

	RecordOperation("test_op", nil)
	RecordOperation("test_op", apperrors.Conflict(apperrors.ReasonCapacityExceeded, "full"))
	RecordOperation("test_op", errors.New("disk on fire"))

	assert.Equal(t, before[0]+1, testutil.ToFloat64(ok))
	assert.Equal(t, before[1]+1, testutil.ToFloat64(conflict))
	assert.Equal(t, before[2]+1, testutil.ToFloat64(internal))
}

func TestRecordDelivery(t *testing.T) {
	failed := NotificationsDelivered.WithLabelValues("email", "error")
	before := testutil.ToFloat64(failed)

	RecordDelivery("email", errors.New("timeout"))

	assert.Equal(t, before+1, testutil.ToFloat64(failed))
}

func TestHTTPMiddlewareRecordsRoute(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMiddleware())
	e.GET("/things/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/things/:id", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/7", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordOperation("scrape_check", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gatherly_operations_total")
}
