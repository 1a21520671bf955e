package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gplotter/logging"
)

func scrape(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, rec.Body.String()
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()
	c.CommandHandled("g01", nil)
	c.CommandHandled("g01", nil)
	c.CommandHandled("g02", errors.New("no arc"))
	c.StepsMoved("X", 110)
	c.StepsMoved("X", 0)
	c.StepsMoved("Z", 40)
	c.EndstopHit("Y")
	c.StatusReported()
	c.BannerSent()

	code, body := scrape(t, c.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, code)

	assert.Contains(t, body, `gplotter_commands_total{command="g01"} 2`)
	assert.Contains(t, body, `gplotter_commands_total{command="g02"} 1`)
	assert.Contains(t, body, `gplotter_command_errors_total{command="g02"} 1`)
	assert.NotContains(t, body, `gplotter_command_errors_total{command="g01"}`)
	assert.Contains(t, body, `gplotter_motor_steps_total{motor="X"} 110`)
	assert.Contains(t, body, `gplotter_motor_steps_total{motor="Z"} 40`)
	assert.Contains(t, body, `gplotter_endstop_hits_total{motor="Y"} 1`)
	assert.Contains(t, body, "gplotter_status_reports_total 1")
	assert.Contains(t, body, "gplotter_banners_total 1")
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.BannerSent()

	_, body := scrape(t, b.Handler(), "/metrics")
	assert.Contains(t, body, "gplotter_banners_total 0")
}

func TestHealthz(t *testing.T) {
	code, body := scrape(t, NewCollector().Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok\n", body)

	code, _ = scrape(t, NewCollector().Handler(), "/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServerLifecycle(t *testing.T) {
	c := NewCollector()
	c.StatusReported()

	srv := NewServer("127.0.0.1:0", c, logging.NewNop())
	addr, err := srv.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "gplotter_status_reports_total 1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
