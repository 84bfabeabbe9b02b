package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.DialogEvent("START", OutcomeOK, time.Millisecond)
	r.Checkout(OutcomeFail)
	r.SessionError("get")
	assert.Nil(t, r.Registry())
}

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.DialogEvent("HANDLE_CART", OutcomeOK, 10*time.Millisecond)
	r.DialogEvent("HANDLE_CART", OutcomeOK, 10*time.Millisecond)
	r.Checkout(OutcomeFail)
	r.SessionError("set")

	assert.Equal(t, 2.0, counterValue(t, r, "shopbot_dialog_events_total"))
	assert.Equal(t, 1.0, counterValue(t, r, "shopbot_checkout_total"))
	assert.Equal(t, 1.0, counterValue(t, r, "shopbot_session_errors_total"))
}

func counterValue(t *testing.T, r *Recorder, name string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestHandlerServesMetricsAndHealth(t *testing.T) {
	r := New()
	r.Checkout(OutcomeOK)
	srv := httptest.NewServer(NewHandler(r))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `shopbot_checkout_total{outcome="ok"} 1`))
}
