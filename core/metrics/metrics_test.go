package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(submissions.WithLabelValues(SubmissionFinalized))
	RecordSubmission(SubmissionFinalized)
	assert.Equal(t, before+1, testutil.ToFloat64(submissions.WithLabelValues(SubmissionFinalized)))

	RecordUpdate("")
	assert.GreaterOrEqual(t, testutil.ToFloat64(updates.WithLabelValues("other")), 1.0)

	rl := testutil.ToFloat64(rateLimited)
	RecordRateLimited()
	assert.Equal(t, rl+1, testutil.ToFloat64(rateLimited))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordModeration("approved")
	ObserveHandler("add_property", "ok", 20*time.Millisecond)
	ObserveUpload(true, time.Second)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `ilebot_moderation_decisions_total{status="approved"}`)
	assert.Contains(t, string(body), "ilebot_telegram_handler_duration_seconds_bucket")
	assert.Contains(t, string(body), "ilebot_images_upload_duration_seconds_count")
}
