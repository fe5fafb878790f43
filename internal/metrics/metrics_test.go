package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(StorageFallbacks.WithLabelValues("add"))
	StorageFallbacks.WithLabelValues("add").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(StorageFallbacks.WithLabelValues("add")))

	saved := testutil.ToFloat64(PlaylistsSaved.WithLabelValues(TierLegacy))
	PlaylistsSaved.WithLabelValues(TierLegacy).Inc()
	assert.Equal(t, saved+1, testutil.ToFloat64(PlaylistsSaved.WithLabelValues(TierLegacy)))
}

func TestRegistered(t *testing.T) {
	// Vectors only report once a label set exists
	Fetches.WithLabelValues(FetchOK)

	assert.Equal(t, 1, testutil.CollectAndCount(Migrations))
	assert.Equal(t, 1, testutil.CollectAndCount(Splits))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(Fetches), 1)
}
