package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	c := GatewayOperations.WithLabelValues("create", "metrics_test", OutcomeOK)
	before := testutil.ToFloat64(c)

	ObserveOperation("create", "metrics_test", OutcomeOK)
	ObserveOperation("create", "metrics_test", OutcomeOK)

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestObserveRead(t *testing.T) {
	before := testutil.CollectAndCount(GatewayReadDuration)
	ObserveRead("metrics_test_read", time.Now().Add(-10*time.Millisecond))
	assert.Equal(t, before+1, testutil.CollectAndCount(GatewayReadDuration))
}
