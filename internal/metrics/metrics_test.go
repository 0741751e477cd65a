package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotAndReset(t *testing.T) {
	var c Counters
	c.AnalysesRun.Add(2)
	c.Suppressed.Add(1)

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap["analyses_run"])
	assert.Equal(t, int64(1), snap["suppressed"])
	assert.Equal(t, int64(0), snap["interactions"])
	assert.Len(t, snap, 10)

	c.Reset()
	for name, v := range c.Snapshot() {
		assert.Zero(t, v, name)
	}
}
