package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	ms, err := Discover()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	assert.Equal(t, "001", ms[0].Version)
	assert.Equal(t, "001_init.sql", ms[0].Filename)
	assert.Len(t, ms[0].Checksum, 64)
	assert.True(t, strings.Contains(ms[0].SQL, "purchase_orders"))

	require.GreaterOrEqual(t, len(ms), 2)
	assert.Equal(t, "002_quantity_precision.sql", ms[1].Filename)
	assert.Contains(t, ms[1].SQL, "qty_canceled TYPE NUMERIC(24,12)")

	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Filename, ms[i].Filename)
	}
}
