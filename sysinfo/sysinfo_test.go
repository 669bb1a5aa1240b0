package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desk-next/deskcli/testutil"
)

func TestCollect(t *testing.T) {
	driver := testutil.NewFakeDriver(1920, 1080)

	info, err := collect(driver)
	require.NoError(t, err)

	assert.Equal(t, 1920, info.DisplayWidth)
	assert.Equal(t, 1080, info.DisplayHeight)
	assert.NotEmpty(t, info.OSType)
	assert.NotEmpty(t, info.OSVersion)
}

func TestCollect_CachesFirstResult(t *testing.T) {
	first, err := Collect(testutil.NewFakeDriver(800, 600))
	require.NoError(t, err)

	// a different driver on a later call must not change the cached value
	second, err := Collect(testutil.NewFakeDriver(1024, 768))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
