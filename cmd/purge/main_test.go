package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFilter(t *testing.T) {
	f, err := buildFilter("", false, false)
	require.NoError(t, err)
	assert.Nil(t, f.Date)
	assert.Nil(t, f.KeepDisclosures, "unset flag keeps the configured default")

	f, err = buildFilter("2024-12-03", true, true)
	require.NoError(t, err)
	require.NotNil(t, f.Date)
	assert.Equal(t, time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC), *f.Date)
	require.NotNil(t, f.KeepDisclosures)
	assert.True(t, *f.KeepDisclosures)

	f, err = buildFilter("", false, true)
	require.NoError(t, err)
	require.NotNil(t, f.KeepDisclosures)
	assert.False(t, *f.KeepDisclosures)

	_, err = buildFilter("12/03/2024", false, false)
	assert.Error(t, err)
}
