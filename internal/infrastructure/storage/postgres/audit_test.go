package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_CompressRoundTrip(t *testing.T) {
	s, err := NewAuditService(&TxManager{})
	require.NoError(t, err)
	s.compressThreshold = 16

	small := AuditEntry{Changes: []byte(`{"a":1}`)}
	s.compress(&small)
	assert.Equal(t, CompressionNone, small.CompressionAlgo)
	assert.Nil(t, small.ChangesCompressed)

	payload := []byte(`{"notes":"` + string(bytes.Repeat([]byte("x"), 200)) + `"}`)
	big := AuditEntry{Changes: payload}
	s.compress(&big)
	assert.Equal(t, CompressionZstd, big.CompressionAlgo)
	assert.Nil(t, big.Changes)
	assert.Less(t, len(big.ChangesCompressed), len(payload))

	require.NoError(t, s.decompress(&big))
	assert.Equal(t, payload, []byte(big.Changes))
}
