package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a, err := Fingerprint(DomainSchema, Object{"table": String("Customer"), "columns": Int(3)})
	require.NoError(t, err)
	b, err := Fingerprint(DomainSchema, Object{"columns": Int(3), "table": String("Customer")})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	a, err := Fingerprint(DomainSchema, Object{"length": Int(12)})
	require.NoError(t, err)
	b, err := Fingerprint(DomainSchema, Object{"length": Int(13)})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFingerprint_DomainSeparated(t *testing.T) {
	v := String("x")
	a, err := Fingerprint(DomainSchema, v)
	require.NoError(t, err)
	b, err := Fingerprint("relmap/other/v1", v)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	sum := sha256.Sum256([]byte(DomainSchema + "\x00" + `"x"`))
	assert.Equal(t, hex.EncodeToString(sum[:]), a)
}

func TestFingerprint_Error(t *testing.T) {
	_, err := Fingerprint(DomainSchema, Object{"bad": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainSchema)
}
