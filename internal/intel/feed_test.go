package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFeed_SeededBlacklist(t *testing.T) {
	f := NewFeed(zap.NewNop())

	assert.True(t, f.IsKnownBad("203.0.113.1"))
	assert.False(t, f.IsKnownBad("8.8.8.8"))
}

func TestFeed_StripsPortSuffix(t *testing.T) {
	f := NewFeed(zap.NewNop())

	assert.True(t, f.IsKnownBad("192.168.1.100:4444"))
	assert.False(t, f.IsKnownBad("192.168.1.101:4444"))
}

func TestFeed_AddIPs(t *testing.T) {
	f := NewFeed(zap.NewNop())
	require.False(t, f.IsKnownBad("10.10.10.10"))

	f.AddIPs("10.10.10.10", "", "10.10.10.11")

	assert.True(t, f.IsKnownBad("10.10.10.10"))
	assert.True(t, f.IsKnownBad("10.10.10.11"))
	assert.False(t, f.IsKnownBad(""))
}

func TestFeed_SnapshotIsCopy(t *testing.T) {
	f := NewFeed(zap.NewNop())
	snap := f.Snapshot()

	require.NotEmpty(t, snap.Signatures)
	require.NotEmpty(t, snap.IPs)
	assert.False(t, snap.LastUpdated.IsZero())

	// Мутация среза не трогает реестр
	snap.Signatures[0] = "tampered"
	assert.Equal(t, "MALWARE_SIGNATURE_1", f.Snapshot().Signatures[0])
}
