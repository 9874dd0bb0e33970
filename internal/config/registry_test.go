package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedeck/decisiond/internal/models"
)

func TestConfluenceWeightsSumToOne(t *testing.T) {
	m := Defaults()
	sum := 0.0
	for _, w := range m.ConfluenceWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, m.ConfluenceWeights, 6)
}

func TestRegistryHashStableAndSized(t *testing.T) {
	r1 := MustRegistry(Defaults())
	r2 := MustRegistry(Defaults())

	require.Len(t, r1.Hash(), 16)
	assert.Equal(t, r1.Hash(), r2.Hash(), "identical matrices must hash identically")
}

func TestRegistryHashChangesWithContent(t *testing.T) {
	m := Defaults()
	m.ConfluenceThreshold = 65
	changed := MustRegistry(m)

	assert.NotEqual(t, MustRegistry(Defaults()).Hash(), changed.Hash())
}

func TestRegistryRejectsMutationAfterFreeze(t *testing.T) {
	r := MustRegistry(Defaults())
	err := r.Update(func(m *Matrices) { m.ConfluenceThreshold = 0 })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMMUTABILITY_VIOLATION")
}

func TestMatricesReturnsIsolatedCopy(t *testing.T) {
	r := MustRegistry(Defaults())
	m := r.Matrices()
	m.ConfluenceWeights[models.TF240] = 0.99
	m.QualityMultipliers[models.QualityExtreme] = 9

	fresh := r.Matrices()
	assert.InDelta(t, 0.40, fresh.ConfluenceWeights[models.TF240], 1e-9)
	assert.InDelta(t, 1.3, fresh.QualityMultipliers[models.QualityExtreme], 1e-9)
	assert.Equal(t, r.Hash(), MustRegistry(fresh).Hash(), "copy must hash like the frozen original")
}

func TestTierLookupFirstMatchDescending(t *testing.T) {
	m := Defaults()

	assert.InDelta(t, 2.5, m.ConfluenceMultiplier(95), 1e-9)
	assert.InDelta(t, 2.5, m.ConfluenceMultiplier(90), 1e-9)
	assert.InDelta(t, 1.0, m.ConfluenceMultiplier(60), 1e-9)

	assert.InDelta(t, 0.85, m.RRMultiplier(1.5), 1e-9)
	assert.InDelta(t, 0.5, m.RRMultiplier(1.0), 1e-9)
	assert.InDelta(t, 1.0, m.VolumeMultiplier(1.0), 1e-9)
	assert.InDelta(t, 0.7, m.VolumeMultiplier(0.5), 1e-9)
}

func TestValidityMinutesPerTimeframe(t *testing.T) {
	m := Defaults()
	tests := map[models.Timeframe]int{
		models.TF3:   6,
		models.TF5:   10,
		models.TF15:  30,
		models.TF30:  60,
		models.TF60:  120,
		models.TF240: 480,
	}
	for tf, want := range tests {
		assert.Equal(t, want, m.ValidityFor(tf), "timeframe %d", tf)
	}
}

func TestPhaseConfidenceBoostTiers(t *testing.T) {
	m := Defaults()
	assert.InDelta(t, 0.15, m.PhaseConfidenceBoost(90), 1e-9)
	assert.InDelta(t, 0.10, m.PhaseConfidenceBoost(85), 1e-9)
	assert.InDelta(t, 0.05, m.PhaseConfidenceBoost(75), 1e-9)
	assert.InDelta(t, 0.0, m.PhaseConfidenceBoost(60), 1e-9)
}

func TestLoadSettingsDefaultsWithoutFile(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, 8090, s.Server.Port)
	assert.Equal(t, 2, s.Providers.MaxRetries)
	assert.Equal(t, "America/New_York", s.Decision.SessionTimezone)
	assert.Equal(t, "memory", s.Store.Backend)
}
