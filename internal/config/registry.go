package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pulsedeck/decisiond/internal/apperr"
)

// Registry holds exactly one frozen Matrices value and its content
// hash. Process wiring builds one registry at init and passes the
// handle down; tests build private registries per case.
type Registry struct {
	mu     sync.RWMutex
	m      Matrices
	hash   string
	frozen bool
}

// NewRegistry loads the matrices, hashes them and freezes the result.
func NewRegistry(m Matrices) (*Registry, error) {
	hash, err := contentHash(m)
	if err != nil {
		return nil, fmt.Errorf("hash matrices: %w", err)
	}
	return &Registry{m: m, hash: hash, frozen: true}, nil
}

// MustRegistry is NewRegistry for wiring paths where the default
// matrices cannot fail to marshal.
func MustRegistry(m Matrices) *Registry {
	r, err := NewRegistry(m)
	if err != nil {
		panic(err)
	}
	return r
}

// Matrices returns a copy of the frozen configuration. Maps are
// deep-copied so callers cannot reach the frozen state.
func (r *Registry) Matrices() Matrices {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMatrices(r.m)
}

// Hash returns the 16-hex-char content hash recorded on every packet.
func (r *Registry) Hash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hash
}

// Version returns the engine semver string.
func (r *Registry) Version() string { return EngineVersion }

// Update rejects all mutation after freeze. It exists so the one
// illegal path fails loudly instead of silently diverging from the
// recorded hash.
func (r *Registry) Update(func(*Matrices)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.frozen {
		return apperr.New(apperr.KindImmutability, "configuration is frozen (hash %s)", r.hash)
	}
	return apperr.New(apperr.KindImmutability, "configuration must be frozen before use")
}

// contentHash is the first 16 hex chars of SHA-256 over the canonical
// JSON encoding. encoding/json sorts map keys, so the encoding is
// stable for a given Matrices value.
func contentHash(m Matrices) (string, error) {
	canonical, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16], nil
}

func copyMatrices(m Matrices) Matrices {
	out := m
	out.ConfluenceWeights = copyMap(m.ConfluenceWeights)
	out.QualityMultipliers = copyMap(m.QualityMultipliers)
	out.HTFMultipliers = copyMap(m.HTFMultipliers)
	out.SessionMultipliers = copyMap(m.SessionMultipliers)
	out.DayMultipliers = copyMap(m.DayMultipliers)
	out.ValidityMinutes = copyMap(m.ValidityMinutes)
	out.ConfluenceMultipliers = append([]Tier(nil), m.ConfluenceMultipliers...)
	out.RRTiers = append([]Tier(nil), m.RRTiers...)
	out.VolumeTiers = append([]Tier(nil), m.VolumeTiers...)
	out.TrendTiers = append([]Tier(nil), m.TrendTiers...)
	out.PhaseConfidenceTiers = append([]Tier(nil), m.PhaseConfidenceTiers...)
	return out
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
