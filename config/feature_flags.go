package config

import (
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// FeatureFlags holds runtime switches for optional subsystems. Core ledger
// behaviour (check-in, XP, submissions) is never behind a flag.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature is a single switch.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Known feature names.
const (
	// Redis leaderboard cache; when off every read goes to PostgreSQL.
	FeatureLeaderboardCache = "leaderboard.cache"

	// Automatic badge awards on XP credit.
	FeatureBadgeAwards = "badges.auto_award"

	// Worker job recomputing cached progress columns.
	FeatureReconcileProgress = "worker.reconcile_progress"

	// Check-in dates must be "today" in some time zone.
	FeatureCheckinDateWindow = "checkin.date_window"
)

func defaultFeatures() []Feature {
	return []Feature{
		{Name: FeatureLeaderboardCache, Description: "Serve the leaderboard from Redis", Enabled: true},
		{Name: FeatureBadgeAwards, Description: "Award badges when XP crosses a threshold", Enabled: true},
		{Name: FeatureReconcileProgress, Description: "Recompute cached progress in the worker", Enabled: true},
		{Name: FeatureCheckinDateWindow, Description: "Reject check-in dates outside today", Enabled: false},
	}
}

// NewFeatureFlags returns the defaults.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature)}
	for _, f := range defaultFeatures() {
		f := f
		ff.features[f.Name] = &f
	}
	return ff
}

// loadFeatureFlags applies overrides from v.
// Format: FEATURE_<NAME>=true|false, e.g. FEATURE_LEADERBOARD_CACHE=false.
func loadFeatureFlags(v *viper.Viper) *FeatureFlags {
	ff := NewFeatureFlags()
	for name, f := range ff.features {
		key := featureKey(name)
		if v.IsSet(key) {
			f.Enabled = v.GetBool(key)
		}
	}
	return ff
}

// featureKey converts "leaderboard.cache" to the viper key
// "feature.leaderboard_cache", which binds to FEATURE_LEADERBOARD_CACHE.
func featureKey(name string) string {
	return "feature." + strings.ReplaceAll(name, ".", "_")
}

// IsEnabled reports whether the feature is on. Unknown features are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	f, ok := ff.features[name]
	return ok && f.Enabled
}

// Set toggles a known feature.
func (ff *FeatureFlags) Set(name string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	f, ok := ff.features[name]
	if !ok {
		return ErrFeatureNotFound
	}
	f.Enabled = enabled
	return nil
}

// All returns copies of all features ordered by name.
func (ff *FeatureFlags) All() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}

var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}
