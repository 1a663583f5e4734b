package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles for the matching service.
// Supports gradual rollout and per-user overrides for debugging.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID string
}

// Predefined feature flag names.
const (
	// === Notification Features ===
	FeatureNotifySMS   = "notify.sms"   // SMS delivery via Twilio
	FeatureNotifyEmail = "notify.email" // Email delivery via SendGrid

	// === Matching Features ===
	FeatureMatchingAutoCancel        = "matching.auto_cancel"        // Auto-cancel unconfirmed same-day matches
	FeatureMatchingVolunteerFallback = "matching.volunteer_fallback" // Route deadline users to volunteers
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureNotifySMS] = &Feature{
		Name:           FeatureNotifySMS,
		Description:    "Send SMS notifications via Twilio",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyEmail] = &Feature{
		Name:           FeatureNotifyEmail,
		Description:    "Send email notifications via SendGrid",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureMatchingAutoCancel] = &Feature{
		Name:           FeatureMatchingAutoCancel,
		Description:    "Cancel unconfirmed same-day matches at the cutoff hour",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureMatchingVolunteerFallback] = &Feature{
		Name:           FeatureMatchingVolunteerFallback,
		Description:    "Route users near their last slot to a volunteer call",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment applies environment overrides.
// FEATURE_NOTIFY_SMS=false disables "notify.sms", etc.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))

		if val := os.Getenv(envKey); val != "" {
			if enabled, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = enabled
				if enabled && feature.RolloutPercent == 0 {
					feature.RolloutPercent = 100
				}
			}
		}

		if val := os.Getenv(envKey + "_ROLLOUT"); val != "" {
			if pct, err := strconv.Atoi(val); err == nil && pct >= 0 && pct <= 100 {
				feature.RolloutPercent = pct
			}
		}
	}
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(name string, ctx FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx.UserID != "" {
		if overrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := overrides[name]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[name]
	if !ok || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent >= 100 {
		return true
	}
	if feature.RolloutPercent <= 0 {
		return false
	}
	if ctx.UserID == "" {
		return false
	}

	return userBucket(ctx.UserID, name) < feature.RolloutPercent
}

// SetUserOverride forces a feature on or off for a single user.
func (ff *FeatureFlags) SetUserOverride(userID, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.userOverrides[userID] == nil {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][name] = enabled
}

// userBucket deterministically maps a user to a 0-99 rollout bucket.
func userBucket(userID, feature string) int {
	h := fnv.New32a()
	h.Write([]byte(feature))
	h.Write([]byte(":"))
	h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}
