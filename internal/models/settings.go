package models

import "strings"

type Provider string

const (
	ProviderNone      Provider = "none"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderVADER     Provider = "vader"
)

type ThresholdTier string

const (
	TierAggressive ThresholdTier = "aggressive"
	TierCautious   ThresholdTier = "cautious"
	TierDefault    ThresholdTier = "default"
)

const (
	AggressiveThreshold = 0.7
	CautiousThreshold   = 0.3
	DefaultThreshold    = 0.5
)

// Storage keys shared by every settings backend.
const (
	SettingsKeyProvider   = "apiChoice"
	SettingsKeyCredential = "apiKey"
	SettingsKeyThreshold  = "threshold"
)

type Settings struct {
	Provider      Provider      `json:"apiChoice" dynamodbav:"apiChoice"`
	Credential    string        `json:"apiKey" dynamodbav:"apiKey"`
	ThresholdTier ThresholdTier `json:"threshold" dynamodbav:"threshold"`
}

func DefaultSettings() Settings {
	return Settings{
		Provider:      ProviderNone,
		ThresholdTier: TierDefault,
	}
}

// ParseProvider maps a stored value onto a known provider, anything else is
// ProviderNone.
func ParseProvider(v string) Provider {
	switch p := Provider(strings.ToLower(strings.TrimSpace(v))); p {
	case ProviderOpenAI, ProviderAnthropic, ProviderVADER:
		return p
	default:
		return ProviderNone
	}
}

func ParseThresholdTier(v string) ThresholdTier {
	switch t := ThresholdTier(strings.ToLower(strings.TrimSpace(v))); t {
	case TierAggressive, TierCautious:
		return t
	default:
		return TierDefault
	}
}

// Normalize coerces missing or unknown values to their defaults.
func (s Settings) Normalize() Settings {
	return Settings{
		Provider:      ParseProvider(string(s.Provider)),
		Credential:    strings.TrimSpace(s.Credential),
		ThresholdTier: ParseThresholdTier(string(s.ThresholdTier)),
	}
}

// ResolveThreshold never fails: unknown tiers resolve to DefaultThreshold.
func ResolveThreshold(tier ThresholdTier) float64 {
	switch ParseThresholdTier(string(tier)) {
	case TierAggressive:
		return AggressiveThreshold
	case TierCautious:
		return CautiousThreshold
	default:
		return DefaultThreshold
	}
}

func (s Settings) Threshold() float64 {
	return ResolveThreshold(s.ThresholdTier)
}
