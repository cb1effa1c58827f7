package core

import "strings"

// DeliveryLocationResolver fills in the configured default delivery location.
type DeliveryLocationResolver struct {
	settings SettingsSource
}

func NewDeliveryLocationResolver(settings SettingsSource) *DeliveryLocationResolver {
	return &DeliveryLocationResolver{settings: settings}
}

// Resolve returns input when it is non-blank, otherwise the configured default.
func (r *DeliveryLocationResolver) Resolve(input string) string {
	if strings.TrimSpace(input) != "" {
		return input
	}
	if r.settings == nil {
		return ""
	}
	return r.settings.Current().DeliveryLocation
}
