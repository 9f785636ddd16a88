package ports

import "reflect"

// SettingsProvider looks up a named setting.
// The boolean is false when the provider does not know the setting, in which
// case the compiled-in default applies.
type SettingsProvider interface {
	Setting(name string) (any, bool)
}

// BlacklistProvider is consulted before any debug method or getter is invoked.
type BlacklistProvider interface {
	IsAllowedDebugCall(t reflect.Type, method string) bool
}
