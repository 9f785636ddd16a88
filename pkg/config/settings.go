package config

import (
	"reflect"
	"time"
)

// Setting keys, as used by providers.
const (
	KeyAnalyseProtected      = "analyse-protected"
	KeyAnalysePrivate        = "analyse-private"
	KeyAnalyseGetter         = "analyse-getter"
	KeyAnalyseTraversable    = "analyse-traversable"
	KeyAnalyseConstants      = "analyse-constants"
	KeyAnalyseScalar         = "analyse-scalar"
	KeyArrayCountLimit       = "array-count-limit"
	KeyMaxNestingLevel       = "max-nesting-level"
	KeyMaxRuntime            = "max-runtime"
	KeyMemoryLeft            = "memory-left"
	KeyMemoryLimit           = "memory-limit"
	KeyMaxStringLength       = "max-string-length"
	KeyMaxTraversableEntries = "max-traversable-entries"
	KeyDebugMethods          = "debug-methods"
	KeyGetterPrefixes        = "getter-prefixes"
	KeyGetterBareNames       = "getter-bare-names"
	KeyGetterInvoke          = "getter-invoke"
	KeyBlacklistClasses      = "debug-blacklist-classes"
	KeyBlacklistMethods      = "debug-blacklist-methods"
)

// Keys lists every known setting key in a stable order.
var Keys = []string{
	KeyAnalyseProtected,
	KeyAnalysePrivate,
	KeyAnalyseGetter,
	KeyAnalyseTraversable,
	KeyAnalyseConstants,
	KeyAnalyseScalar,
	KeyArrayCountLimit,
	KeyMaxNestingLevel,
	KeyMaxRuntime,
	KeyMemoryLeft,
	KeyMemoryLimit,
	KeyMaxStringLength,
	KeyMaxTraversableEntries,
	KeyDebugMethods,
	KeyGetterPrefixes,
	KeyGetterBareNames,
	KeyGetterInvoke,
	KeyBlacklistClasses,
	KeyBlacklistMethods,
}

// Settings is the read-only configuration of an analysis session.
type Settings struct {
	AnalyseProtected   bool `json:"analyse-protected" yaml:"analyse-protected" mapstructure:"analyse-protected"`
	AnalysePrivate     bool `json:"analyse-private" yaml:"analyse-private" mapstructure:"analyse-private"`
	AnalyseGetter      bool `json:"analyse-getter" yaml:"analyse-getter" mapstructure:"analyse-getter"`
	AnalyseTraversable bool `json:"analyse-traversable" yaml:"analyse-traversable" mapstructure:"analyse-traversable"`
	AnalyseConstants   bool `json:"analyse-constants" yaml:"analyse-constants" mapstructure:"analyse-constants"`
	AnalyseScalar      bool `json:"analyse-scalar" yaml:"analyse-scalar" mapstructure:"analyse-scalar"`

	// ArrayCountLimit is the entry count above which collections are rendered
	// through the simplified path.
	ArrayCountLimit int `json:"array-count-limit" yaml:"array-count-limit" mapstructure:"array-count-limit"`
	MaxLevel        int `json:"max-nesting-level" yaml:"max-nesting-level" mapstructure:"max-nesting-level"`

	MaxRuntime time.Duration `json:"max-runtime" yaml:"max-runtime" mapstructure:"max-runtime"`
	// MemoryLeft is the head room in MiB that must stay free below the memory limit.
	MemoryLeft int `json:"memory-left" yaml:"memory-left" mapstructure:"memory-left"`
	// MemoryLimit in MiB is used when the runtime has no soft limit (GOMEMLIMIT).
	// Zero disables the memory check in that case.
	MemoryLimit int `json:"memory-limit" yaml:"memory-limit" mapstructure:"memory-limit"`

	MaxStringLength       int `json:"max-string-length" yaml:"max-string-length" mapstructure:"max-string-length"`
	MaxTraversableEntries int `json:"max-traversable-entries" yaml:"max-traversable-entries" mapstructure:"max-traversable-entries"`

	DebugMethods    []string `json:"debug-methods" yaml:"debug-methods" mapstructure:"debug-methods"`
	GetterPrefixes  []string `json:"getter-prefixes" yaml:"getter-prefixes" mapstructure:"getter-prefixes"`
	GetterBareNames bool     `json:"getter-bare-names" yaml:"getter-bare-names" mapstructure:"getter-bare-names"`
	GetterInvoke    bool     `json:"getter-invoke" yaml:"getter-invoke" mapstructure:"getter-invoke"`

	BlacklistClasses []string            `json:"debug-blacklist-classes" yaml:"debug-blacklist-classes" mapstructure:"debug-blacklist-classes"`
	BlacklistMethods map[string][]string `json:"debug-blacklist-methods" yaml:"debug-blacklist-methods" mapstructure:"debug-blacklist-methods"`
}

// Defaults returns the compiled-in settings.
func Defaults() Settings {
	return Settings{
		AnalyseProtected:      false,
		AnalysePrivate:        false,
		AnalyseGetter:         true,
		AnalyseTraversable:    true,
		AnalyseConstants:      true,
		AnalyseScalar:         true,
		ArrayCountLimit:       300,
		MaxLevel:              5,
		MaxRuntime:            60 * time.Second,
		MemoryLeft:            64,
		MemoryLimit:           0,
		MaxStringLength:       50,
		MaxTraversableEntries: 10000,
		DebugMethods:          []string{"DebugInfo", "GoString", "String", "ToMap"},
		GetterPrefixes:        []string{"Get", "Is", "Has"},
		GetterBareNames:       true,
		GetterInvoke:          true,
		BlacklistClasses:      []string{"reflect.Value", "*reflect.rtype"},
		BlacklistMethods:      map[string][]string{},
	}
}

// WithDefaults fills the limits a provider would reject as zero from
// Defaults and keeps every other field. The zero Settings becomes Defaults.
func (s Settings) WithDefaults() Settings {
	d := Defaults()
	if reflect.ValueOf(s).IsZero() {
		return d
	}
	if s.ArrayCountLimit == 0 {
		s.ArrayCountLimit = d.ArrayCountLimit
	}
	if s.MaxLevel == 0 {
		s.MaxLevel = d.MaxLevel
	}
	if s.MaxRuntime == 0 {
		s.MaxRuntime = d.MaxRuntime
	}
	if s.MaxStringLength == 0 {
		s.MaxStringLength = d.MaxStringLength
	}
	if s.MaxTraversableEntries == 0 {
		s.MaxTraversableEntries = d.MaxTraversableEntries
	}
	return s
}

// Blacklist builds the debug call blacklist described by the settings.
func (s Settings) Blacklist() *Blacklist {
	b := NewBlacklist()
	for _, c := range s.BlacklistClasses {
		b.AddClass(c)
	}
	for class, methods := range s.BlacklistMethods {
		for _, m := range methods {
			b.AddMethod(class, m)
		}
	}
	return b
}
