package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/probe/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads every known key from p on top of Defaults.
// Absent keys keep the default. Rejected values keep the default too and are
// reported in the returned *AggregateError; the Settings are usable either way.
func Load(p ports.SettingsProvider) (Settings, error) {
	s := Defaults()
	if p == nil {
		return s, nil
	}

	var errs []error
	for _, key := range Keys {
		raw, ok := p.Setting(key)
		if !ok || raw == nil {
			continue
		}
		candidate := s
		if err := decode(key, raw, &candidate); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: raw})
			continue
		}
		if err := validate(key, candidate); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: raw})
			continue
		}
		s = candidate
	}

	if len(errs) > 0 {
		return s, &AggregateError{Errors: errs}
	}
	return s, nil
}

func decode(key string, raw any, out *Settings) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsHook,
			blacklistHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any{key: raw})
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsHook turns bare numbers into seconds and parses duration strings.
func secondsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case uint64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		v = strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
		return time.ParseDuration(v)
	}
	return data, nil
}

var blacklistType = reflect.TypeOf(map[string][]string{})

// blacklistHook accepts the flat form "type:Method, type:Method" used by
// string based providers (environment, Redis).
func blacklistHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok || to != blacklistType {
		return data, nil
	}
	out := map[string][]string{}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		i := strings.LastIndex(entry, ":")
		if i <= 0 || i == len(entry)-1 {
			return nil, fmt.Errorf("entry %q is not of the form type:Method", entry)
		}
		class, method := entry[:i], entry[i+1:]
		out[class] = append(out[class], method)
	}
	return out, nil
}

func validate(key string, s Settings) error {
	switch key {
	case KeyArrayCountLimit:
		return atLeast(s.ArrayCountLimit, 1)
	case KeyMaxNestingLevel:
		return atLeast(s.MaxLevel, 1)
	case KeyMaxStringLength:
		return atLeast(s.MaxStringLength, 1)
	case KeyMaxTraversableEntries:
		return atLeast(s.MaxTraversableEntries, 1)
	case KeyMemoryLeft:
		return atLeast(s.MemoryLeft, 0)
	case KeyMemoryLimit:
		return atLeast(s.MemoryLimit, 0)
	case KeyMaxRuntime:
		if s.MaxRuntime <= 0 {
			return errors.New("must be a positive duration")
		}
	case KeyDebugMethods:
		return identifiers(s.DebugMethods)
	case KeyGetterPrefixes:
		return identifiers(s.GetterPrefixes)
	case KeyBlacklistMethods:
		for _, methods := range s.BlacklistMethods {
			if err := identifiers(methods); err != nil {
				return err
			}
		}
	}
	return nil
}

func atLeast(v, lower int) error {
	if v < lower {
		return fmt.Errorf("must be at least %d", lower)
	}
	return nil
}

func identifiers(names []string) error {
	for i, n := range names {
		n = strings.TrimSpace(n)
		if !identifier.MatchString(n) {
			return fmt.Errorf("%q is not a method name", n)
		}
		names[i] = n
	}
	return nil
}
