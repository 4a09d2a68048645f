package sensei

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeSettings decodes loosely typed settings into out, which must be a
// pointer to a struct with mapstructure tags. Numbers are accepted for
// time.Duration fields and read as seconds; strings are parsed with
// time.ParseDuration unless they are plain integers.
func DecodeSettings(settings map[string]any, out any) error {
	_, err := DecodeSettingsReport(settings, out)

	return err
}

// DecodeSettingsReport is DecodeSettings that also returns the keys of
// settings that matched no field of out, sorted.
func DecodeSettingsReport(settings map[string]any, out any) ([]string, error) {
	var meta mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Metadata:         &meta,
		Result:           out,
	})
	if err != nil {
		return nil, fmt.Errorf("creating settings decoder: %w", err)
	}

	err = decoder.Decode(settings)
	if err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	sort.Strings(meta.Unused)

	return meta.Unused, nil
}

func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}

	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(n) * time.Second, nil
		}
	}

	return data, nil
}
