// Package config loads grabnode options from flags, the environment and a
// TOML file, and watches files for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/grabnode/internal/logging"
)

// EnvPrefix is prepended to every `env` tag.
const EnvPrefix = "GRABNODE_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills the struct pointed to by opts with precedence
// CLI flags > environment > TOML file. The file path is read from a field
// named Config. Fields map to the file through `toml:"section.key"` tags and
// to the environment through `env:"KEY"` tags. Flags changed on cmd are
// left untouched. Values that do not convert are reported together.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := changedFlags(cmd)

	file, err := readTable(v)
	if err != nil {
		return err
	}

	var errs []error
	for i := range v.NumField() {
		sf := t.Field(i)
		if changed[fieldNameToFlag(sf.Name)] {
			continue
		}

		if key := sf.Tag.Get("toml"); key != "" {
			if raw, ok := lookup(file, key); ok {
				if err := assign(v.Field(i), raw); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", key, err))
				}
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if raw, ok := os.LookupEnv(EnvPrefix + key); ok && raw != "" {
				if err := assign(v.Field(i), raw); err != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

// readTable decodes the file named by the Config field. A missing file is empty.
func readTable(v reflect.Value) (map[string]any, error) {
	f := v.FieldByName("Config")
	if !f.IsValid() || f.Kind() != reflect.String || f.String() == "" {
		return nil, nil
	}

	data, err := os.ReadFile(f.String())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var table map[string]any
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return table, nil
}

// fieldNameToFlag converts a struct field name to its kebab-case flag,
// keeping acronyms together: "LoggingLevel" -> "logging-level",
// "NATSEmbedded" -> "nats-embedded", "LoggingAPI" -> "logging-api".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookup resolves a dotted key in a decoded TOML table.
func lookup(table map[string]any, key string) (any, bool) {
	if table == nil {
		return nil, false
	}
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := table[part].(map[string]any)
		if !ok {
			return nil, false
		}
		table = next
	}
	raw, ok := table[parts[len(parts)-1]]
	return raw, ok
}

// assign stores raw in field. raw is either an environment string or a
// decoded TOML value; TOML scalars are converted through their string form.
func assign(field reflect.Value, raw any) error {
	if !field.CanSet() {
		return nil
	}

	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
		var items []string
		switch val := raw.(type) {
		case []any:
			for _, item := range val {
				items = append(items, fmt.Sprint(item))
			}
		case string:
			for _, part := range strings.Split(val, ",") {
				items = append(items, strings.TrimSpace(part))
			}
		default:
			return fmt.Errorf("cannot use %T as a list", raw)
		}
		field.Set(reflect.ValueOf(items))
		return nil
	}

	text, ok := raw.(string)
	if !ok {
		switch raw.(type) {
		case bool, int64, float64:
			text = fmt.Sprint(raw)
		default:
			return fmt.Errorf("cannot use %T for %s", raw, field.Type())
		}
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(text)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(text)
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of a TOML file. Keys other than
// level and format are module levels. A missing or malformed file yields the
// defaults.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
