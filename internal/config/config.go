// Package config resolves option values from TOML files, environment
// variables, and CLI flags, and reloads watched files at runtime.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dmtar/camgate/internal/logging"
)

// EnvPrefix is prepended to the env tag of every option field.
const EnvPrefix = "CAMGATE_"

// Load fills opts with proper precedence: CLI args > env vars > config
// file. Flags the user set explicitly on cmd are never overwritten.
// opts must be a pointer to a struct whose fields carry toml and env
// tags; a field named Config supplies the file path.
func Load(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := changedFlags(cmd)

	var path string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		path = f.String()
	}

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var file map[string]any
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse config %s: %w", path, err)
			}
			for i := 0; i < v.NumField(); i++ {
				field := t.Field(i)
				if changed[flagName(field.Name)] {
					continue
				}
				key := field.Tag.Get("toml")
				if key == "" {
					continue
				}
				if value := lookupPath(file, key); value != nil {
					assign(v.Field(i), value)
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if changed[flagName(field.Name)] {
			continue
		}
		key := field.Tag.Get("env")
		if key == "" {
			continue
		}
		if raw := os.Getenv(EnvPrefix + key); raw != "" {
			assignString(v.Field(i), raw)
		}
	}

	return nil
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

// flagName converts a field name to its kebab-case flag name, so
// OperationTimeout matches --operation-timeout.
func flagName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookupPath walks a dotted key through nested TOML tables.
func lookupPath(table map[string]any, key string) any {
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := table[part].(map[string]any)
		if !ok {
			return nil
		}
		table = next
	}
	return table[parts[len(parts)-1]]
}

func assign(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		arr, ok := value.([]any)
		if !ok {
			return
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		field.Set(reflect.ValueOf(out))
	}
}

func assignString(field reflect.Value, raw string) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(raw, ",")
		out := make([]string, len(parts))
		for i, part := range parts {
			out[i] = strings.TrimSpace(part)
		}
		field.Set(reflect.ValueOf(out))
	}
}

// LoadLogging reads the [logging] table from a TOML file. Missing or
// unreadable files yield the defaults. Keys other than level and format
// are treated as per-module level overrides.
func LoadLogging(path string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	var file struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return cfg
	}

	for key, value := range file.Logging {
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
