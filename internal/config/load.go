package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Lookup resolves an environment variable.
type Lookup func(key string) (string, bool)

// Load reads the YAML file at path over the defaults, then applies .env
// files and the process environment. A missing file is not an error.
func Load(path string) (Config, error) {
	dotenv, err := readEnvFiles()
	if err != nil {
		return Config{}, fmt.Errorf("load environment files: %w", err)
	}
	return LoadWith(path, chain(os.LookupEnv, mapLookup(dotenv)))
}

// LoadWith is Load with an explicit environment.
func LoadWith(path string, env Lookup) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg, env)
	resolveAPIKey(&cfg.LLM, env)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readEnvFiles reads .env files without touching the process environment:
// ENV_FILE alone if set, otherwise .env.local over .env.
func readEnvFiles() (map[string]string, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		return readEnvFile(envFile)
	}

	merged, err := readEnvFile(".env")
	if err != nil {
		return nil, err
	}
	local, err := readEnvFile(".env.local")
	if err != nil {
		return nil, err
	}
	for k, v := range local {
		merged[k] = v
	}
	return merged, nil
}

func readEnvFile(name string) (map[string]string, error) {
	vals, err := godotenv.Read(name)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return vals, nil
}

func mapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// chain returns the first non-empty value among lookups.
func chain(lookups ...Lookup) Lookup {
	return func(key string) (string, bool) {
		for _, l := range lookups {
			if v, ok := l(key); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// providerKeyVars lists the conventional key variables per provider,
// consulted after GOLDMINE_LLM_API_KEY and the config file.
var providerKeyVars = map[string][]string{
	"claude":    {"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"grok":      {"XAI_API_KEY"},
}

func resolveAPIKey(llm *LLMConfig, env Lookup) {
	if llm.APIKey == "" {
		llm.APIKey = lookupKey(llm.Provider, env)
	}

	llm.fallbackKeys = make(map[string]string, len(llm.Fallbacks))
	for _, name := range llm.Fallbacks {
		if key := lookupKey(name, env); key != "" {
			llm.fallbackKeys[name] = key
		}
	}
}

func lookupKey(provider string, env Lookup) string {
	for _, name := range providerKeyVars[provider] {
		if v, ok := env(name); ok && v != "" {
			return v
		}
	}
	return ""
}

// applyEnvOverrides walks cfg and sets every field with an `env` tag whose
// variable is set.
func applyEnvOverrides(cfg any, env Lookup) {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	applyEnvToStruct(v, env)
}

func applyEnvToStruct(v reflect.Value, env Lookup) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			applyEnvToStruct(field, env)
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		if val, ok := env(name); ok && val != "" {
			setFieldFromString(field, val)
		}
	}
}

func setFieldFromString(field reflect.Value, val string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(val); err == nil {
				field.SetInt(int64(d))
			}
		} else if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			field.SetInt(i)
		}

	case reflect.Bool:
		if b, err := strconv.ParseBool(val); err == nil {
			field.SetBool(b)
		}

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(val, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}
}
