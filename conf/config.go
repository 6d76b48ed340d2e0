package conf

/*
   Package conf wraps viper for the HealthSim applications. Configuration is
   sourced from an env-format file when one is present (local development)
   and falls back to process environment variables otherwise (deployed
   environments).

   Assumptions:
   1. The configuration file is an env file.
   2. The configuration file, once made available to the application, stays
   immutable during the uptime of the application (exception is test).
*/

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// The viper instance backing the package. Reached only through GetEnv,
// SetEnv and the other exported helpers.
var envVars viper.Viper

// Tracks whether a config file was found and loaded.
const (
	configgood    uint8 = 0
	configbad     uint8 = 1
	noconfigfound uint8 = 2
)

var state = configgood

func setup(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("local")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	// Viper is lazy, do the read and parse of the config file now.
	if err := v.ReadInConfig(); err != nil {
		state = configbad
	}
	return v
}

func init() {
	// Possible config file locations: local development and container builds.
	locations := []string{
		"../shared_files/decrypted",
		"/go/src/github.com/mark64oswald/healthsim-core/shared_files/decrypted",
	}

	if found, loc := findEnv(locations); found {
		envVars = *setup(loc)
	} else {
		state = noconfigfound
	}
}

func findEnv(locations []string) (bool, string) {
	for _, loc := range locations {
		if _, err := os.Stat(loc + "/local.env"); err == nil {
			return true, loc
		}
	}
	return false, ""
}

// GetEnv retrieves the value stored in conf. If it does not exist, an empty
// string is returned.
func GetEnv(key string) string {
	if state == configgood {
		if value := envVars.GetString(key); value != "" {
			return value
		}
	}
	// Either the config file is not tracking the variable or no config file
	// was found; check the environment.
	return os.Getenv(key)
}

// LookupEnv mirrors os.LookupEnv on top of the conf layering.
func LookupEnv(key string) (string, bool) {
	if state == configgood && envVars.IsSet(key) {
		return envVars.GetString(key), true
	}
	return os.LookupEnv(key)
}

// SetEnv sets a key/value pair. The *testing.T parameter guards against use
// outside of tests.
func SetEnv(_ *testing.T, key, value string) error {
	if state == configgood {
		envVars.Set(key, value)
		return nil
	}
	return os.Setenv(key, value)
}

// UnsetEnv removes a key/value pair.
func UnsetEnv(_ *testing.T, key string) error {
	if state == configgood {
		envVars.Set(key, "")
	}
	return os.Unsetenv(key)
}

// Checkout populates the fields of the provided struct pointer from
// configuration values. Fields are matched by their `conf` tag; a
// `conf_default` tag supplies the value when the variable is unset.
// Nested structs tagged `conf:",squash"` are flattened.
func Checkout(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errors.New("conf: Checkout requires a pointer to a struct")
	}

	values := map[string]interface{}{}
	gather(rv.Elem().Type(), values)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "conf",
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(values)
}

func gather(t reflect.Type, values map[string]interface{}) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("conf")
		if strings.Contains(tag, "squash") && field.Type.Kind() == reflect.Struct {
			gather(field.Type, values)
			continue
		}
		key := strings.Split(tag, ",")[0]
		if key == "" || key == "-" {
			continue
		}
		value := GetEnv(key)
		if value == "" {
			value = field.Tag.Get("conf_default")
		}
		if value == "" {
			continue
		}
		values[key] = value
	}
}

// GetEnvInt retrieves an integer configuration value, returning defaultVal
// when the variable is unset or unparseable.
func GetEnvInt(key string, defaultVal int) int {
	if v := GetEnv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
