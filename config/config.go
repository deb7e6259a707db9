// Package config loads the client and stub-server configuration from YAML
// files layered with environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath       = "."
	defaultSampleRate = 16000
	defaultChannels   = 1
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	// Server points the client at the voice-authentication backend.
	Server struct {
		BaseURL string        `json:"baseUrl" yaml:"baseUrl" validate:"required,url"`
		Timeout time.Duration `json:"timeout" yaml:"timeout"`
	} `json:"server" yaml:"server"`

	// Capture configures the audio source and the enrollment flow.
	Capture CaptureConfig `json:"capture" yaml:"capture"`

	// Storage locates the client's only durable state.
	Storage struct {
		StateDir string `json:"stateDir" yaml:"stateDir" validate:"required"`
	} `json:"storage" yaml:"storage"`

	// Stub configures the development stub server; absent for the client.
	Stub *StubConfig `json:"stub" yaml:"stub"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// CaptureConfig defines the audio capture source and enrollment rules.
type CaptureConfig struct {
	// Source selects the capture device: "synth" for the paced tone
	// generator, "file" to replay SourcePath.
	Source     string `json:"source" yaml:"source" validate:"omitempty,oneof=synth file"`
	SourcePath string `json:"sourcePath" yaml:"sourcePath"`

	SampleRate int `json:"sampleRate" yaml:"sampleRate" validate:"omitempty,gt=0"`
	Channels   int `json:"channels" yaml:"channels" validate:"omitempty,gt=0"`

	// MinEnrollmentRecordings mirrors the server's enrollment-file minimum.
	MinEnrollmentRecordings int `json:"minEnrollmentRecordings" yaml:"minEnrollmentRecordings" validate:"omitempty,gt=0"`
}

// StubConfig defines the development stub server.
type StubConfig struct {
	Port      int    `json:"port" yaml:"port" validate:"gt=0"`
	JWTSecret string `json:"jwtSecret" yaml:"jwtSecret" validate:"required"`

	AccessTTL     time.Duration `json:"accessTtl" yaml:"accessTtl"`
	PreAuthTTL    time.Duration `json:"preAuthTtl" yaml:"preAuthTtl"`
	EnrollmentTTL time.Duration `json:"enrollmentTtl" yaml:"enrollmentTtl"`

	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`
}

// LoadWithEnv loads .yaml files through koanf, overlaying environment
// variables on top of the file's values.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to a path and align each segment with
			// existing YAML keys, e.g. SERVER_BASEURL -> server.baseUrl.
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

// New loads, defaults and validates the configuration.
func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = 30 * time.Second
	}
	if cfg.Capture.Source == "" {
		cfg.Capture.Source = "synth"
	}
	if cfg.Capture.SampleRate <= 0 {
		cfg.Capture.SampleRate = defaultSampleRate
	}
	if cfg.Capture.Channels <= 0 {
		cfg.Capture.Channels = defaultChannels
	}
	if cfg.Capture.MinEnrollmentRecordings <= 0 {
		cfg.Capture.MinEnrollmentRecordings = 3
	}
	if cfg.Storage.StateDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.StateDir = filepath.Join(home, ".voiceid")
		}
	}
	if cfg.Stub != nil {
		if cfg.Stub.AccessTTL <= 0 {
			cfg.Stub.AccessTTL = 30 * time.Minute
		}
		if cfg.Stub.PreAuthTTL <= 0 {
			cfg.Stub.PreAuthTTL = 5 * time.Minute
		}
		if cfg.Stub.EnrollmentTTL <= 0 {
			cfg.Stub.EnrollmentTTL = 15 * time.Minute
		}
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
