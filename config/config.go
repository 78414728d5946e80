package config

import (
	_ "embed"
	"fmt"
	"os"
	"os/user"
	"path"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/airpnp/airpnp/fileutils"
)

//go:embed airpnp.yaml
var defaultConfig []byte

// Config is a nested key/value view over the YAML configuration file.
// All keys are lowercased on load.
type Config struct {
	path   string
	mutex  sync.Mutex
	config map[string]interface{}
}

var _CONFIG *Config

const envConfigFile = "AIRPNP_CONFIG"
const envPrefix = "AIRPNP_CONFIG__"

// LoadConfig loads a configuration file from the given path or a default
// location.
//
// It prioritizes paths in this order:
//   - the provided path,
//   - the file specified by the environment variable AIRPNP_CONFIG,
//   - the .airpnp.yml file in the current directory,
//   - the .airpnp.yml file in the user's home directory.
//
// If none of these can be read, the embedded default configuration is used.
// Starting with no configuration file at all is a supported mode: every
// value then comes from the embedded defaults and AIRPNP_CONFIG__ overrides.
func LoadConfig(filename string) *Config {
	var data []byte
	var err error
	var cfg = &Config{}

	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	path := filename

	if path != "" {
		log.Infof("✅ Trying to load config %s", path)
		data, err = os.ReadFile(path)
		if err != nil {
			log.Warnf("❌ cannot read config file %s", path)
			path = ""
		}
	}

	if path == "" {
		path = os.Getenv(envConfigFile)
		if path != "" {
			log.Infof("✅ Trying to load config specified in env var %s", envConfigFile)
			data, err = os.ReadFile(path)
			if err != nil {
				log.Warnf("❌ cannot read config file %s specified in env var %s", path, envConfigFile)
				path = ""
			}
		}
	}

	if path == "" {
		path = ".airpnp.yml"
		data, err = os.ReadFile(path)
		if err != nil {
			path = ""
		}
	}

	if path == "" {
		path = getHomeYmlPath()
		data, err = os.ReadFile(path)
		if err != nil {
			path = ""
		}
	}

	if path == "" {
		log.Infof("✅ Using default embedded config")
		data = defaultConfig
	}

	if err := yaml.Unmarshal(data, &cfg.config); err != nil {
		log.Panicf("invalid YAML config: %v", err)
	}

	cfg.config = lowerKeysMap(cfg.config)

	applyEnvOverrides(cfg)

	cfg.path = path
	return cfg
}

// Save writes the configuration back to the file it was loaded from.
// A config that came from the embedded defaults has no backing file
// and is not persisted.
func (cfg *Config) Save() error {
	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	if cfg.path == "" || !fileutils.IsWriteable(cfg.path) {
		return nil
	}

	cfg.config = lowerKeysMap(cfg.config)

	data, err := yaml.Marshal(cfg.config)
	if err != nil {
		return err
	}

	return os.WriteFile(cfg.path, data, 0644)
}

func (cfg *Config) SetValue(path []string, value interface{}) {
	cfg.mutex.Lock()
	cfg.setValue(path, value)
	cfg.mutex.Unlock()
	cfg.Save()
}

func (cfg *Config) GetValue(path []string) (interface{}, error) {
	cfg.mutex.Lock()
	defer cfg.mutex.Unlock()

	current := cfg.config
	for i, key := range path {
		key = strings.ToLower(key)

		next, ok := current[key]
		if !ok {
			return nil, fmt.Errorf("path %s does not exist", strings.Join(path[:i+1], "."))
		}
		if i < len(path)-1 {
			current, ok = next.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("path %s is not a Config", strings.Join(path[:i+1], "."))
			}
			continue
		}
		return next, nil
	}
	return nil, fmt.Errorf("path %s does not exist", strings.Join(path[:], "."))
}

// setValue sets a value in a nested map[string]interface{} at the given
// path. Callers hold cfg.mutex.
func (cfg *Config) setValue(path []string, value interface{}) {
	current := cfg.config
	for i, key := range path {
		key = strings.ToLower(key)
		if i == len(path)-1 {
			current[key] = value
			return
		}
		// ensure intermediate maps exist
		if _, ok := current[key]; !ok {
			current[key] = make(map[string]interface{})
		}
		next, ok := current[key].(map[string]interface{})
		if !ok {
			// If the path conflicts with a non-object, overwrite it
			next = make(map[string]interface{})
			current[key] = next
		}
		current = next
	}
}

func getHomeYmlPath() string {
	usr, err := user.Current()
	if err != nil {
		return ""
	}
	return path.Join(usr.HomeDir, ".airpnp.yml")
}

func applyEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}

		// Split env var into key and value
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		keyPath := strings.Split(strings.TrimPrefix(parts[0], envPrefix), "__")
		value := parts[1]

		overrideConfig(cfg, keyPath, value)
	}
}

func convertYAMLScalar(s string) interface{} {
	var out interface{}
	err := yaml.Unmarshal([]byte(s), &out)
	if err != nil {
		// fallback: keep string if parsing failed
		return s
	}
	return out
}

func overrideConfig(cfg *Config, keyPath []string, value string) {
	iv := convertYAMLScalar(value)
	cfg.setValue(keyPath, iv)
}

func lowerKeysMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range m {
		lk := strings.ToLower(k)
		switch vv := v.(type) {
		case map[string]interface{}:
			out[lk] = lowerKeysMap(vv)
		default:
			out[lk] = v
		}
	}
	return out
}

func GetConfig() *Config {
	if _CONFIG == nil {
		_CONFIG = LoadConfig("")
	}

	return _CONFIG
}
