package config

// Typed accessors over the nested configuration map. Each getter falls
// back on the embedded default when the key is missing or has the wrong
// shape, so an empty configuration always yields a runnable bridge.

func (conf *Config) GetLogLevel() string {
	return conf.getString([]string{"log", "level"}, "info")
}

func (conf *Config) GetInterface() string {
	return conf.getString([]string{"host", "interface"}, "")
}

// GetBasePort returns the first TCP port used for per-renderer AirPlay
// servers. Subsequent renderers get the next free port upward.
func (conf *Config) GetBasePort() int {
	return conf.getInt([]string{"bridge", "base_port"}, 22555)
}

// GetSearchInterval returns the period, in seconds, between active
// SSDP M-SEARCH rounds.
func (conf *Config) GetSearchInterval() int {
	return conf.getInt([]string{"bridge", "search_interval"}, 300)
}

func (conf *Config) GetStorageDir() string {
	return conf.getString([]string{"storage", "dir"}, "")
}

func (conf *Config) GetWebEnabled() bool {
	v, err := conf.GetValue([]string{"web", "enabled"})
	if err != nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b
}

func (conf *Config) GetWebPort() int {
	return conf.getInt([]string{"web", "port"}, 8080)
}

func (conf *Config) GetAirPlayModel() string {
	return conf.getString([]string{"airplay", "model"}, "AppleTV2,1")
}

func (conf *Config) GetAirPlayFeatures() string {
	return conf.getString([]string{"airplay", "features"}, "0x77")
}

func (conf *Config) getString(path []string, def string) string {
	v, err := conf.GetValue(path)
	if err != nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func (conf *Config) getInt(path []string, def int) int {
	v, err := conf.GetValue(path)
	if err != nil {
		return def
	}
	i, ok := v.(int)
	if !ok {
		return def
	}
	return i
}
