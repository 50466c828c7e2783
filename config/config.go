// Package config loads the runtime configuration surface described in
// spec.md §6 from YAML, filling unset fields with the same defaults the
// individual component Options types fall back to when left zero.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of the control point's configuration
// file.
type Config struct {
	BufferSize        int    `yaml:"bufferSize"`
	NoConnectDelayMS  int    `yaml:"noConnectDelay"`
	ReadTimeoutMS     int    `yaml:"readTimeout"`
	WriteTimeoutMS    int    `yaml:"writeTimeout"`
	SubscribeInterval int    `yaml:"subscribeInterval"`
	AllowLocalhost    bool   `yaml:"allowLocalhost"`
	DeviceTypeFilter  string `yaml:"deviceTypeFilter"`
	ListenAddr        string `yaml:"listenAddr"`
	CallbackBaseURL   string `yaml:"callbackBaseURL"`
}

// Load reads and parses path, then applies defaults, matching how
// httpserver.Options.setDefaults fills zero fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}

func (c *Config) setDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = 1024
	}
	if c.NoConnectDelayMS == 0 {
		c.NoConnectDelayMS = 5
	}
	if c.ReadTimeoutMS == 0 {
		c.ReadTimeoutMS = 5000
	}
	if c.WriteTimeoutMS == 0 {
		c.WriteTimeoutMS = 5000
	}
	if c.SubscribeInterval == 0 {
		c.SubscribeInterval = 1800
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":0"
	}
}

func (c Config) NoConnectDelay() time.Duration { return time.Duration(c.NoConnectDelayMS) * time.Millisecond }
func (c Config) ReadTimeout() time.Duration     { return time.Duration(c.ReadTimeoutMS) * time.Millisecond }
func (c Config) WriteTimeout() time.Duration    { return time.Duration(c.WriteTimeoutMS) * time.Millisecond }
