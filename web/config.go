// Package web serves the database query API over HTTP.
package web

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"scoutdb/database"
)

// Config holds the server configuration, read from an optional config file.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`

	NodeCacheSize          int  `mapstructure:"node_cache_size"`
	WayCacheSize           int  `mapstructure:"way_cache_size"`
	AreaCacheSize          int  `mapstructure:"area_cache_size"`
	AreaNodeIndexCacheSize int  `mapstructure:"area_node_index_cache_size"`
	AreaAreaIndexCacheSize int  `mapstructure:"area_area_index_cache_size"`
	DebugPerformance       bool `mapstructure:"debug_performance"`
}

// LoadConfig reads the config file when given, otherwise the defaults apply.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()

	defaults := database.NewDatabaseParameter()
	v.SetDefault("host", "")
	v.SetDefault("port", 8080)
	v.SetDefault("node_cache_size", defaults.NodeCacheSize)
	v.SetDefault("way_cache_size", defaults.WayCacheSize)
	v.SetDefault("area_cache_size", defaults.AreaCacheSize)
	v.SetDefault("area_node_index_cache_size", defaults.AreaNodeIndexCacheSize)
	v.SetDefault("area_area_index_cache_size", defaults.AreaAreaIndexCacheSize)
	v.SetDefault("debug_performance", defaults.DebugPerformance)

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %s", filename)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrapf(err, "unable to parse config file %s", filename)
	}

	return config, nil
}

// DatabaseParameter converts the server config into database parameters.
func (c *Config) DatabaseParameter() database.DatabaseParameter {
	parameter := database.NewDatabaseParameter()
	parameter.NodeCacheSize = c.NodeCacheSize
	parameter.WayCacheSize = c.WayCacheSize
	parameter.AreaCacheSize = c.AreaCacheSize
	parameter.AreaNodeIndexCacheSize = c.AreaNodeIndexCacheSize
	parameter.AreaAreaIndexCacheSize = c.AreaAreaIndexCacheSize
	parameter.DebugPerformance = c.DebugPerformance
	return parameter
}
