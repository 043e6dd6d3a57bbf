package config

import (
	"errors"

	"github.com/spf13/viper"

	"github.com/WhiteFoxMax/dupemgr/internal"
)

type Config struct {
	Scanner struct {
		WalkWorkers int      `mapstructure:"walk_workers"`
		Exclude     []string `mapstructure:"exclude"`
		MinSize     int64    `mapstructure:"min_size"`
	} `mapstructure:"scanner"`
	Hashing struct {
		Workers     int `mapstructure:"workers"`
		PartialSize int `mapstructure:"partial_size"`
		BufferSize  int `mapstructure:"buffer_size"`
	} `mapstructure:"hashing"`
	Safety struct {
		ProtectedPaths []string `mapstructure:"protected_paths"`
		Keep           string   `mapstructure:"keep"`
	} `mapstructure:"safety"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Logging struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// Load 读取配置文件，文件不存在时使用默认值
func Load() (*Config, error) {
	return load(viper.New(), "")
}

// LoadFile 从指定路径读取配置
func LoadFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("$HOME/.dupemgr")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dupemgr")
	}

	v.SetDefault("scanner.walk_workers", 0)
	v.SetDefault("scanner.exclude", []string{})
	v.SetDefault("scanner.min_size", 0)
	v.SetDefault("hashing.workers", internal.DefaultWorkers)
	v.SetDefault("hashing.partial_size", internal.DefaultPartialSize)
	v.SetDefault("hashing.buffer_size", internal.DefaultReadBufferSize)
	v.SetDefault("safety.protected_paths", []string{})
	v.SetDefault("safety.keep", "first")
	v.SetDefault("database.path", internal.DefaultDatabasePath)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("DUPEMGR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
