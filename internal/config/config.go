package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type ServerConfig struct {
	Address string `yaml:"address"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type RedisConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Password     string `yaml:"password"`
	Database     int    `yaml:"database"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	PoolTimeout  int    `yaml:"pool_timeout"`
	Prefix       string `yaml:"prefix"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

type JobsConfig struct {
	Workers int `yaml:"workers"`
	Queue   int `yaml:"queue"`
}

type TelemetryConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Address: ":8080",
		},
		Store: StoreConfig{
			Backend: BackendMemory,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			Database:     0,
			PoolSize:     10,
			MinIdleConns: 3,
			PoolTimeout:  30,
			Prefix:       "xorshift:seq:",
		},
		Jobs: JobsConfig{
			Workers: 4,
			Queue:   64,
		},
		Telemetry: TelemetryConfig{
			Interval: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load layers defaults, then the YAML file named by -c, then any flags set in args.
// A missing config file is not an error.
func Load(name string, args []string) (AppConfig, error) {
	var (
		configPath  string
		overrides   AppConfig
		redisPort   int
		redisDB     int
		jobsWorkers int
	)

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.StringVar(&configPath, "c", "xorshift.yml", "Path to the configuration file")
	flags.StringVar(&overrides.Server.Address, "addr", "", "Address for the HTTP API")
	flags.StringVar(&overrides.Store.Backend, "store", "", "Sequence store backend (memory|redis)")
	flags.StringVar(&overrides.Redis.Host, "redis-host", "", "Redis host")
	flags.IntVar(&redisPort, "redis-port", 0, "Redis port")
	flags.StringVar(&overrides.Redis.Password, "redis-password", "", "Redis password")
	flags.IntVar(&redisDB, "redis-db", 0, "Redis database index")
	flags.IntVar(&jobsWorkers, "workers", 0, "Batch shuffle workers")
	flags.StringVar(&overrides.Log.Level, "log-level", "", "Log level (debug|info|warn|error)")
	flags.StringVar(&overrides.Log.Format, "log-format", "", "Log format (text|json)")

	if err := flags.Parse(args); err != nil {
		return AppConfig{}, err
	}

	conf := Default()
	if err := readFile(configPath, &conf); err != nil {
		return AppConfig{}, err
	}

	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			conf.Server.Address = overrides.Server.Address
		case "store":
			conf.Store.Backend = overrides.Store.Backend
		case "redis-host":
			conf.Redis.Host = overrides.Redis.Host
		case "redis-port":
			conf.Redis.Port = redisPort
		case "redis-password":
			conf.Redis.Password = overrides.Redis.Password
		case "redis-db":
			conf.Redis.Database = redisDB
		case "workers":
			conf.Jobs.Workers = jobsWorkers
		case "log-level":
			conf.Log.Level = overrides.Log.Level
		case "log-format":
			conf.Log.Format = overrides.Log.Format
		}
	})

	if err := conf.Validate(); err != nil {
		return AppConfig{}, err
	}
	return conf, nil
}

func readFile(path string, conf *AppConfig) error {
	if path == "" {
		return nil
	}
	buff, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(buff, conf); err != nil {
		return fmt.Errorf("parse config file (%s): %w", path, err)
	}
	return nil
}

func (c AppConfig) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Server.Address == "" {
		return fmt.Errorf("server address is empty")
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("jobs.workers must be positive, got %d", c.Jobs.Workers)
	}
	return nil
}
