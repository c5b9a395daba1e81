package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env   string      `yaml:"env" env:"ENV" env-default:"local"`
	HTTP  HTTPConfig  `yaml:"http"`
	Mongo MongoConfig `yaml:"mongo"`
	Redis RedisConfig `yaml:"redis"`
	Auth  AuthConfig  `yaml:"auth"`
	Live  LiveConfig  `yaml:"live"`
}

type HTTPConfig struct {
	Address            string `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	CORSAllowedOrigins string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"livekaraoke"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"10m"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"dev-secret-change-me"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"24h"`
}

// LiveConfig tunes live show rules
type LiveConfig struct {
	SweepInterval         time.Duration `yaml:"sweep_interval" env:"LIVE_SWEEP_INTERVAL" env-default:"30m"`
	IdleGrace             time.Duration `yaml:"idle_grace" env:"LIVE_IDLE_GRACE" env-default:"10m"`
	ProximityRadiusMeters float64       `yaml:"proximity_radius_meters" env:"LIVE_PROXIMITY_RADIUS" env-default:"30"`
	DefaultShowDuration   time.Duration `yaml:"default_show_duration" env:"LIVE_DEFAULT_SHOW_DURATION" env-default:"4h"`
	ChatHistoryCap        int           `yaml:"chat_history_cap" env:"LIVE_CHAT_HISTORY_CAP" env-default:"100"`
	AllowProximityBypass  bool          `yaml:"allow_proximity_bypass" env:"LIVE_ALLOW_PROXIMITY_BYPASS" env-default:"true"`
	AnnouncementSeconds   int           `yaml:"announcement_seconds" env:"LIVE_ANNOUNCEMENT_SECONDS" env-default:"10"`
}

func MustLoad() *Config {
	return MustLoadPath(fetchConfigPath())
}

// MustLoadPath reads configPath, or only the environment when the file does
// not exist
func MustLoadPath(configPath string) *Config {
	var cfg Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			panic("cannot read config from env: " + err.Error())
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	// Remove redis:// prefix if present
	c.Redis.Addr = strings.TrimPrefix(c.Redis.Addr, "redis://")
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Live.ChatHistoryCap <= 0 {
		c.Live.ChatHistoryCap = 100
	}
}
