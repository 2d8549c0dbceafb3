package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Feeds struct {
	BasicInfo   string `yaml:"basic_info" validate:"required,url"`
	InfoVacancy string `yaml:"info_vacancy" validate:"required,url"` // queried once per language
	VacancyInfo string `yaml:"vacancy_info" validate:"required,url"`
	Vacancy     string `yaml:"vacancy" validate:"required,url"`
}

type Config struct {
	AppEnv       string   `yaml:"app_env"`
	LogLevel     string   `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	Feeds        Feeds    `yaml:"feeds"`
	Langs        []string `yaml:"langs" validate:"min=1,max=3,unique,dive,required,langtag"`
	OutputPath   string   `yaml:"output_path" validate:"required"`
	FetchTimeout int      `yaml:"fetch_timeout_seconds" validate:"gte=0"`
	FetchRPS     int      `yaml:"fetch_rps" validate:"gte=0"`
	HTTPAddr     string   `yaml:"http_addr"`
	MetricsAddr  string   `yaml:"metrics_addr"`
	RedisAddr    string   `yaml:"redis_addr"`
	RedisPass    string   `yaml:"redis_password"`
	RedisDB      int      `yaml:"redis_db" validate:"gte=0"`
	CacheTTLSec  int      `yaml:"cache_ttl_seconds" validate:"gte=0"`
}

func (c Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

func Defaults() Config {
	return Config{
		AppEnv:   "prod",
		LogLevel: "info",
		Feeds: Feeds{
			BasicInfo:   "https://resource.data.one.gov.hk/td/carpark/basic_info_all.json",
			InfoVacancy: "https://api.data.gov.hk/v1/carpark-info-vacancy?data=info",
			VacancyInfo: "https://api.data.gov.hk/v1/carpark-info-vacancy?data=vacancy",
			Vacancy:     "https://resource.data.one.gov.hk/td/carpark/vacancy_all.json",
		},
		Langs:        []string{"en_US", "zh_TW", "zh_CN"},
		OutputPath:   "dist/carpark_data.json",
		FetchTimeout: 30,
		FetchRPS:     5,
		HTTPAddr:     ":8080",
		RedisAddr:    "localhost:6379",
		CacheTTLSec:  300,
	}
}

// Load layers defaults, the optional YAML file named by AGGREGATOR_CONFIG,
// and environment variables, then validates the result.
func Load() (Config, error) {
	c := Defaults()
	if path := os.Getenv("AGGREGATOR_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c.AppEnv = env("APP_ENV", c.AppEnv)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.Feeds.BasicInfo = env("BASIC_INFO_URL", c.Feeds.BasicInfo)
	c.Feeds.InfoVacancy = env("INFO_VACANCY_URL", c.Feeds.InfoVacancy)
	c.Feeds.VacancyInfo = env("VACANCY_INFO_URL", c.Feeds.VacancyInfo)
	c.Feeds.Vacancy = env("VACANCY_URL", c.Feeds.Vacancy)
	if v := os.Getenv("LANGS"); v != "" {
		c.Langs = splitList(v)
	}
	c.OutputPath = env("OUTPUT_PATH", c.OutputPath)
	c.FetchTimeout = atoi("FETCH_TIMEOUT_SECONDS", c.FetchTimeout)
	c.FetchRPS = atoi("FETCH_RPS", c.FetchRPS)
	c.HTTPAddr = env("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = env("METRICS_ADDR", c.MetricsAddr)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = env("REDIS_PASSWORD", c.RedisPass)
	c.RedisDB = atoi("REDIS_DB", c.RedisDB)
	c.CacheTTLSec = atoi("CACHE_TTL_SECONDS", c.CacheTTLSec)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("langtag", func(fl validator.FieldLevel) bool {
		_, err := ParseLang(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseLang accepts the feed's underscore spelling (zh_TW) as well as BCP 47 (zh-TW).
func ParseLang(s string) (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(s, "_", "-"))
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
