// Package settings loads and validates the krypto configuration file.
package settings

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/tantralabs/krypto"
	"github.com/tantralabs/krypto/database"
	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/optimize"
	"github.com/tantralabs/krypto/ta"
	"github.com/tantralabs/krypto/utils"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given.
const DefaultPath = "config.yml"

type Config struct {
	Symbols    []string `yaml:"symbols" default:"[\"BTCUSDT\",\"ETHUSDT\"]" validate:"required,min=1,dive,required"`
	Targets    []string `yaml:"targets"` // defaults to every symbol
	Intervals  []string `yaml:"intervals" default:"[\"1h\"]" validate:"required,min=1"`
	Indicators []string `yaml:"indicators" default:"[\"percentage_change\",\"candlestick_ratio\",\"stochastic\",\"rsi\",\"cci\",\"volume_change\"]" validate:"required,min=1"`
	Predictors []string `yaml:"predictors" default:"[\"correlation\",\"pls\"]" validate:"required,min=1"`
	Candles    int      `yaml:"candles" default:"1000" validate:"gt=0"`

	CrossValidations int            `yaml:"cross_validations" default:"3" validate:"gte=1"`
	TrainRatio       float64        `yaml:"train_ratio" default:"0.5" validate:"gt=0,lt=1"`
	TrainWindow      int            `yaml:"train_window" validate:"gte=0"`
	Fee              float64        `yaml:"fee" default:"0.001" validate:"gte=0"`
	Margin           Margin         `yaml:"margin"`
	MaxDepth         int            `yaml:"max_depth" default:"5" validate:"gte=1"`
	MaxComponents    int            `yaml:"max_components" default:"3" validate:"gte=1"`
	TradeFraction    float64        `yaml:"trade_fraction" default:"1" validate:"gt=0,lte=1"`
	StopLoss         float64        `yaml:"stop_loss" validate:"gte=0"`
	TakeProfit       float64        `yaml:"take_profit" validate:"gte=0"`
	Fitness          krypto.Fitness `yaml:"fitness"`
	Genetic          Genetic        `yaml:"genetic"`
	Workers          int            `yaml:"workers" validate:"gte=0"`

	Live     Live                `yaml:"live"`
	Source   Source              `yaml:"source"`
	Cache    Cache               `yaml:"cache"`
	Database database.Config     `yaml:"database"`
	Influx   krypto.InfluxConfig `yaml:"influx"`
	Server   Server              `yaml:"server"`
	Report   Report              `yaml:"report"`
	Logging  Logging             `yaml:"logging"`
	AWS      AWS                 `yaml:"aws"`
}

// Margin bounds the leverage the search may pick, in Step increments.
type Margin struct {
	Min  float64 `yaml:"min" default:"1" validate:"gt=0"`
	Max  float64 `yaml:"max" default:"1" validate:"gt=0"`
	Step float64 `yaml:"step" default:"0.5"`
}

type Genetic struct {
	Generations      int     `yaml:"generations" default:"20" validate:"gte=1"`
	Population       int     `yaml:"population" default:"50" validate:"gte=2"`
	StallGenerations int     `yaml:"stall_generations" validate:"gte=0"`
	MutationRate     float64 `yaml:"mutation_rate" default:"0.1" validate:"gte=0,lte=1"`
	CrossoverRate    float64 `yaml:"crossover_rate" default:"0.7" validate:"gte=0,lte=1"`
	SelectionRatio   float64 `yaml:"selection_ratio" default:"0.5" validate:"gt=0,lte=1"`
	ReinsertionRatio float64 `yaml:"reinsertion_ratio" default:"0.5" validate:"gt=0,lte=1"`
	Selection        string  `yaml:"selection" default:"tournament" validate:"oneof=tournament roulette"`
	Contestants      int     `yaml:"contestants" default:"3" validate:"gte=1"`
	Seed             int64   `yaml:"seed" default:"1"`
	Parallel         bool    `yaml:"parallel" default:"true"`
}

type Live struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval" default:"1m"`
	Window   int           `yaml:"window" default:"500" validate:"gte=0"`
	Stream   bool          `yaml:"stream"`
}

// Source selects where candles come from: binance, csv or postgres.
type Source struct {
	Kind      string `yaml:"kind" default:"binance" validate:"oneof=binance csv postgres"`
	BaseURL   string `yaml:"base_url"`
	StreamURL string `yaml:"stream_url"`
	Dir       string `yaml:"dir" default:"data"`
	Persist   bool   `yaml:"persist"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// Cache selects the artifact cache backend: none, memory, file, redis or layered.
type Cache struct {
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=none memory file redis layered"`
	Dir           string        `yaml:"dir" default:".krypto-cache"`
	MaxEntries    int           `yaml:"max_entries" validate:"gte=0"`
	RedisAddr     string        `yaml:"redis_addr" default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix" default:"krypto"`
	TTL           time.Duration `yaml:"ttl"`
}

type Server struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":8080"`
}

type Report struct {
	Dir string `yaml:"dir" default:"reports"`
}

type Logging struct {
	Level string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// AWS loads secrets into the environment before overrides are applied.
type AWS struct {
	SecretName string `yaml:"secret_name"`
	Region     string `yaml:"region" default:"us-west-1"`
}

// Default returns a config holding only default values.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads path over the defaults, then applies KRYPTO_* environment overrides.
// A missing file is created with the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, models.NewConfigurationError("file", "%v", err)
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, models.NewConfigurationError("file", "%s: %v", path, err)
		}
	}

	if cfg.AWS.SecretName != "" {
		if err := utils.LoadENV(cfg.AWS.SecretName, cfg.AWS.Region); err != nil {
			return nil, &models.ExternalSourceError{Source: "secretsmanager", Err: err}
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg as YAML.
func (cfg *Config) Save(path string) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (cfg *Config) applyEnvOverrides() {
	if v := os.Getenv("KRYPTO_SYMBOLS"); v != "" {
		cfg.Symbols = splitList(v)
	}
	if v := os.Getenv("KRYPTO_INTERVALS"); v != "" {
		cfg.Intervals = splitList(v)
	}
	if v := os.Getenv("KRYPTO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("KRYPTO_FEE"), 64); err == nil {
		cfg.Fee = v
	}
	if v := os.Getenv("KRYPTO_BINANCE_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
	if v := os.Getenv("KRYPTO_BINANCE_API_SECRET"); v != "" {
		cfg.Source.APISecret = v
	}
	if v := os.Getenv("KRYPTO_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("KRYPTO_REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("KRYPTO_INFLUX_URL"); v != "" {
		env := krypto.InfluxConfigFromEnv()
		cfg.Influx.URL, cfg.Influx.User, cfg.Influx.Password = env.URL, env.User, env.Password
	}
	cfg.Database = database.ConfigFromEnv(cfg.Database)
}

var validate = validator.New()

// Validate returns a ConfigurationError describing the first inconsistency.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return models.NewConfigurationError(e.Namespace(), "failed %s %s (got %v)", e.Tag(), e.Param(), e.Value())
		}
		return models.NewConfigurationError("config", "%v", err)
	}

	if _, err := cfg.ParsedIntervals(); err != nil {
		return models.NewConfigurationError("intervals", "%v", err)
	}
	if _, err := models.ParseIndicatorSet(cfg.Indicators); err != nil {
		return models.NewConfigurationError("indicators", "%v", err)
	}
	if _, err := cfg.ParsedPredictors(); err != nil {
		return models.NewConfigurationError("predictors", "%v", err)
	}
	if _, err := krypto.ParseFitnessMode(string(cfg.Fitness.Mode)); err != nil {
		return models.NewConfigurationError("fitness.mode", "%v", err)
	}
	for _, t := range cfg.Targets {
		if !utils.StringInSlice(t, cfg.Symbols) {
			return models.NewConfigurationError("targets", "target %s is not a symbol", t)
		}
	}
	switch {
	case cfg.Margin.Min > cfg.Margin.Max:
		return models.NewConfigurationError("margin", "min %v > max %v", cfg.Margin.Min, cfg.Margin.Max)
	case cfg.Margin.Step <= 0:
		return models.NewConfigurationError("margin.step", "%v <= 0", cfg.Margin.Step)
	case cfg.Live.Enabled && cfg.Live.Interval <= 0:
		return models.NewConfigurationError("live.interval", "%v <= 0", cfg.Live.Interval)
	case cfg.Fitness.Mode == krypto.Weighted && cfg.Fitness.ReturnWeight == 0 && cfg.Fitness.SharpeWeight == 0:
		return models.NewConfigurationError("fitness", "weighted mode needs a non-zero weight")
	}
	if minCandles := cfg.MinCandles(); cfg.Candles < minCandles {
		return models.NewConfigurationError("candles", "%d candles cannot fill %d folds, need %d", cfg.Candles, cfg.CrossValidations, minCandles)
	}
	return nil
}

// MinCandles is the shortest history whose usable part, after the indicator lookback,
// splits into a training block for the deepest lag and CrossValidations test segments.
func (cfg *Config) MinCandles() int {
	train := cfg.MaxDepth + krypto.DefaultMinTrain
	test := cfg.CrossValidations * krypto.DefaultMinTest
	length := int(math.Ceil(math.Max(float64(train)/cfg.TrainRatio, float64(test)/(1-cfg.TrainRatio))))
	for int(float64(length)*cfg.TrainRatio) < train || length-int(float64(length)*cfg.TrainRatio) < test {
		length++
	}
	return ta.Lookback + length
}

// ParsedIntervals converts the interval names.
func (cfg *Config) ParsedIntervals() ([]models.Interval, error) {
	out := make([]models.Interval, 0, len(cfg.Intervals))
	for _, s := range cfg.Intervals {
		iv, err := models.ParseInterval(s)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

func (cfg *Config) ParsedPredictors() ([]models.PredictorKind, error) {
	out := make([]models.PredictorKind, 0, len(cfg.Predictors))
	for _, s := range cfg.Predictors {
		p, err := models.ParsePredictorKind(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Space is the genetic search space. Call Validate first.
func (cfg *Config) Space() (optimize.Space, error) {
	intervals, err := cfg.ParsedIntervals()
	if err != nil {
		return optimize.Space{}, models.NewConfigurationError("intervals", "%v", err)
	}
	predictors, err := cfg.ParsedPredictors()
	if err != nil {
		return optimize.Space{}, models.NewConfigurationError("predictors", "%v", err)
	}
	indicators, err := models.ParseIndicatorSet(cfg.Indicators)
	if err != nil {
		return optimize.Space{}, models.NewConfigurationError("indicators", "%v", err)
	}
	targets := cfg.Targets
	if len(targets) == 0 {
		targets = cfg.Symbols
	}
	return optimize.Space{
		Symbols:       cfg.Symbols,
		Targets:       targets,
		Intervals:     intervals,
		Predictors:    predictors,
		Indicators:    indicators.Types(),
		MaxDepth:      cfg.MaxDepth,
		MaxComponents: cfg.MaxComponents,
		MarginMin:     cfg.Margin.Min,
		MarginMax:     cfg.Margin.Max,
		MarginStep:    cfg.Margin.Step,
		TradeFraction: cfg.TradeFraction,
		StopLossMax:   cfg.StopLoss,
		TakeProfitMax: cfg.TakeProfit,
		Fee:           cfg.Fee,
	}, nil
}

// WalkForward is the fold layout.
func (cfg *Config) WalkForward() krypto.WalkForward {
	return krypto.WalkForward{
		Folds:       cfg.CrossValidations,
		TrainRatio:  cfg.TrainRatio,
		TrainWindow: cfg.TrainWindow,
	}
}

// Optimizer is the genetic search configuration.
func (cfg *Config) Optimizer() optimize.Config {
	g := cfg.Genetic
	return optimize.Config{
		PopulationSize:   g.Population,
		Generations:      g.Generations,
		StallGenerations: g.StallGenerations,
		MutationRate:     g.MutationRate,
		CrossoverRate:    g.CrossoverRate,
		SelectionRatio:   g.SelectionRatio,
		ReinsertionRatio: g.ReinsertionRatio,
		Selection:        g.Selection,
		Contestants:      g.Contestants,
		Seed:             g.Seed,
		Parallel:         g.Parallel,
	}
}

func (cfg *Config) String() string {
	return fmt.Sprintf("symbols=%v intervals=%v folds=%d population=%d generations=%d",
		cfg.Symbols, cfg.Intervals, cfg.CrossValidations, cfg.Genetic.Population, cfg.Genetic.Generations)
}
