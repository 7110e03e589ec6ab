package shortcode

import (
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the engine configuration.
//
//	locale: de-DE
//	currency: EUR
//	timeout: 5s
//	cache:
//	  max_entries: 500
//	  list_ttl: 5m
//	source:
//	  driver: http
//	  dsn: https://cms.example.com/api/v1
//	  token: ${CMS_TOKEN}
//
// Environment variables in string values are expanded.
type Config struct {
	Locale        string        `yaml:"locale"`
	Currency      string        `yaml:"currency"`
	Timeout       time.Duration `yaml:"timeout"`
	Concurrency   int           `yaml:"concurrency"`
	EmptyListText string        `yaml:"empty_list_text"`
	Cache         CacheSettings `yaml:"cache"`
	Source        SourceConfig  `yaml:"source"`
}

// CacheSettings configures the engine cache.
type CacheSettings struct {
	MaxEntries int           `yaml:"max_entries"`
	ListTTL    time.Duration `yaml:"list_ttl"`
	FieldTTL   time.Duration `yaml:"field_ttl"`
}

// SourceConfig selects and configures the content source.
type SourceConfig struct {
	// Driver is a registered source driver name: memory, http, postgres or sqlite.
	Driver string `yaml:"driver"`
	// DSN is the driver connection string. For memory it is an optional
	// fixture file path.
	DSN string `yaml:"dsn"`
	// Token is the bearer credential for the http driver.
	Token string `yaml:"token"`
	// AutoMigrate creates the SQL schema on open. Default: true.
	AutoMigrate *bool `yaml:"auto_migrate"`
	// TablePrefix overrides the SQL table prefix.
	TablePrefix string `yaml:"table_prefix"`
}

// DefaultConfig returns the configuration New uses without options.
func DefaultConfig() Config {
	return Config{
		Locale:        DefaultLocale,
		Currency:      DefaultCurrency,
		Timeout:       DefaultRequestTimeout,
		Concurrency:   DefaultConcurrency,
		EmptyListText: DefaultEmptyListText,
		Cache: CacheSettings{
			MaxEntries: DefaultCacheMaxEntries,
			ListTTL:    DefaultListTTL,
			FieldTTL:   DefaultFieldTTL,
		},
	}
}

// LoadConfig reads a YAML configuration file. Missing values take defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(ErrMsgConfigRead, path, err)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return nil, NewConfigError(ErrMsgConfigParse, path, err)
	}
	return config, nil
}

// ParseConfig decodes YAML configuration data.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.Currency == "" {
		c.Currency = d.Currency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.EmptyListText == "" {
		c.EmptyListText = d.EmptyListText
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = d.Cache.MaxEntries
	}
	if c.Cache.ListTTL <= 0 {
		c.Cache.ListTTL = d.Cache.ListTTL
	}
	if c.Cache.FieldTTL <= 0 {
		c.Cache.FieldTTL = d.Cache.FieldTTL
	}
}

// Options converts the configuration into engine options, opening the
// configured content source. The engine closes that source on Close.
func (c *Config) Options(logger *zap.Logger) ([]Option, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []Option{
		WithLogger(logger),
		WithLocale(c.Locale),
		WithCurrency(c.Currency),
		WithTimeout(c.Timeout),
		WithConcurrency(c.Concurrency),
		WithEmptyListText(c.EmptyListText),
		WithListTTL(c.Cache.ListTTL),
		WithFieldTTL(c.Cache.FieldTTL),
		WithCache(NewCache(CacheConfig{MaxEntries: c.Cache.MaxEntries, Logger: logger})),
	}

	source, err := c.Source.open(c.Timeout, logger)
	if err != nil {
		return nil, err
	}
	if source != nil {
		logger.Debug(LogMsgSourceOpened, zap.String(LogFieldDriver, c.Source.Driver))
		opts = append(opts, WithSource(source), withOwnedSource())
	}
	return opts, nil
}

func (s SourceConfig) open(timeout time.Duration, logger *zap.Logger) (ContentSource, error) {
	switch s.Driver {
	case "":
		return nil, nil
	case SourceDriverHTTP:
		if s.DSN == "" {
			return nil, NewConfigError(ErrMsgEmptyConnString, s.Driver, nil)
		}
		config := HTTPSourceConfig{BaseURL: s.DSN, Timeout: timeout, Logger: logger}
		if s.Token != "" {
			config.Tokens = StaticToken(s.Token)
		}
		return NewHTTPSource(config), nil
	case SourceDriverPostgres, SourceDriverSQLite:
		config := DefaultSQLConfig()
		config.Dialect = s.Driver
		config.ConnectionString = s.DSN
		config.AutoMigrate = s.AutoMigrate == nil || *s.AutoMigrate
		if s.TablePrefix != "" {
			config.TablePrefix = s.TablePrefix
		}
		config.Logger = logger
		return NewSQLSource(config)
	default:
		return OpenSource(s.Driver, s.DSN)
	}
}

// withOwnedSource hands the source's lifetime to the engine.
func withOwnedSource() Option {
	return func(c *engineConfig) {
		c.ownsSource = true
	}
}

// NewFromConfig creates an engine from a configuration file.
func NewFromConfig(path string, logger *zap.Logger) (*Engine, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	opts, err := config.Options(logger)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug(LogMsgConfigLoaded, zap.String(LogFieldPath, path))
	}
	return New(opts...)
}
