package tessera

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration file of an engine.
//
//	template_dir: ./templates
//	default_parser: text
//	watch: true
//	max_include_depth: 16
//	postgres:
//	  dsn: postgres://localhost/tessera?sslmode=disable
//	  table: tessera_templates
//	  auto_migrate: true
//	metrics:
//	  enabled: true
//	  namespace: tessera
//
// When both template_dir and postgres are set, postgres wins.
type FileConfig struct {
	TemplateDir     string        `yaml:"template_dir,omitempty"`
	DefaultParser   string        `yaml:"default_parser,omitempty"`
	Watch           bool          `yaml:"watch,omitempty"`
	MaxIncludeDepth *int          `yaml:"max_include_depth,omitempty"`
	Postgres        *PostgresFile `yaml:"postgres,omitempty"`
	Metrics         *MetricsFile  `yaml:"metrics,omitempty"`
}

// PostgresFile is the postgres section of a FileConfig.
type PostgresFile struct {
	DSN         string `yaml:"dsn"`
	Table       string `yaml:"table,omitempty"`
	AutoMigrate bool   `yaml:"auto_migrate,omitempty"`
}

// MetricsFile is the metrics section of a FileConfig.
type MetricsFile struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace,omitempty"`
}

// newConfigError reports an unreadable or malformed config file.
func newConfigError(msg, path string, cause error) error {
	return newEngineError(KindParse, msg, cause).
		WithMetadata(MetaKeyTemplate, path)
}

// LoadConfigFile reads and parses a YAML config file.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newConfigError(ErrMsgConfigReadFailed, path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config data.
func ParseConfig(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, newConfigError(ErrMsgConfigParseFailed, "", err)
	}
	return &cfg, nil
}

// Options converts the file configuration into engine options. It opens
// the configured template source; reg receives the metrics collectors when
// metrics are enabled and may be nil otherwise.
func (c *FileConfig) Options(reg prometheus.Registerer, logger *zap.Logger) ([]Option, error) {
	var opts []Option
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	if c.DefaultParser != "" {
		opts = append(opts, WithDefaultParser(c.DefaultParser))
	}
	if c.MaxIncludeDepth != nil {
		opts = append(opts, WithMaxIncludeDepth(*c.MaxIncludeDepth))
	}

	switch {
	case c.Postgres != nil:
		src, err := NewPostgresSource(PostgresConfig{
			ConnectionString: c.Postgres.DSN,
			Table:            c.Postgres.Table,
			AutoMigrate:      c.Postgres.AutoMigrate,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSource(src))
	case c.TemplateDir != "":
		src, err := NewFilesystemSource(c.TemplateDir, WithSourceLogger(logger))
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSource(src), WithWatch(c.Watch))
	}

	if c.Metrics != nil && c.Metrics.Enabled {
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		opts = append(opts, WithMetrics(reg), WithMetricsNamespace(c.Metrics.Namespace))
	}

	if logger != nil {
		logger.Debug(LogMsgConfigLoaded,
			zap.String(LogFieldPath, c.TemplateDir),
			zap.Bool(LogFieldWatch, c.Watch))
	}
	return opts, nil
}
