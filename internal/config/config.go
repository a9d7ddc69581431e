// File: internal/config/config.go
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/sasakama-code/taintcore/pkg/taint"
)

// Interface defines the contract for accessing application
// configuration. This allows for dependency injection and mocking in
// tests.
type Interface interface {
	Logger() LoggerConfig
	Analyzer() AnalyzerConfig
	Report() ReportConfig

	SetReportFormat(string)
	SetReportOutput(string)
	SetAnalyzerRecognizer(string)
}

// Config holds the application configuration. Private fields enforce
// access through the Interface getters.
type Config struct {
	logger   LoggerConfig
	analyzer AnalyzerConfig
	report   ReportConfig
}

func (c *Config) Logger() LoggerConfig     { return c.logger }
func (c *Config) Analyzer() AnalyzerConfig { return c.analyzer }
func (c *Config) Report() ReportConfig     { return c.report }

func (c *Config) SetReportFormat(f string)       { c.report.Format = f }
func (c *Config) SetReportOutput(o string)       { c.report.Output = o }
func (c *Config) SetAnalyzerRecognizer(r string) { c.analyzer.Recognizer = r }

// LoggerConfig mirrors the logging section of the config file.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PatternConfig is one user-supplied recognition pattern. Kind carries
// the source name, the sanitizer kind, or the sink name depending on
// which list the pattern extends.
type PatternConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Kind    string `mapstructure:"kind" yaml:"kind"`
	Level   string `mapstructure:"level" yaml:"level"`
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
}

// AnalyzerConfig mirrors the analyzer section: which recognizer
// strategy to run and any pattern lists extending the built-ins.
type AnalyzerConfig struct {
	Recognizer      string          `mapstructure:"recognizer" yaml:"recognizer"`
	ExtraSources    []PatternConfig `mapstructure:"extra_sources" yaml:"extra_sources"`
	ExtraSanitizers []PatternConfig `mapstructure:"extra_sanitizers" yaml:"extra_sanitizers"`
	ExtraSinks      []PatternConfig `mapstructure:"extra_sinks" yaml:"extra_sinks"`
}

// ExtraPatterns converts the configured pattern lists into the engine's
// PatternSet. Unrecognized level names take the engine's defensive
// default through ParseLevel.
func (a AnalyzerConfig) ExtraPatterns() taint.PatternSet {
	ps := taint.PatternSet{}
	for _, p := range a.ExtraSources {
		level := taint.Level("")
		if p.Level != "" {
			level, _ = taint.ParseLevel(p.Level)
		}
		ps.Sources = append(ps.Sources, taint.SourcePattern{
			Name:    p.Name,
			Source:  taint.Source(p.Kind),
			Level:   level,
			Pattern: p.Pattern,
		})
	}
	for _, p := range a.ExtraSanitizers {
		ps.Sanitizers = append(ps.Sanitizers, taint.SanitizerPattern{
			Name:    p.Name,
			Kind:    taint.SanitizerKind(p.Kind),
			Pattern: p.Pattern,
		})
	}
	for _, p := range a.ExtraSinks {
		ps.Sinks = append(ps.Sinks, taint.SinkPattern{
			Name:    p.Name,
			Sink:    taint.Sink(p.Kind),
			Pattern: p.Pattern,
		})
	}
	return ps
}

// ReportConfig mirrors the report section.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// SetDefaults initializes default values for every configuration
// parameter on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "taintcore")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("analyzer.recognizer", "regex")

	v.SetDefault("report.format", "json")
	v.SetDefault("report.output", "stdout")
}

// Load builds a Config from the given viper instance, applying defaults
// first so a missing or partial file still yields a complete
// configuration.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var c Config
	if err := v.UnmarshalKey("logger", &c.logger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal logger config: %w", err)
	}
	if err := v.UnmarshalKey("analyzer", &c.analyzer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analyzer config: %w", err)
	}
	if err := v.UnmarshalKey("report", &c.report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report config: %w", err)
	}
	return &c, nil
}

// NewDefaultConfig creates a configuration populated with defaults
// only.
func NewDefaultConfig() *Config {
	c, err := Load(viper.New())
	if err != nil {
		// Defaults always unmarshal; reaching this is programmer error.
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return c
}
