// Package config loads the codebook build configuration from a JSON file,
// with CODEBOOK_* environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gofhir/codebook"
	"github.com/gofhir/codebook/sheets"
)

// EnvPrefix prefixes environment overrides, e.g. CODEBOOK_SHEETID.
const EnvPrefix = "CODEBOOK"

// VersionSheetName is the stored name of the version sheet.
const VersionSheetName = "version"

// Config is the build configuration.
type Config struct {
	// System is the CodeSystem canonical URL and the default identity system.
	System string `mapstructure:"system"`

	// ID names the output files.
	ID string `mapstructure:"id"`

	// SheetID is the spreadsheet holding every sheet.
	SheetID string `mapstructure:"sheetId"`

	// Sheets are compiled in this order.
	Sheets []sheets.Sheet `mapstructure:"sheets"`

	// VersionSheet is the gid of the version sheet.
	VersionSheet string `mapstructure:"versionSheet"`

	// ValueSetBase is the ValueSet URL template, "%s" marks the question code.
	ValueSetBase string `mapstructure:"valueSetBase"`

	Publisher   string `mapstructure:"publisher"`
	Name        string `mapstructure:"name"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	MetaPrefix  string `mapstructure:"metaPrefix"`
	MetaRoot    string `mapstructure:"metaRoot"`
	OutputDir   string `mapstructure:"outputDir"`
}

var scalarKeys = []string{
	"system", "id", "sheetId", "versionSheet", "valueSetBase", "publisher",
	"name", "title", "description", "metaPrefix", "metaRoot", "outputDir",
}

// Load reads the configuration file at path. An empty path loads defaults
// and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("outputDir", "dist")
	v.SetDefault("metaPrefix", codebook.DefaultMetaPrefix)
	v.SetDefault("metaRoot", codebook.DefaultMetaRoot)
	v.SetDefault("name", codebook.DefaultName)
	v.SetDefault("title", codebook.DefaultTitle)
	v.SetDefault("description", codebook.DefaultDescription)

	for _, key := range scalarKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"system":       c.System,
		"id":           c.ID,
		"valueSetBase": c.ValueSetBase,
		"versionSheet": c.VersionSheet,
		"outputDir":    c.OutputDir,
	}
	for _, key := range []string{"system", "id", "valueSetBase", "versionSheet", "outputDir"} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if len(c.Sheets) == 0 {
		errs = append(errs, errors.New("at least one sheet is required"))
	}
	seen := make(map[string]bool, len(c.Sheets))
	for i, s := range c.Sheets {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("sheets[%d]: name is required", i))
		case s.Name == VersionSheetName:
			errs = append(errs, fmt.Errorf("sheets[%d]: name %q is reserved", i, s.Name))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("sheets[%d]: duplicate name %q", i, s.Name))
		}
		if s.GID == "" {
			errs = append(errs, fmt.Errorf("sheets[%d]: gid is required", i))
		}
		seen[s.Name] = true
	}
	return errors.Join(errs...)
}

// SheetNames returns the configured sheet names in order.
func (c *Config) SheetNames() []string {
	names := make([]string, 0, len(c.Sheets))
	for _, s := range c.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// Downloads returns the configured sheets followed by the version sheet.
func (c *Config) Downloads() []sheets.Sheet {
	out := make([]sheets.Sheet, 0, len(c.Sheets)+1)
	out = append(out, c.Sheets...)
	return append(out, sheets.Sheet{Name: VersionSheetName, GID: c.VersionSheet})
}

// CompilerOptions translates the configuration into compiler options.
func (c *Config) CompilerOptions(log zerolog.Logger) []codebook.Option {
	return []codebook.Option{
		codebook.WithSystem(c.System),
		codebook.WithValueSetURLTemplate(c.ValueSetBase),
		codebook.WithPublisher(c.Publisher),
		codebook.WithMetadata(c.Name, c.Title, c.Description),
		codebook.WithMetaPrefix(c.MetaPrefix),
		codebook.WithMetaRoot(c.MetaRoot),
		codebook.WithTopLevelNames(c.SheetNames()...),
		codebook.WithLogger(log),
	}
}
