package codebook

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/gofhir/codebook/pkg/logger"
)

// Default codebook metadata.
const (
	DefaultMetaPrefix  = "PMI"
	DefaultMetaRoot    = "PMI"
	DefaultName        = "pmi-codebook"
	DefaultTitle       = "Codebook for PMI's All of Us Research Program Participant-Provided Information"
	DefaultDescription = "# PMI Codebook\nThis `CodeSystem` defines the concepts used in PPI modules."
)

// Option configures the Compiler.
type Option func(*Options)

// Options holds all configuration for the Compiler.
type Options struct {
	// Identity
	System              string
	ValueSetURLTemplate string
	Publisher           string

	// CodeSystem metadata
	Name        string
	Title       string
	Description string

	// Administrative codes
	MetaPrefix string
	MetaRoot   string

	// TopLevelNames are the sheet names, re-rooted without an issue when
	// they appear as codes with a missing parent.
	TopLevelNames []string

	// Verify re-reads the compiled documents before they are returned.
	Verify bool

	Logger zerolog.Logger
}

// DefaultOptions returns the default configuration. System and
// ValueSetURLTemplate have no default and must be set.
func DefaultOptions() *Options {
	return &Options{
		Name:        DefaultName,
		Title:       DefaultTitle,
		Description: DefaultDescription,
		MetaPrefix:  DefaultMetaPrefix,
		MetaRoot:    DefaultMetaRoot,
		Verify:      false,
		Logger:      logger.Default(),
	}
}

// Validate reports missing required settings.
func (o *Options) Validate() error {
	var errs []error
	if o.System == "" {
		errs = append(errs, errors.New("identity system is required"))
	}
	if o.ValueSetURLTemplate == "" {
		errs = append(errs, errors.New("value set URL template is required"))
	}
	return errors.Join(errs...)
}

// WithSystem sets the identity system (the CodeSystem canonical URL).
func WithSystem(system string) Option {
	return func(o *Options) {
		o.System = system
	}
}

// WithValueSetURLTemplate sets the ValueSet URL template. "%s" is replaced
// by the question code.
func WithValueSetURLTemplate(template string) Option {
	return func(o *Options) {
		o.ValueSetURLTemplate = template
	}
}

// WithPublisher sets the publisher of every document.
func WithPublisher(publisher string) Option {
	return func(o *Options) {
		o.Publisher = publisher
	}
}

// WithMetadata overrides the CodeSystem name, title and description.
// Empty values keep the current setting.
func WithMetadata(name, title, description string) Option {
	return func(o *Options) {
		if name != "" {
			o.Name = name
		}
		if title != "" {
			o.Title = title
		}
		if description != "" {
			o.Description = description
		}
	}
}

// WithMetaPrefix sets the prefix of administrative codes.
func WithMetaPrefix(prefix string) Option {
	return func(o *Options) {
		o.MetaPrefix = prefix
	}
}

// WithMetaRoot sets the parent code that groups shared answers.
func WithMetaRoot(code string) Option {
	return func(o *Options) {
		o.MetaRoot = code
	}
}

// WithTopLevelNames sets the sheet names.
func WithTopLevelNames(names ...string) Option {
	return func(o *Options) {
		o.TopLevelNames = append([]string(nil), names...)
	}
}

// WithVerification enables re-reading the compiled documents.
func WithVerification(enable bool) Option {
	return func(o *Options) {
		o.Verify = enable
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
