package codebook

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/codebook/pkg/document"
	"github.com/gofhir/codebook/pkg/entry"
	"github.com/gofhir/codebook/pkg/hierarchy"
	"github.com/gofhir/codebook/pkg/issue"
	"github.com/gofhir/codebook/pkg/valueset"
	"github.com/gofhir/codebook/verify"
)

// Input is the raw material of one run.
type Input struct {
	// Rows from every sheet, in sheet order then row order.
	Rows    []entry.Row
	Version Version
}

// Compiler turns codebook rows into FHIR documents.
// A Compiler holds no per-run state and is safe for concurrent use.
type Compiler struct {
	opts     *Options
	verifier *verify.Verifier
	log      zerolog.Logger
}

// New creates a Compiler.
func New(opts ...Option) (*Compiler, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	c := &Compiler{
		opts: o,
		log:  o.Logger,
	}
	if o.Verify {
		c.verifier = verify.New()
	}
	return c, nil
}

// Options returns a copy of the compiler configuration.
func (c *Compiler) Options() Options {
	return *c.opts
}

// Compile runs the whole pipeline on in. On error no artifact is returned.
func (c *Compiler) Compile(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()

	if err := in.Version.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := issue.NewLog()
	entries := entry.NormalizeAll(in.Rows, c.entryRules(), normalized)
	c.log.Debug().Int("rows", len(in.Rows)).Int("issues", normalized.Len()).Msg("rows normalized")

	indexed := issue.NewLog()
	idx, err := hierarchy.Build(entries, c.indexRules(), indexed)
	if err != nil {
		return nil, err
	}

	concepts, err := idx.RenderRoot()
	if err != nil {
		return nil, err
	}
	cs := document.NewCodeSystem(c.codeSystemMetadata(in.Version), idx.Len(), concepts)

	valueSets, err := valueset.DeriveAll(idx, c.valueSetMetadata(in.Version))
	if err != nil {
		return nil, err
	}

	verified := issue.NewLog()
	if c.verifier != nil {
		if err := c.verifier.Verify(ctx, cs, valueSets, verified); err != nil {
			return nil, err
		}
	}

	log := issue.NewLog()
	log.Merge(normalized)
	log.Merge(indexed)
	log.Merge(verified)

	res := &Result{
		Artifacts: document.Assemble(cs, valueSets, log.Messages()),
		Index:     idx,
		Issues:    log,
		Stats: Stats{
			Rows:      len(in.Rows),
			Entries:   idx.Len(),
			TopLevel:  len(idx.Roots()),
			Questions: countQuestions(idx),
			ValueSets: len(valueSets),
			Issues:    log.Len(),
			ByStage:   issuesByStage(log),
			Duration:  time.Since(start),
		},
	}

	c.log.Info().
		Str("version", in.Version.Current).
		EmbedObject(res.Stats).
		Msg("codebook compiled")
	if c.log.GetLevel() <= zerolog.DebugLevel {
		for _, root := range idx.Roots() {
			c.log.Debug().Str("code", root.CodeValue()).Msg("top-level concept")
		}
	}

	return res, nil
}

func (c *Compiler) entryRules() entry.Rules {
	return entry.Rules{System: c.opts.System, MetaPrefix: c.opts.MetaPrefix}
}

func (c *Compiler) indexRules() hierarchy.Rules {
	return hierarchy.Rules{
		System:        c.opts.System,
		MetaPrefix:    c.opts.MetaPrefix,
		MetaRoot:      c.opts.MetaRoot,
		TopLevelNames: c.opts.TopLevelNames,
	}
}

func (c *Compiler) codeSystemMetadata(v Version) document.Metadata {
	return document.Metadata{
		URL:         c.opts.System,
		Version:     v.Current,
		Date:        v.Date,
		Name:        c.opts.Name,
		Title:       c.opts.Title,
		Description: c.opts.Description,
		Publisher:   c.opts.Publisher,
	}
}

func (c *Compiler) valueSetMetadata(v Version) valueset.Metadata {
	return valueset.Metadata{
		URLTemplate: c.opts.ValueSetURLTemplate,
		Version:     v.Current,
		Date:        v.Date,
		Publisher:   c.opts.Publisher,
	}
}

func countQuestions(idx *hierarchy.Index) int {
	n := 0
	for _, e := range idx.Entries() {
		if e.IsQuestion() {
			n++
		}
	}
	return n
}

func issuesByStage(log *issue.Log) map[issue.Source]int {
	out := make(map[issue.Source]int, 3)
	for _, src := range []issue.Source{issue.SourceNormalize, issue.SourceIndex, issue.SourceVerify} {
		out[src] = log.BySource(src).Len()
	}
	return out
}
