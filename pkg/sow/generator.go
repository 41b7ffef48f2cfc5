// Package sow drafts and refines Scope of Work documents.
package sow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xhad/sowgen/internal/models"
	"github.com/xhad/sowgen/internal/types"
	"github.com/xhad/sowgen/pkg/highlight"
	"github.com/xhad/sowgen/pkg/processor"
	"github.com/xhad/sowgen/pkg/prompt"
	"github.com/xhad/sowgen/pkg/session"
)

var (
	ErrMissingInput    = errors.New("please upload a document and provide a description")
	ErrNoDocument      = errors.New("generate a scope of work first")
	ErrMissingFeedback = errors.New("feedback is required to refine")
)

// Sources are the clause sources consulted while drafting. Any of them
// may be nil.
type Sources struct {
	Reference types.Source
	Page      types.Source
	Filings   types.Source
}

type GeneratorConfig struct {
	GenerateTemperature float64
	RefineTemperature   float64
	LibraryLimit        int
	Logger              *zap.Logger
}

type Generator struct {
	config    GeneratorConfig
	extractor types.Extractor
	completer types.Completer
	sources   Sources
	library   types.ClauseLibrary
	processor types.Processor
	log       *zap.Logger
}

// Option customises a Generator.
type Option func(*Generator)

// WithLibrary enables the clause library. Scraped clauses are saved to it
// and similar stored clauses are offered as extra examples.
func WithLibrary(library types.ClauseLibrary, p types.Processor) Option {
	return func(g *Generator) {
		g.library = library
		g.processor = p
	}
}

func NewWithConfig(config GeneratorConfig, extractor types.Extractor, completer types.Completer, sources Sources, opts ...Option) *Generator {
	if config.GenerateTemperature == 0 {
		config.GenerateTemperature = 0.5
	}
	if config.RefineTemperature == 0 {
		config.RefineTemperature = 0.3
	}
	if config.LibraryLimit == 0 {
		config.LibraryLimit = 3
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	g := &Generator{
		config:    config,
		extractor: extractor,
		completer: completer,
		sources:   sources,
		log:       config.Logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.library != nil && g.processor == nil {
		g.processor = processor.NewWithConfig(processor.ProcessorConfig{})
	}
	return g
}

// Request is what the user supplies for a first draft.
type Request struct {
	Upload       *models.Upload
	Description  string
	Role         prompt.Role
	Keyword      string
	URL          string
	CustomClause string
}

// Draft is a prepared request: base text extracted and examples gathered,
// waiting for the user to confirm which examples to keep.
type Draft struct {
	Request  Request
	BaseText string
	Examples []models.Example
	Reports  []types.FetchResult
}

// Warnings lists every source that failed while gathering.
func (d *Draft) Warnings() []string {
	var out []string
	for _, r := range d.Reports {
		if r.Failed() {
			out = append(out, fmt.Sprintf("%s: %v", r.Source, r.Err))
		} else if r.Err != nil {
			out = append(out, fmt.Sprintf("%s (partial): %v", r.Source, r.Err))
		}
	}
	return out
}

// SetIncluded toggles example i. Out of range indices are ignored.
func (d *Draft) SetIncluded(i int, include bool) {
	if i >= 0 && i < len(d.Examples) {
		d.Examples[i].Include = include
	}
}

// Included returns the text of the examples still selected, in order.
func (d *Draft) Included() []string {
	var out []string
	for _, ex := range d.Examples {
		if ex.Include {
			out = append(out, ex.Text)
		}
	}
	return out
}

type Result struct {
	Document string
	Prompt   string
	Warnings []string
}

// Validate reports ErrMissingInput when the upload or description is
// missing. It never touches the network.
func (r Request) Validate() error {
	if r.Upload == nil || strings.TrimSpace(r.Description) == "" {
		return ErrMissingInput
	}
	return nil
}

// Gather validates the request, extracts the base text and fetches
// examples from every configured source, one after another.
func (g *Generator) Gather(ctx context.Context, req Request) (*Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	baseText, err := g.extractor.Extract(*req.Upload)
	if err != nil {
		return nil, err
	}

	draft := &Draft{Request: req, BaseText: baseText}

	reference := g.fetch(ctx, g.sources.Reference, "")
	filings := g.fetch(ctx, g.sources.Filings, req.Keyword)
	page := g.fetch(ctx, g.sources.Page, req.URL)
	draft.Reports = append(draft.Reports, reference, filings, page)

	draft.addExamples(models.OriginReference, reference)
	draft.addExamples(models.OriginURL, page)
	if custom := strings.TrimSpace(req.CustomClause); custom != "" {
		draft.Examples = append(draft.Examples, models.Example{
			Origin:  models.OriginCustom,
			Text:    custom,
			Include: true,
		})
	}
	draft.addExamples(models.OriginFiling, filings)

	if g.library != nil {
		draft.Reports = append(draft.Reports, g.fromLibrary(ctx, draft))
	}

	// drop reports for sources that were not configured or not asked
	reports := draft.Reports[:0]
	for _, r := range draft.Reports {
		if r.Source != "" {
			reports = append(reports, r)
		}
	}
	draft.Reports = reports

	g.log.Info("draft prepared",
		zap.Int("base_chars", len([]rune(baseText))),
		zap.Int("examples", len(draft.Examples)),
		zap.Strings("warnings", draft.Warnings()))

	return draft, nil
}

func (g *Generator) fetch(ctx context.Context, src types.Source, query string) types.FetchResult {
	if src == nil {
		return types.FetchResult{Status: types.StatusEmpty}
	}
	return src.Fetch(ctx, query)
}

func (d *Draft) addExamples(origin models.Origin, result types.FetchResult) {
	for _, item := range result.Items {
		d.Examples = append(d.Examples, models.Example{
			Origin:  origin,
			Source:  result.URL,
			Text:    item,
			Include: true,
		})
	}
}

func (g *Generator) fromLibrary(ctx context.Context, draft *Draft) types.FetchResult {
	result := types.FetchResult{Source: "library"}

	docs, err := g.library.Similar(ctx, draft.Request.Description, g.config.LibraryLimit)
	if err != nil {
		g.log.Warn("clause library lookup failed", zap.Error(err))
		result.Status = types.StatusFailed
		result.Err = err
		return result
	}

	for _, doc := range docs {
		result.Items = append(result.Items, doc.Content)
		draft.Examples = append(draft.Examples, models.Example{
			Origin:  models.OriginLibrary,
			Source:  doc.URL,
			Text:    doc.Content,
			Include: true,
		})
	}

	result.Status = types.StatusOK
	if len(result.Items) == 0 {
		result.Status = types.StatusEmpty
	}
	return result
}

// Compose turns a prepared draft into a document and makes it the
// session's current document.
func (g *Generator) Compose(ctx context.Context, sess *session.Session, draft *Draft) (*Result, error) {
	userPrompt := prompt.Generate(prompt.GenerateInput{
		Role:        draft.Request.Role,
		Description: draft.Request.Description,
		BaseText:    draft.BaseText,
		Examples:    draft.Included(),
	})

	raw, err := g.completer.Complete(ctx, userPrompt, g.config.GenerateTemperature)
	if err != nil {
		return nil, fmt.Errorf("failed to generate scope of work: %w", err)
	}

	result := &Result{
		Document: highlight.Highlight(raw),
		Prompt:   userPrompt,
		Warnings: draft.Warnings(),
	}
	sess.SetDocument(result.Document)

	if g.library != nil {
		if err := g.remember(ctx, draft.Examples); err != nil {
			g.log.Warn("failed to save clauses", zap.Error(err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("library: %v", err))
		}
	}

	g.log.Info("scope of work generated",
		zap.String("session", sess.ID),
		zap.Int("chars", len(result.Document)))

	return result, nil
}

// remember stores the scraped examples the user kept selected.
func (g *Generator) remember(ctx context.Context, examples []models.Example) error {
	var kept []models.Example
	for _, ex := range examples {
		if ex.Include {
			kept = append(kept, ex)
		}
	}

	docs, err := g.processor.Process(processor.FromExamples(kept))
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	return g.library.Store(ctx, docs)
}

// Generate is Gather followed by Compose with every example included.
func (g *Generator) Generate(ctx context.Context, sess *session.Session, req Request) (*Result, error) {
	draft, err := g.Gather(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.Compose(ctx, sess, draft)
}

// Refine revises the session's current document and replaces it.
func (g *Generator) Refine(ctx context.Context, sess *session.Session, feedback string) (string, error) {
	current := sess.Document()
	if current == "" {
		return "", ErrNoDocument
	}
	if strings.TrimSpace(feedback) == "" {
		return "", ErrMissingFeedback
	}

	raw, err := g.completer.Complete(ctx, prompt.Refine(current, feedback), g.config.RefineTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to refine scope of work: %w", err)
	}

	refined := highlight.Highlight(raw)
	sess.SetDocument(refined)

	g.log.Info("scope of work refined", zap.String("session", sess.ID))
	return refined, nil
}
