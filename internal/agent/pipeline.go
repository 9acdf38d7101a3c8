package agent

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/askweb/internal/telemetry"
	"github.com/mohammad-safakhou/askweb/models"
	"github.com/mohammad-safakhou/askweb/provider"
	"github.com/mohammad-safakhou/askweb/tools/web_search"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage names used in errors, spans and metrics.
const (
	StageSearch   = "search"
	StageRerank   = "rerank"
	StageFormat   = "format"
	StageCritique = "critique"
)

var tracer = otel.Tracer("github.com/mohammad-safakhou/askweb/internal/agent")

// Options tunes a Pipeline. Zero values fall back to the defaults below.
type Options struct {
	MaxResults  int           // results requested from the search provider, default 3
	TopK        int           // results kept after reranking, default 3
	MaxAttempts int           // default 3
	Budget      time.Duration // wall-clock limit for a whole run, 0 means none
	RetryDelay  time.Duration
	CriticMode  CriticMode
	Reranker    Reranker
	Logger      *log.Logger
	Metrics     *telemetry.Metrics
}

// Pipeline runs search, rerank, format and critique until the critic
// approves or the attempt/time budget is spent.
type Pipeline struct {
	searcher  web_search.WebSearcher
	reranker  Reranker
	formatter *Formatter
	critic    *Critic
	opts      Options
	logger    *log.Logger
	metrics   *telemetry.Metrics
}

func NewPipeline(searcher web_search.WebSearcher, llm provider.Provider, opts Options) *Pipeline {
	if opts.MaxResults <= 0 {
		opts.MaxResults = web_search.DefaultResults
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.CriticMode == "" {
		opts.CriticMode = LooseCritic
	}
	if opts.Reranker == nil {
		opts.Reranker = LengthReranker{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{
		searcher:  searcher,
		reranker:  opts.Reranker,
		formatter: &Formatter{LLM: llm},
		critic:    &Critic{LLM: llm, Mode: opts.CriticMode},
		opts:      opts,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Run answers query. When every attempt is rejected the last one is returned
// with Approved=false and a nil error. The same holds when the budget runs
// out after at least one attempt completed. Search and LLM errors end the
// run.
func (p *Pipeline) Run(ctx context.Context, query string) (models.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Answer{}, models.ErrEmptyQuery
	}
	start := time.Now()
	if p.opts.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Budget)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("max_attempts", p.opts.MaxAttempts),
	))
	defer span.End()

	var last *models.Answer
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if attempt > 1 && p.opts.RetryDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.opts.RetryDelay):
			}
		}
		if ctx.Err() != nil && last != nil {
			p.logger.Printf("budget exhausted after %d attempt(s) for %q", last.Attempts, query)
			break
		}

		ans, err := p.attempt(ctx, query, attempt)
		if err != nil {
			if ctx.Err() != nil && last != nil {
				p.logger.Printf("budget exhausted during attempt %d for %q: %v", attempt, query, err)
				break
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.metrics.ObserveRun(telemetry.OutcomeError, attempt)
			p.logger.Printf("attempt %d for %q failed: %v", attempt, query, err)
			return models.Answer{}, err
		}
		ans.Duration = time.Since(start)
		last = &ans

		if ans.Critique.Approved {
			ans.Approved = true
			span.SetAttributes(attribute.Int("attempts", attempt), attribute.Bool("approved", true))
			p.metrics.ObserveRun(telemetry.OutcomeApproved, attempt)
			p.logger.Printf("critic approved attempt %d for %q in %s", attempt, query, ans.Duration.Round(time.Millisecond))
			return ans, nil
		}
		p.logger.Printf("critic rejected attempt %d/%d for %q: %s", attempt, p.opts.MaxAttempts, query, ans.Critique.Reason)
	}

	out := *last
	out.Approved = false
	out.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("attempts", out.Attempts), attribute.Bool("approved", false))
	p.metrics.ObserveRun(telemetry.OutcomeUnapproved, out.Attempts)
	return out, nil
}

func (p *Pipeline) attempt(ctx context.Context, query string, attempt int) (models.Answer, error) {
	ctx, span := tracer.Start(ctx, "pipeline.attempt", trace.WithAttributes(attribute.Int("attempt", attempt)))
	defer span.End()

	var results []models.SearchResult
	err := p.stage(ctx, StageSearch, func(ctx context.Context) error {
		var err error
		results, err = p.searcher.Search(ctx, query, p.opts.MaxResults)
		return err
	})
	if err != nil {
		return models.Answer{}, err
	}

	var ranked []models.SearchResult
	p.step(ctx, StageRerank, func(context.Context) {
		ranked = p.reranker.Rerank(query, results, p.opts.TopK)
	})

	var text string
	err = p.stage(ctx, StageFormat, func(ctx context.Context) error {
		var err error
		text, err = p.formatter.Format(ctx, ranked)
		return err
	})
	if err != nil {
		return models.Answer{}, err
	}

	var critique models.Critique
	err = p.stage(ctx, StageCritique, func(ctx context.Context) error {
		var err error
		critique, err = p.critic.Review(ctx, text, query)
		return err
	})
	if err != nil {
		return models.Answer{}, err
	}
	p.metrics.ObserveVerdict(critique.Approved)

	return models.Answer{
		Query:    query,
		Text:     text,
		Attempts: attempt,
		Critique: critique,
		Sources:  ranked,
	}, nil
}

// stage runs fn inside a span, records its latency and wraps its error
// with the stage name.
// step times a stage that cannot fail.
func (p *Pipeline) step(ctx context.Context, name string, fn func(context.Context)) {
	ctx, span := tracer.Start(ctx, "pipeline."+name)
	defer span.End()
	start := time.Now()
	fn(ctx)
	p.metrics.ObserveStage(name, time.Since(start), nil)
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "pipeline."+name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	p.metrics.ObserveStage(name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
