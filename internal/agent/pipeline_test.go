package agent

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/askweb/internal/telemetry"
	"github.com/mohammad-safakhou/askweb/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type blockingSearcher struct{}

func (blockingSearcher) Search(ctx context.Context, q string, n int) ([]models.SearchResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunApprovedOnFirstAttempt(t *testing.T) {
	searcher := &searcherStub{results: []models.SearchResult{resultWithLen("a", 10)}}
	llm := &llmStub{formatted: "answer", critiques: []string{"PASS"}}
	p := NewPipeline(searcher, llm, Options{})

	ans, err := p.Run(context.Background(), "what is go")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ans.Approved || ans.Attempts != 1 || ans.Text != "answer" {
		t.Fatalf("unexpected answer %+v", ans)
	}
	if searcher.calls != 1 || len(llm.formatPrompts) != 1 || len(llm.criticPrompts) != 1 {
		t.Fatalf("expected one call per stage, got search=%d format=%d critique=%d",
			searcher.calls, len(llm.formatPrompts), len(llm.criticPrompts))
	}
	if searcher.lastN != 3 {
		t.Fatalf("expected 3 results requested, got %d", searcher.lastN)
	}
}

func TestRunRetriesUntilApproved(t *testing.T) {
	searcher := &searcherStub{results: []models.SearchResult{resultWithLen("a", 10)}}
	llm := &llmStub{formatted: "answer", critiques: []string{"FAIL: vague", "PASS"}}
	p := NewPipeline(searcher, llm, Options{})

	ans, err := p.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ans.Approved || ans.Attempts != 2 {
		t.Fatalf("expected approval on attempt 2, got %+v", ans)
	}
	if searcher.calls != 2 {
		t.Fatalf("expected a fresh search per attempt, got %d", searcher.calls)
	}
}

func TestRunStopsAfterMaxAttempts(t *testing.T) {
	searcher := &searcherStub{results: []models.SearchResult{resultWithLen("a", 10)}}
	llm := &llmStub{formatted: "answer", critiques: []string{"FAIL: never good enough"}}
	p := NewPipeline(searcher, llm, Options{MaxAttempts: 4})

	ans, err := p.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("expected fallback answer, got error %v", err)
	}
	if ans.Approved {
		t.Fatal("expected unapproved answer")
	}
	if ans.Attempts != 4 || searcher.calls != 4 || len(llm.criticPrompts) != 4 {
		t.Fatalf("expected 4 attempts, got attempts=%d search=%d critique=%d", ans.Attempts, searcher.calls, len(llm.criticPrompts))
	}
	if ans.Text != "answer" || ans.Critique.Reason != "never good enough" {
		t.Fatalf("expected last attempt returned, got %+v", ans)
	}
}

func TestRunFormatsTopResultsByLength(t *testing.T) {
	results := []models.SearchResult{
		resultWithLen("fifty", 50),
		resultWithLen("onetwenty", 120),
		resultWithLen("thirty", 30),
	}
	searcher := &searcherStub{results: results}
	llm := &llmStub{formatted: "Paris is the capital of France.", critiques: []string{"PASS"}}
	p := NewPipeline(searcher, llm, Options{})

	ans, err := p.Run(context.Background(), "  capital of France  ")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []models.SearchResult{results[1], results[0], results[2]}
	if !reflect.DeepEqual(ans.Sources, want) {
		t.Fatalf("unexpected source order %v", ans.Sources)
	}
	if llm.formatPrompts[0] != BuildFormatPrompt(want) {
		t.Fatalf("formatter did not receive the ranked results:\n%s", llm.formatPrompts[0])
	}
	if ans.Text != "Paris is the capital of France." {
		t.Fatalf("expected formatter output unchanged, got %q", ans.Text)
	}
	if ans.Query != "capital of France" {
		t.Fatalf("expected trimmed query, got %q", ans.Query)
	}
	if !strings.Contains(llm.criticPrompts[0], "'capital of France'") {
		t.Fatalf("critic prompt missing query:\n%s", llm.criticPrompts[0])
	}
}

func TestRunWrapsStageErrors(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name     string
		searcher *searcherStub
		llm      *llmStub
		prefix   string
	}{
		{"search", &searcherStub{err: boom}, &llmStub{critiques: []string{"PASS"}}, "search: "},
		{"format", &searcherStub{}, &llmStub{formatErr: boom, critiques: []string{"PASS"}}, "format: "},
		{"critique", &searcherStub{}, &llmStub{criticErr: boom}, "critique: "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPipeline(tc.searcher, tc.llm, Options{}).Run(context.Background(), "q")
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped error, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tc.prefix) {
				t.Fatalf("expected %q prefix, got %q", tc.prefix, err.Error())
			}
			if tc.searcher.calls != 1 {
				t.Fatalf("expected no retry after an error, got %d searches", tc.searcher.calls)
			}
		})
	}
}

func TestRunRejectsEmptyQuery(t *testing.T) {
	searcher := &searcherStub{}
	llm := &llmStub{critiques: []string{"PASS"}}
	_, err := NewPipeline(searcher, llm, Options{}).Run(context.Background(), " \t\n")
	if !errors.Is(err, models.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if searcher.calls != 0 || len(llm.formatPrompts) != 0 {
		t.Fatal("expected no downstream calls")
	}
}

func TestRunBudgetReturnsLastAttempt(t *testing.T) {
	searcher := &searcherStub{results: []models.SearchResult{resultWithLen("a", 10)}}
	llm := &llmStub{formatted: "answer", critiques: []string{"FAIL: weak"}}
	p := NewPipeline(searcher, llm, Options{
		MaxAttempts: 5,
		Budget:      50 * time.Millisecond,
		RetryDelay:  time.Second,
	})

	ans, err := p.Run(context.Background(), "q")
	if err != nil {
		t.Fatalf("expected fallback answer, got %v", err)
	}
	if ans.Approved || ans.Attempts != 1 || searcher.calls != 1 {
		t.Fatalf("expected one unapproved attempt, got %+v (searches=%d)", ans, searcher.calls)
	}
}

func TestRunBudgetBeforeAnyAttempt(t *testing.T) {
	p := NewPipeline(blockingSearcher{}, &llmStub{critiques: []string{"PASS"}}, Options{Budget: 20 * time.Millisecond})
	_, err := p.Run(context.Background(), "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	searcher := &searcherStub{results: []models.SearchResult{resultWithLen("a", 10)}}
	llm := &llmStub{formatted: "answer", critiques: []string{"FAIL", "FAIL", "PASS"}}
	p := NewPipeline(searcher, llm, Options{Metrics: telemetry.NewMetrics(reg)})

	if _, err := p.Run(context.Background(), "q"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := counterValue(t, reg, "askweb_pipeline_runs_total", "outcome", "approved"); got != 1 {
		t.Fatalf("expected 1 approved run, got %v", got)
	}
	if got := counterValue(t, reg, "askweb_critic_verdicts_total", "verdict", "fail"); got != 2 {
		t.Fatalf("expected 2 failed verdicts, got %v", got)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRunEmitsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	searcher := &searcherStub{results: []models.SearchResult{resultWithLen("a", 10)}}
	llm := &llmStub{formatted: "answer", critiques: []string{"PASS"}}
	if _, err := NewPipeline(searcher, llm, Options{}).Run(context.Background(), "q"); err != nil {
		t.Fatalf("run: %v", err)
	}

	names := map[string]bool{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = true
	}
	for _, want := range []string{"pipeline.run", "pipeline.attempt", "pipeline.search", "pipeline.rerank", "pipeline.format", "pipeline.critique"} {
		if !names[want] {
			t.Fatalf("missing span %s, have %v", want, names)
		}
	}
}

func TestRunTimesRerankStageWithoutError(t *testing.T) {
	reg := prometheus.NewRegistry()
	searcher := &searcherStub{results: []models.SearchResult{resultWithLen("a", 10)}}
	llm := &llmStub{formatted: "answer", critiques: []string{"PASS"}}
	p := NewPipeline(searcher, llm, Options{Metrics: telemetry.NewMetrics(reg)})
	if _, err := p.Run(context.Background(), "q"); err != nil {
		t.Fatalf("run: %v", err)
	}

	// One histogram series per stage: search, rerank, format, critique.
	if n := testutil.CollectAndCount(reg, "askweb_stage_duration_seconds"); n != 4 {
		t.Fatalf("expected 4 stage duration series, got %d", n)
	}
	if n := testutil.CollectAndCount(reg, "askweb_stage_errors_total"); n != 0 {
		t.Fatalf("expected no stage errors, got %d series", n)
	}
}
