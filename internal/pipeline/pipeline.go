// Package pipeline turns a free-text question into a Response Envelope. It
// owns the stage order (generate, extract, validate, execute, summarize,
// visualize) and the fixed user-facing messages for each failure mode.
package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datachat/datachat/internal/history"
	"github.com/datachat/datachat/internal/llm"
	"github.com/datachat/datachat/internal/observability"
	"github.com/datachat/datachat/internal/sqlextract"
	"github.com/datachat/datachat/internal/sqlvalidate"
	"github.com/datachat/datachat/internal/store"
	"github.com/datachat/datachat/internal/viz"
)

const extractionFailedText = "I could not generate a valid SQL query."

// exampleQueries are offered when generated SQL references unknown tables.
// They are scoped to the customers table, which every deployment carries.
var exampleQueries = []string{
	"Top 5 states by number of customers: SELECT customer_state, COUNT(*) AS num_customers FROM customers GROUP BY customer_state ORDER BY num_customers DESC LIMIT 5;",
	"Number of unique customers: SELECT COUNT(DISTINCT customer_unique_id) FROM customers;",
	"Customers in a city (replace CITY_NAME): SELECT * FROM customers WHERE customer_city = 'CITY_NAME' LIMIT 20;",
}

// Envelope is the terminal response of every pipeline run. Text is always
// populated; Visualization is nil whenever no chart applies.
type Envelope struct {
	Text          string         `json:"text"`
	Visualization *viz.ChartSpec `json:"visualization"`
}

// Options carry per-request knobs. An empty ChartType means auto-detection.
type Options struct {
	ConversationID string
	ChartType      viz.ChartType
}

type Config struct {
	Temperature       float64
	SQLMaxTokens      int
	SummaryMaxTokens  int
	SummarySampleRows int
}

type Pipeline struct {
	Schema   store.SchemaProvider
	Executor store.Executor
	Model    llm.Client
	History  history.Recorder
	Config   Config
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Process runs the full pipeline for one question. It never returns an
// error: every failure mode, panics included, collapses into an Envelope
// whose Text explains what went wrong.
func (p *Pipeline) Process(ctx context.Context, question string, opts Options) Envelope {
	p.ensureDefaults()

	start := p.Clock()
	outcome := outcomeOf{status: history.StatusError}

	func() {
		defer func() {
			if r := recover(); r != nil {
				p.Logger.ErrorContext(ctx, "pipeline panic recovered", slog.Any("panic", r))
				outcome = outcomeOf{
					status:   history.StatusError,
					envelope: Envelope{Text: fmt.Sprintf("Error: %v", r)},
				}
			}
		}()
		outcome = p.run(ctx, question, opts)
	}()

	observability.ObservePipelineOutcome(outcome.status)
	p.recordTurn(ctx, question, opts.ConversationID, outcome, p.Clock().Sub(start))
	return outcome.envelope
}

type outcomeOf struct {
	status   string
	sql      string
	envelope Envelope
}

func (p *Pipeline) run(ctx context.Context, question string, opts Options) outcomeOf {
	schema, err := p.Schema.Schema(ctx)
	if err != nil {
		p.Logger.ErrorContext(ctx, "schema snapshot failed", slog.Any("error", err))
		return outcomeOf{status: history.StatusError, envelope: Envelope{Text: fmt.Sprintf("Error: %v", err)}}
	}

	raw, err := p.generateSQL(ctx, question, schema)
	if err != nil {
		p.Logger.ErrorContext(ctx, "sql generation failed", slog.Any("error", err))
		return outcomeOf{status: history.StatusModelFailed, envelope: Envelope{Text: fmt.Sprintf("Error: %v", err)}}
	}

	extractStart := p.Clock()
	sqlText, ok := sqlextract.Extract(raw)
	observability.ObservePipelineStage("extract", p.Clock().Sub(extractStart))
	if !ok {
		p.Logger.WarnContext(ctx, "sql extraction failed", slog.String("raw_prefix", prefix(raw, 200)))
		return outcomeOf{status: history.StatusExtractionFailed, envelope: Envelope{Text: extractionFailedText}}
	}

	validateStart := p.Clock()
	validation := sqlvalidate.Validate(sqlText, schema)
	observability.ObservePipelineStage("validate", p.Clock().Sub(validateStart))
	if !validation.OK {
		p.Logger.WarnContext(ctx, "sql references unknown tables",
			slog.Any("missing", validation.Missing),
			slog.String("sql", sqlText))
		return outcomeOf{
			status:   history.StatusValidationFailed,
			sql:      sqlText,
			envelope: Envelope{Text: validationFailedText(validation)},
		}
	}

	executeStart := p.Clock()
	result, err := p.Executor.Execute(ctx, sqlText)
	observability.ObservePipelineStage("execute", p.Clock().Sub(executeStart))
	if err != nil {
		p.Logger.ErrorContext(ctx, "sql execution failed", slog.String("sql", sqlText), slog.Any("error", err))
		return outcomeOf{
			status:   history.StatusExecutionFailed,
			sql:      sqlText,
			envelope: Envelope{Text: fmt.Sprintf("SQL execution failed: %v", err)},
		}
	}
	observability.ObserveQueryRows(len(result.Rows))

	summary, err := p.summarize(ctx, sqlText, result)
	if err != nil {
		p.Logger.ErrorContext(ctx, "result summarization failed", slog.Any("error", err))
		return outcomeOf{
			status:   history.StatusModelFailed,
			sql:      sqlText,
			envelope: Envelope{Text: fmt.Sprintf("Error: %v", err)},
		}
	}

	return outcomeOf{
		status:   history.StatusOK,
		sql:      sqlText,
		envelope: Envelope{Text: summary, Visualization: p.visualize(ctx, result, opts.ChartType)},
	}
}

func (p *Pipeline) generateSQL(ctx context.Context, question string, schema store.Schema) (string, error) {
	start := p.Clock()
	raw, err := p.Model.Generate(ctx, llm.GenerateRequest{
		Prompt:          sqlPrompt(question, schema),
		Temperature:     p.Config.Temperature,
		MaxOutputTokens: p.Config.SQLMaxTokens,
	})
	elapsed := p.Clock().Sub(start)
	observability.ObservePipelineStage("generate_sql", elapsed)
	observability.ObserveLLMCall("sql", err, elapsed)
	return raw, err
}

func (p *Pipeline) summarize(ctx context.Context, sqlText string, result store.Result) (string, error) {
	start := p.Clock()
	raw, err := p.Model.Generate(ctx, llm.GenerateRequest{
		Prompt:          summaryPrompt(sqlText, result, p.Config.SummarySampleRows),
		Temperature:     p.Config.Temperature,
		MaxOutputTokens: p.Config.SummaryMaxTokens,
	})
	elapsed := p.Clock().Sub(start)
	observability.ObservePipelineStage("summarize", elapsed)
	observability.ObserveLLMCall("summary", err, elapsed)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// visualize never fails the pipeline. A chart that cannot be built for the
// result shape degrades to no visualization.
func (p *Pipeline) visualize(ctx context.Context, result store.Result, chartType viz.ChartType) *viz.ChartSpec {
	start := p.Clock()
	defer func() {
		observability.ObservePipelineStage("visualize", p.Clock().Sub(start))
	}()

	if result.Empty() {
		return nil
	}
	if chartType == "" {
		spec := viz.Select(result)
		return &spec
	}
	spec, err := viz.New(result, chartType)
	if err != nil {
		p.Logger.WarnContext(ctx, "requested chart does not fit result shape",
			slog.String("chart_type", string(chartType)),
			slog.Any("error", err))
		return nil
	}
	return &spec
}

func (p *Pipeline) recordTurn(ctx context.Context, question, conversationID string, out outcomeOf, elapsed time.Duration) {
	if p.History == nil || conversationID == "" {
		return
	}
	turn := history.Turn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Question:       question,
		SQL:            out.sql,
		Status:         out.status,
		Answer:         out.envelope.Text,
		Duration:       elapsed,
		CreatedAt:      p.Clock().UTC(),
	}
	if err := p.History.Record(ctx, turn); err != nil {
		p.Logger.ErrorContext(ctx, "turn recording failed",
			slog.String("conversation_id", conversationID),
			slog.Any("error", err))
	}
}

func (p *Pipeline) ensureDefaults() {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.Config.SQLMaxTokens <= 0 {
		p.Config.SQLMaxTokens = 512
	}
	if p.Config.SummaryMaxTokens <= 0 {
		p.Config.SummaryMaxTokens = 512
	}
	if p.Config.SummarySampleRows <= 0 {
		p.Config.SummarySampleRows = 20
	}
}

func sqlPrompt(question string, schema store.Schema) string {
	var b strings.Builder
	b.WriteString("You are an expert SQL generator. ")
	b.WriteString("Given the schema and question, output ONLY a valid SQL query. ")
	b.WriteString("NO explanation. NO wording. NO markdown. Only SQL.\n\n")
	for _, table := range schema.Tables {
		fmt.Fprintf(&b, "-- Table %s: %s\n", table.Name, strings.Join(table.Columns, ", "))
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n\nOutput only SQL.", question)
	return b.String()
}

func summaryPrompt(sqlText string, result store.Result, sampleRows int) string {
	return fmt.Sprintf(
		"Summarize this SQL result in 2-4 sentences and recommend a chart type.\n\nSQL:\n%s\n\nCSV:\n%s\nAnswer:",
		sqlText, sampleCSV(result, sampleRows))
}

func validationFailedText(v sqlvalidate.Validation) string {
	return fmt.Sprintf(
		"The generated SQL references tables not available in the database: %s. Available tables: %s.\nTry one of these example queries:\n- %s",
		strings.Join(v.Missing, ", "),
		strings.Join(v.Available, ", "),
		strings.Join(exampleQueries, "\n- "))
}

// sampleCSV renders the header plus at most limit rows. The writer cannot
// fail on a bytes.Buffer, so errors are ignored.
func sampleCSV(result store.Result, limit int) string {
	buf := bytes.NewBuffer(nil)
	w := csv.NewWriter(buf)
	_ = w.Write(result.Columns)
	for i, row := range result.Rows {
		if i >= limit {
			break
		}
		record := make([]string, len(result.Columns))
		for j := range result.Columns {
			if j < len(row) && row[j] != nil {
				record[j] = fmt.Sprintf("%v", row[j])
			}
		}
		_ = w.Write(record)
	}
	w.Flush()
	return buf.String()
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
