package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/datachat/datachat/internal/history"
	"github.com/datachat/datachat/internal/llm"
	"github.com/datachat/datachat/internal/store"
	"github.com/datachat/datachat/internal/viz"
)

type fakeSchema struct {
	schema store.Schema
	err    error
}

func (f *fakeSchema) Schema(context.Context) (store.Schema, error) {
	return f.schema, f.err
}

type fakeExecutor struct {
	result  store.Result
	err     error
	lastSQL string
	calls   int
}

func (f *fakeExecutor) Execute(_ context.Context, sqlText string) (store.Result, error) {
	f.calls++
	f.lastSQL = sqlText
	return f.result, f.err
}

// fakeModel replays one response per call in order. Prompts are captured for
// assertions.
type fakeModel struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeModel) Generate(_ context.Context, req llm.GenerateRequest) (string, error) {
	call := len(f.prompts)
	f.prompts = append(f.prompts, req.Prompt)
	var err error
	if call < len(f.errs) {
		err = f.errs[call]
	}
	if err != nil {
		return "", err
	}
	if call < len(f.responses) {
		return f.responses[call], nil
	}
	return "", errors.New("unexpected model call")
}

func olistSchema() store.Schema {
	return store.Schema{Tables: []store.Table{
		{Name: "customers", Columns: []string{"customer_id", "customer_unique_id", "customer_city", "customer_state"}},
		{Name: "orders", Columns: []string{"order_id", "customer_id", "order_status"}},
	}}
}

func newPipeline(model *fakeModel, executor *fakeExecutor) *Pipeline {
	return &Pipeline{
		Schema:   &fakeSchema{schema: olistSchema()},
		Executor: executor,
		Model:    model,
	}
}

func TestProcessHappyPath(t *testing.T) {
	model := &fakeModel{responses: []string{
		"```sql\nSELECT COUNT(*) FROM customers;\n```",
		"There are 99441 customers in the dataset.",
	}}
	executor := &fakeExecutor{result: store.Result{
		Columns: []string{"count"},
		Rows:    [][]any{{int64(99441)}},
	}}

	env := newPipeline(model, executor).Process(context.Background(), "How many customers are there?", Options{})

	if executor.lastSQL != "SELECT COUNT(*) FROM customers;" {
		t.Fatalf("executed sql = %q", executor.lastSQL)
	}
	if env.Text != "There are 99441 customers in the dataset." {
		t.Fatalf("Text = %q", env.Text)
	}
	if env.Visualization == nil || env.Visualization.Type != viz.ChartTable {
		t.Fatalf("Visualization = %+v, want table", env.Visualization)
	}
	if len(model.prompts) != 2 {
		t.Fatalf("model calls = %d", len(model.prompts))
	}
	if !strings.Contains(model.prompts[0], "-- Table customers: customer_id, customer_unique_id, customer_city, customer_state") {
		t.Fatalf("sql prompt missing schema line:\n%s", model.prompts[0])
	}
	if !strings.Contains(model.prompts[1], "CSV:") || !strings.Contains(model.prompts[1], "count\n99441") {
		t.Fatalf("summary prompt missing csv sample:\n%s", model.prompts[1])
	}
}

func TestProcessBarVisualization(t *testing.T) {
	model := &fakeModel{responses: []string{
		"SELECT customer_state, COUNT(*) AS num_customers FROM customers GROUP BY customer_state",
		"SP leads with 120 customers, ahead of RJ at 80.",
	}}
	executor := &fakeExecutor{result: store.Result{
		Columns: []string{"customer_state", "num_customers"},
		Rows:    [][]any{{"SP", int64(120)}, {"RJ", int64(80)}},
	}}

	env := newPipeline(model, executor).Process(context.Background(), "Customers per state?", Options{})

	if env.Visualization == nil || env.Visualization.Type != viz.ChartBar {
		t.Fatalf("Visualization = %+v, want bar", env.Visualization)
	}
	if env.Visualization.XLabel != "customer_state" || env.Visualization.YLabel != "num_customers" {
		t.Fatalf("labels = %q/%q", env.Visualization.XLabel, env.Visualization.YLabel)
	}
}

func TestProcessExtractionFailure(t *testing.T) {
	model := &fakeModel{responses: []string{"I cannot answer that question about the weather."}}
	executor := &fakeExecutor{}

	env := newPipeline(model, executor).Process(context.Background(), "What is the weather?", Options{})

	if env.Text != "I could not generate a valid SQL query." {
		t.Fatalf("Text = %q", env.Text)
	}
	if env.Visualization != nil {
		t.Fatalf("Visualization = %+v, want nil", env.Visualization)
	}
	if executor.calls != 0 {
		t.Fatal("executor must not run after extraction failure")
	}
	if len(model.prompts) != 1 {
		t.Fatalf("model calls = %d, want 1 (no summarization)", len(model.prompts))
	}
}

func TestProcessValidationFailure(t *testing.T) {
	model := &fakeModel{responses: []string{"SELECT * FROM reviews_summary;"}}
	executor := &fakeExecutor{}

	env := newPipeline(model, executor).Process(context.Background(), "Summarize reviews", Options{})

	if executor.calls != 0 {
		t.Fatal("executor must not run after validation failure")
	}
	if !strings.Contains(env.Text, "reviews_summary") {
		t.Fatalf("Text should name the missing table: %q", env.Text)
	}
	if !strings.Contains(env.Text, "customers, orders") {
		t.Fatalf("Text should list available tables: %q", env.Text)
	}
	if !strings.Contains(env.Text, "SELECT customer_state, COUNT(*) AS num_customers FROM customers") {
		t.Fatalf("Text should offer example queries: %q", env.Text)
	}
	if env.Visualization != nil {
		t.Fatalf("Visualization = %+v, want nil", env.Visualization)
	}
}

func TestProcessExecutionFailure(t *testing.T) {
	model := &fakeModel{responses: []string{"SELECT nope FROM customers;"}}
	executor := &fakeExecutor{err: errors.New(`column "nope" not found`)}

	env := newPipeline(model, executor).Process(context.Background(), "broken", Options{})

	if !strings.HasPrefix(env.Text, "SQL execution failed: ") {
		t.Fatalf("Text = %q", env.Text)
	}
	if !strings.Contains(env.Text, `column "nope" not found`) {
		t.Fatalf("Text should carry the raw executor error: %q", env.Text)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("model calls = %d, want 1", len(model.prompts))
	}
}

func TestProcessSummarizationFailureIsFatal(t *testing.T) {
	model := &fakeModel{
		responses: []string{"SELECT COUNT(*) FROM customers;", ""},
		errs:      []error{nil, errors.New("model api status 429: quota exhausted")},
	}
	executor := &fakeExecutor{result: store.Result{Columns: []string{"count"}, Rows: [][]any{{int64(1)}}}}

	env := newPipeline(model, executor).Process(context.Background(), "count", Options{})

	if !strings.HasPrefix(env.Text, "Error: ") || !strings.Contains(env.Text, "quota exhausted") {
		t.Fatalf("Text = %q", env.Text)
	}
	if env.Visualization != nil {
		t.Fatalf("Visualization = %+v, want nil", env.Visualization)
	}
}

func TestProcessModelFailure(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("connection refused")}}
	executor := &fakeExecutor{}

	env := newPipeline(model, executor).Process(context.Background(), "anything", Options{})

	if !strings.HasPrefix(env.Text, "Error: ") {
		t.Fatalf("Text = %q", env.Text)
	}
}

type panicSchema struct{}

func (panicSchema) Schema(context.Context) (store.Schema, error) {
	panic("catalog gone sideways")
}

func TestProcessRecoversPanic(t *testing.T) {
	p := &Pipeline{
		Schema:   panicSchema{},
		Executor: &fakeExecutor{},
		Model:    &fakeModel{},
	}

	env := p.Process(context.Background(), "boom", Options{})

	if env.Text != "Error: catalog gone sideways" {
		t.Fatalf("Text = %q", env.Text)
	}
	if env.Visualization != nil {
		t.Fatalf("Visualization = %+v, want nil", env.Visualization)
	}
}

func TestProcessChartOverride(t *testing.T) {
	model := &fakeModel{responses: []string{
		"SELECT customer_state, COUNT(*) FROM customers GROUP BY customer_state;",
		"summary",
	}}
	executor := &fakeExecutor{result: store.Result{
		Columns: []string{"customer_state", "n"},
		Rows:    [][]any{{"SP", int64(120)}},
	}}

	env := newPipeline(model, executor).Process(context.Background(), "states", Options{ChartType: viz.ChartPie})

	if env.Visualization == nil || env.Visualization.Type != viz.ChartPie {
		t.Fatalf("Visualization = %+v, want pie", env.Visualization)
	}
}

func TestProcessChartOverrideShapeMismatchDegrades(t *testing.T) {
	model := &fakeModel{responses: []string{"SELECT COUNT(*) FROM customers;", "summary"}}
	executor := &fakeExecutor{result: store.Result{Columns: []string{"count"}, Rows: [][]any{{int64(1)}}}}

	env := newPipeline(model, executor).Process(context.Background(), "count", Options{ChartType: viz.ChartBar})

	if env.Visualization != nil {
		t.Fatalf("Visualization = %+v, want nil for one-column bar request", env.Visualization)
	}
	if env.Text != "summary" {
		t.Fatalf("Text = %q", env.Text)
	}
}

func TestProcessRecordsTurns(t *testing.T) {
	recorder := history.NewMemoryRecorder()
	model := &fakeModel{responses: []string{"SELECT COUNT(*) FROM customers;", "one customer"}}
	executor := &fakeExecutor{result: store.Result{Columns: []string{"count"}, Rows: [][]any{{int64(1)}}}}
	p := newPipeline(model, executor)
	p.History = recorder

	p.Process(context.Background(), "How many customers?", Options{ConversationID: "conv-1"})
	model.prompts = nil
	model.responses = []string{"SELECT * FROM unknown_table;"}
	p.Process(context.Background(), "bad one", Options{ConversationID: "conv-1"})

	turns, err := recorder.ListTurns(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("turns = %d", len(turns))
	}
	if turns[0].Status != history.StatusOK || turns[0].SQL != "SELECT COUNT(*) FROM customers;" {
		t.Fatalf("first turn = %+v", turns[0])
	}
	if turns[1].Status != history.StatusValidationFailed {
		t.Fatalf("second turn status = %q", turns[1].Status)
	}
	if turns[0].ID == "" || turns[0].ID == turns[1].ID {
		t.Fatal("turn ids must be unique and non-empty")
	}
}

func TestProcessSkipsRecordingWithoutConversation(t *testing.T) {
	recorder := history.NewMemoryRecorder()
	model := &fakeModel{responses: []string{"SELECT COUNT(*) FROM customers;", "one"}}
	executor := &fakeExecutor{result: store.Result{Columns: []string{"count"}, Rows: [][]any{{int64(1)}}}}
	p := newPipeline(model, executor)
	p.History = recorder

	p.Process(context.Background(), "count", Options{})

	if _, err := recorder.ListTurns(context.Background(), ""); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("ListTurns() error = %v, want ErrNotFound", err)
	}
}

func TestSampleCSVLimitsRows(t *testing.T) {
	result := store.Result{Columns: []string{"n"}}
	for i := 0; i < 30; i++ {
		result.Rows = append(result.Rows, []any{int64(i)})
	}

	sample := sampleCSV(result, 20)

	lines := strings.Split(strings.TrimSpace(sample), "\n")
	if len(lines) != 21 {
		t.Fatalf("csv lines = %d, want header plus 20 rows", len(lines))
	}
	if lines[0] != "n" || lines[1] != "0" || lines[20] != "19" {
		t.Fatalf("unexpected csv content: %v", lines[:3])
	}
}
