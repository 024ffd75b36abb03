package tool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/questplan/internal/auth"
	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/llm"
	"github.com/p-blackswan/questplan/internal/metrics"
	"github.com/p-blackswan/questplan/internal/notify"
	"github.com/p-blackswan/questplan/internal/roadmap"
	"github.com/p-blackswan/questplan/internal/store"
)

// Store is the data layer the bridge delegates to. Every method checks the
// caller's role on the project itself.
type Store interface {
	CreateTask(ctx context.Context, userID string, in store.CreateTaskInput) (*roadmap.Task, error)
	UpdateTask(ctx context.Context, userID string, in store.UpdateTaskInput) (*store.TaskUpdate, error)
	DeleteTask(ctx context.Context, userID string, projectID, taskID int64) error
	ListTasks(ctx context.Context, userID string, projectID int64, filter store.TaskFilter) ([]roadmap.Task, error)

	CreatePhase(ctx context.Context, userID string, in store.CreatePhaseInput) (*roadmap.Phase, error)
	UpdatePhase(ctx context.Context, userID string, in store.UpdatePhaseInput) (*roadmap.Phase, error)
	DeletePhase(ctx context.Context, userID string, projectID, phaseID int64) (int64, error)

	AddDependency(ctx context.Context, userID string, projectID, taskID, predecessorID int64) (*roadmap.Dependency, error)
	RemoveDependency(ctx context.Context, userID string, projectID, dependencyID int64) error

	Snapshot(ctx context.Context, userID string, projectID int64) (*roadmap.Snapshot, error)
}

// Bridge is the assistant tool bridge over a Store.
type Bridge struct {
	registry *Registry
	store    Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithNotifier(n notify.Notifier) Option {
	return func(b *Bridge) {
		if n != nil {
			b.notifier = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// NewBridge registers every operation against st.
func NewBridge(st Store, opts ...Option) *Bridge {
	b := &Bridge{
		registry: NewRegistry(),
		store:    st,
		notifier: notify.Nop{},
		logger:   zerolog.Nop(),
	}
	for _, fn := range opts {
		fn(b)
	}
	b.logger = b.logger.With().Str("component", "tool").Logger()

	for _, op := range b.operations() {
		b.registry.Register(op)
	}
	return b
}

// Schemas returns the operation menu for the model.
func (b *Bridge) Schemas() []llm.ToolSchema { return b.registry.Schemas() }

// Names returns every operation name.
func (b *Bridge) Names() []string { return b.registry.Names() }

// Execute runs the named operation as the principal carried by ctx.
func (b *Bridge) Execute(ctx context.Context, name string, input json.RawMessage) Result {
	start := time.Now()
	res := b.registry.Execute(ctx, name, input)
	b.metrics.RecordToolCall(name, res.Success)

	ev := b.logger.Debug()
	if !res.Success {
		ev = b.logger.Warn().Str("code", string(res.Code)).Str("error", res.Error)
	}
	if p, ok := auth.FromContext(ctx); ok {
		ev = ev.Str("user_id", p.UserID)
	}
	ev.Str("tool", name).Bool("success", res.Success).Dur("duration", time.Since(start)).Msg("tool executed")
	return res
}

// operation adapts a typed handler to Operation.
type operation[A Args] struct {
	schema llm.ToolSchema
	run    func(ctx context.Context, userID string, args A) (Result, error)
}

func newOp[A Args](name, desc string, schema map[string]any, run func(context.Context, string, A) (Result, error)) *operation[A] {
	return &operation[A]{
		schema: llm.ToolSchema{Name: name, Description: desc, InputSchema: MustSchema(schema)},
		run:    run,
	}
}

func (o *operation[A]) Schema() llm.ToolSchema { return o.schema }

// Execute authenticates, decodes and validates before calling the handler,
// so nothing reaches the store unless the arguments are well formed.
func (o *operation[A]) Execute(ctx context.Context, input json.RawMessage) Result {
	p, err := auth.Require(ctx)
	if err != nil {
		return Fail(err)
	}
	if len(input) == 0 || string(input) == "null" {
		input = json.RawMessage(`{}`)
	}
	var args A
	if err := json.Unmarshal(input, &args); err != nil {
		return Fail(perrors.Invalid("%s arguments: %v", o.schema.Name, err))
	}
	if err := args.Validate(); err != nil {
		return Fail(err)
	}
	res, err := o.run(ctx, p.UserID, args)
	if err != nil {
		return Fail(err)
	}
	res.Success = true
	return res
}

// announce sends achievement notifications for a task that just completed.
// Failures are logged only.
func (b *Bridge) announce(ctx context.Context, userID string, task roadmap.Task) {
	snap, err := b.store.Snapshot(ctx, userID, task.ProjectID)
	if err != nil {
		b.logger.Warn().Err(err).Int64("project_id", task.ProjectID).Msg("Skipping completion notification")
		return
	}
	for _, e := range notify.Completion(userID, snap, task) {
		if err := b.notifier.Notify(ctx, e); err != nil {
			b.logger.Warn().Err(err).Str("kind", string(e.Kind)).Msg("Notification failed")
		}
	}
}
