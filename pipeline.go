package advisory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Model completes a prompt into the raw text of an advisory output.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RequestModel is a Model adapting itself to each request, e.g. to the documents it may cite.
type RequestModel interface {
	Model
	ForRequest(in *PlanInputs) Model
}

// State is a step of an advisory request.
type State int

const (
	BuildingPrompt State = iota
	AwaitingModel
	Validating
	Retrying
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case BuildingPrompt:
		return "BUILDING_PROMPT"
	case AwaitingModel:
		return "AWAITING_MODEL"
	case Validating:
		return "VALIDATING"
	case Retrying:
		return "RETRYING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Succeeded || s == Failed }

// Event is a state transition of a request.
type Event struct {
	RequestID string
	Attempt   int
	From, To  State
	// Err is the reason for entering Retrying or Failed.
	Err error
}

// DefaultMaxRetries is the number of corrective retries after the first attempt.
const DefaultMaxRetries = 2

// Pipeline asks the model for an advisory and validates it, retrying with the validation
// errors fed back into the prompt.
//
// A Pipeline holds no per-request state and can serve concurrent requests.
type Pipeline struct {
	Model     Model
	Validator *Validator
	// MaxRetries bounds the attempts after the first one. Negative means none.
	MaxRetries int
	// Timeout bounds each model call, zero means no timeout other than the caller's context.
	Timeout time.Duration
	Logger  logrus.FieldLogger
	// Observe, if set, is called on every state transition.
	Observe func(Event)
}

// NewPipeline returns a Pipeline with the default retry budget and policy.
func NewPipeline(m Model) *Pipeline {
	return &Pipeline{
		Model:      m,
		Validator:  NewValidator(DefaultPolicy()),
		MaxRetries: DefaultMaxRetries,
	}
}

// run tracks one request through the pipeline.
type run struct {
	*Pipeline
	id      string
	log     logrus.FieldLogger
	state   State
	attempt int
}

func (r *run) to(s State, err error) {
	e := Event{RequestID: r.id, Attempt: r.attempt, From: r.state, To: s, Err: err}
	r.state = s
	entry := r.log.WithFields(logrus.Fields{"attempt": r.attempt, "state": s})
	switch {
	case s == Failed:
		entry.WithError(err).Warn("advisory failed")
	case err != nil:
		entry.WithError(err).Info("advisory rejected")
	default:
		entry.Debug("advisory transition")
	}
	if r.Observe != nil {
		r.Observe(e)
	}
}

func (r *run) failed(err error) error {
	r.to(Failed, err)
	return &PipelineError{Attempts: r.attempt, Last: err}
}

// Run produces a validated advisory for in.
//
// It returns a *PipelineError wrapping the last failure when no attempt produced a valid
// output. It never returns an output that did not pass every audit.
func (p *Pipeline) Run(ctx context.Context, in *PlanInputs) (*AdvisoryOutput, error) {
	id := RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	log := p.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &run{Pipeline: p, id: id, log: log.WithField("request_id", id), state: BuildingPrompt}

	base, err := BuildPrompt(in, p.Validator.Policy)
	if err != nil {
		return nil, r.failed(err)
	}

	model := p.Model
	if rm, ok := model.(RequestModel); ok {
		model = rm.ForRequest(in)
	}

	attempts := 1 + max(p.MaxRetries, 0)
	prompt := base
	var last error
	for r.attempt = 1; r.attempt <= attempts; r.attempt++ {
		if last != nil {
			r.to(Retrying, last)
			// Model failures are retried as is, rejected outputs are corrected.
			if !errors.Is(last, ErrModelCall) {
				if prompt, err = CorrectionPrompt(base, last); err != nil {
					return nil, r.failed(err)
				}
			}
		}

		r.to(AwaitingModel, nil)
		raw, err := p.complete(ctx, model, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, r.failed(fmt.Errorf("%w: %w", ErrModelCall, ctx.Err()))
			}
			last = fmt.Errorf("%w: %w", ErrModelCall, err)
			continue
		}

		r.to(Validating, nil)
		out, err := ParseAdvisoryOutput([]byte(raw))
		if err != nil {
			last = err
			continue
		}
		report := p.Validator.Validate(in, out)
		if err := report.Err(); err != nil {
			last = err
			continue
		}
		r.to(Succeeded, nil)
		return out, nil
	}
	r.attempt = attempts
	return nil, r.failed(last)
}

// complete calls m within the per attempt timeout.
func (p *Pipeline) complete(ctx context.Context, m Model, prompt string) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return m.Complete(ctx, prompt)
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request id used in logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
