// Package browser runs natural-language browsing tasks by putting a model in
// a loop with a headless Chrome. The model steers the browser through a small
// set of tools (navigate, click, type, read_page, finish) and calls finish
// when the task is done.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/magalia-labs/voicemesh/core"
	"github.com/magalia-labs/voicemesh/logging"
	"github.com/magalia-labs/voicemesh/model"
	"github.com/magalia-labs/voicemesh/tool"
)

// ErrMaxSteps is returned when a task does not finish within MaxSteps
// tool rounds.
var ErrMaxSteps = errors.New("browser: max steps reached without finish")

const defaultInstructions = "You control a web browser to complete the user's task. " +
	"Work in small steps: navigate to a page, read it, then act. " +
	"Use CSS selectors for click and type. " +
	"When the task is complete, call finish with a concise result."

// Options configure a task Runner.
type Options struct {
	// ExecPath points at a specific Chrome/Chromium binary. Empty uses the
	// allocator's default lookup.
	ExecPath string

	// Headless runs the browser without a window. Default true.
	Headless bool

	// MaxSteps bounds the number of model/tool rounds per task. Default 20.
	MaxSteps int

	// ActionTimeout bounds each individual browser action. Default 15s.
	ActionTimeout time.Duration

	// Instructions override the default system prompt.
	Instructions string

	Logger logging.Logger
}

// Runner executes browsing tasks with a model.
type Runner struct {
	model  model.Model
	opts   Options
	logger logging.Logger
}

// NewRunner creates a Runner over the given model.
func NewRunner(m model.Model, optFns ...func(o *Options)) (*Runner, error) {
	if m == nil {
		return nil, fmt.Errorf("browser: model is required")
	}

	opts := Options{
		Headless:      true,
		MaxSteps:      20,
		ActionTimeout: 15 * time.Second,
		Instructions:  defaultInstructions,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		model:  m,
		opts:   opts,
		logger: opts.Logger,
	}, nil
}

// Run executes a single task and returns the result the model reported via
// the finish tool (or its final text reply when it stops calling tools).
// The browser lives for the duration of the call.
func (r *Runner) Run(ctx context.Context, task string) (string, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.opts.Headless),
	)
	if r.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	b := &actions{ctx: browserCtx, timeout: r.opts.ActionTimeout}
	return r.loop(ctx, task, b, b.tools())
}

// loop is the model/tool round trip, separated from browser setup so tests
// can drive it with stub actions.
func (r *Runner) loop(ctx context.Context, task string, b *actions, tools []tool.Tool) (string, error) {
	index := make(map[string]tool.Tool, len(tools))
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		index[t.Name()] = t
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	chat := core.NewChatContext()
	chat.AddMessage(core.RoleUser, task)
	runCtx := core.NewRunContext(ctx, core.NewID(), "browser", nil, r.logger)

	r.logger.Info("browser.task.start", "task", task)

	for step := 0; step < r.opts.MaxSteps; step++ {
		resp, err := r.generate(ctx, chat, defs)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			r.logger.Info("browser.task.done", "steps", step)
			return resp.Text, nil
		}

		for _, call := range resp.ToolCalls {
			fc := core.NewFunctionCall(call.ID, call.Name, call.Arguments)
			chat.Append([]core.Item{fc})

			out, err := r.executeCall(runCtx, index, fc, call)
			chat.Append([]core.Item{core.NewFunctionOutput(call.ID, call.Name, out, err)})

			if b.done {
				r.logger.Info("browser.task.done", "steps", step+1)
				return b.result, nil
			}
		}
	}

	return "", ErrMaxSteps
}

func (r *Runner) executeCall(runCtx *core.RunContext, index map[string]tool.Tool, fc core.FunctionCall, call model.ToolCall) (any, error) {
	t, ok := index[call.Name]
	if !ok {
		return nil, fmt.Errorf("browser: unknown tool %q", call.Name)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, fmt.Errorf("browser: invalid arguments for %q: %w", call.Name, err)
		}
	}

	tc := core.NewToolContext(runCtx, fc.ID)
	out, err := t.Call(tc, args)
	if err != nil {
		r.logger.Warn("browser.tool.error", "tool", call.Name, "error", err.Error())
	}
	return out, err
}

func (r *Runner) generate(ctx context.Context, chat *core.ChatContext, defs []model.ToolDefinition) (*model.Response, error) {
	respCh, errCh := r.model.Generate(ctx, model.Request{
		Instructions: r.opts.Instructions,
		Items:        chat.Items(),
		Tools:        defs,
		ToolChoice:   model.ToolChoiceAuto,
	})

	var final *model.Response
	for resp := range respCh {
		if !resp.Partial {
			v := resp
			final = &v
		}
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("browser: generate: %w", err)
	}
	if final == nil {
		return nil, fmt.Errorf("browser: model produced no final response")
	}
	return final, nil
}
