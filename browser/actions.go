package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/magalia-labs/voicemesh/core"
	"github.com/magalia-labs/voicemesh/tool"
)

// maxPageText caps how much page text a single read_page call feeds back to
// the model.
const maxPageText = 8000

// actions holds the live browser context and executes the operations the
// model's tools map to. The finish tool records its result here, which ends
// the task loop.
type actions struct {
	ctx     context.Context
	timeout time.Duration

	// exec overrides chromedp.Run when set.
	exec func(ctx context.Context, acts ...chromedp.Action) error

	done   bool
	result string
}

func (a *actions) run(acts ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
	defer cancel()
	if a.exec != nil {
		return a.exec(ctx, acts...)
	}
	return chromedp.Run(ctx, acts...)
}

func (a *actions) navigate(url string) (string, error) {
	err := a.run(
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	return fmt.Sprintf("Opened %s.", url), nil
}

func (a *actions) click(selector string) (string, error) {
	err := a.run(
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("click %q: %w", selector, err)
	}
	return fmt.Sprintf("Clicked %q.", selector), nil
}

func (a *actions) typeText(selector, text string) (string, error) {
	err := a.run(
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("type into %q: %w", selector, err)
	}
	return fmt.Sprintf("Typed %q into %q.", text, selector), nil
}

func (a *actions) readPage() (string, error) {
	var url, title, text string
	err := a.run(
		chromedp.Location(&url),
		chromedp.Title(&title),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	text = strings.TrimSpace(text)
	if len(text) > maxPageText {
		text = text[:maxPageText] + "\n[truncated]"
	}
	return fmt.Sprintf("URL: %s\nTitle: %s\n\n%s", url, title, text), nil
}

// tools exposes the browser operations as model-callable tools.
func (a *actions) tools() []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionTool("navigate",
			"Open a URL in the browser.",
			objectSchema(map[string]any{
				"url": map[string]any{"type": "string", "description": "Absolute URL to open"},
			}, "url"),
			func(_ *core.ToolContext, args map[string]any) (any, error) {
				return a.navigate(args["url"].(string))
			},
		),
		tool.NewFunctionTool("click",
			"Click the element matching a CSS selector.",
			objectSchema(map[string]any{
				"selector": map[string]any{"type": "string", "description": "CSS selector of the element to click"},
			}, "selector"),
			func(_ *core.ToolContext, args map[string]any) (any, error) {
				return a.click(args["selector"].(string))
			},
		),
		tool.NewFunctionTool("type",
			"Type text into the element matching a CSS selector.",
			objectSchema(map[string]any{
				"selector": map[string]any{"type": "string", "description": "CSS selector of the input element"},
				"text":     map[string]any{"type": "string", "description": "Text to type"},
			}, "selector", "text"),
			func(_ *core.ToolContext, args map[string]any) (any, error) {
				return a.typeText(args["selector"].(string), args["text"].(string))
			},
		),
		tool.NewFunctionTool("read_page",
			"Read the current page's URL, title and visible text.",
			objectSchema(map[string]any{}),
			func(_ *core.ToolContext, _ map[string]any) (any, error) {
				return a.readPage()
			},
		),
		tool.NewFunctionTool("finish",
			"Finish the task and report the result to the user.",
			objectSchema(map[string]any{
				"result": map[string]any{"type": "string", "description": "Final answer or summary of what was done"},
			}, "result"),
			func(_ *core.ToolContext, args map[string]any) (any, error) {
				a.done = true
				a.result = args["result"].(string)
				return "Task finished.", nil
			},
		),
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
