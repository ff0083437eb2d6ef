package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// APIRunner executes tasks through the Anthropic API directly instead of the
// Claude Code CLI. It produces advice rather than workspace edits: the model
// has no tools, so the response text is the whole result. Useful for planning
// tasks and environments without the CLI installed.
type APIRunner struct {
	client  anthropic.Client
	model   anthropic.Model
	bedrock bool
	tracker *TokenTracker
}

// APIConfig configures an APIRunner.
type APIConfig struct {
	// Model is the default model alias or full name; empty means sonnet.
	Model string
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey string
	// UseAWSBedrock routes requests through AWS Bedrock.
	UseAWSBedrock bool
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS shared-config profile.
	AWSProfile string
}

// NewAPIRunner creates an API-backed runner.
func NewAPIRunner(cfg APIConfig) (*APIRunner, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := resolveModel(cfg.Model)
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	return &APIRunner{
		client:  anthropic.NewClient(opts...),
		model:   model,
		bedrock: cfg.UseAWSBedrock,
		tracker: NewTokenTracker(),
	}, nil
}

var _ AgentRunner = (*APIRunner)(nil)

// Execute sends the task prompt as a single message. The response ID serves
// as the session reference recorded on the task.
func (r *APIRunner) Execute(ctx context.Context, req Request) Result {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := r.model
	if req.Model != "" {
		model = resolveModel(req.Model)
	} else if req.Profile != nil && req.Profile.Model != "" {
		model = resolveModel(req.Profile.Model)
	}
	if r.bedrock {
		model = translateModelForBedrock(model)
	}

	system := ""
	if req.Profile != nil {
		system = req.Profile.SystemPrompt
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	resp, err := r.client.Messages.New(execCtx, params)
	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return Result{
				Outcome:    OutcomeTimeout,
				Diagnostic: fmt.Sprintf("agent exceeded %s limit", timeout),
			}
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return Result{Outcome: OutcomeCanceled}
		}
		return Result{
			Outcome:    OutcomeFailure,
			Diagnostic: fmt.Sprintf("API call failed: %v", err),
		}
	}

	r.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	return Result{
		Outcome:    OutcomeSuccess,
		SessionRef: resp.ID,
		Output:     text.String(),
	}
}

// Tracker returns the runner's token usage tracker.
func (r *APIRunner) Tracker() *TokenTracker {
	return r.tracker
}

// resolveModel maps the short aliases accepted on the command line to full
// model identifiers. Full names pass through unchanged.
func resolveModel(name string) anthropic.Model {
	switch name {
	case "", "sonnet":
		return anthropic.ModelClaudeSonnet4_20250514
	case "opus":
		return anthropic.ModelClaudeOpus4_1_20250805
	case "haiku":
		return anthropic.ModelClaude3_5Haiku20241022
	default:
		return anthropic.Model(name)
	}
}

// translateModelForBedrock converts standard model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:  "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:  "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219: "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:  "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// TokenTracker tracks token usage across API calls. Safe for concurrent use.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from one API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the accumulated input and output token counts.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
