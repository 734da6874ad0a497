package dialogs

import "strings"

// Prompt instance-state keys.
const (
	promptTextKey  = "promptText"
	promptRetryKey = "retryText"
)

// PromptOptions configures a single prompt run.
type PromptOptions struct {
	// Prompt is sent when the prompt begins.
	Prompt string
	// RetryPrompt is sent after invalid input. Empty falls back to Prompt.
	RetryPrompt string
}

// TextValidator accepts or rejects user input. Returning false reprompts.
type TextValidator func(text string) bool

// TextPrompt asks for a line of text and ends with the accepted value as
// its result. The default validator rejects blank input.
type TextPrompt struct {
	id       string
	validate TextValidator
}

func NewTextPrompt(id string) *TextPrompt {
	return &TextPrompt{id: id}
}

// WithValidator replaces the default non-blank check.
func (p *TextPrompt) WithValidator(v TextValidator) *TextPrompt {
	p.validate = v
	return p
}

func (p *TextPrompt) ID() string { return p.id }

func (p *TextPrompt) BeginDialog(dc *DialogContext, options any) (DialogTurnResult, error) {
	inst := dc.ActiveDialog()
	if opts, ok := options.(PromptOptions); ok {
		inst.State[promptTextKey] = opts.Prompt
		inst.State[promptRetryKey] = opts.RetryPrompt
	} else if text, ok := options.(string); ok {
		inst.State[promptTextKey] = text
	}

	if text, _ := inst.State[promptTextKey].(string); text != "" {
		dc.Context().SendText(text)
	}
	return DialogTurnResult{Status: StatusWaiting}, nil
}

func (p *TextPrompt) ContinueDialog(dc *DialogContext) (DialogTurnResult, error) {
	var input string
	if a := dc.Context().Activity(); a != nil {
		input = a.Text
	}

	if p.accept(input) {
		return dc.EndDialog(input)
	}

	inst := dc.ActiveDialog()
	retry, _ := inst.State[promptRetryKey].(string)
	if retry == "" {
		retry, _ = inst.State[promptTextKey].(string)
	}
	if retry != "" {
		dc.Context().SendText(retry)
	}
	return DialogTurnResult{Status: StatusWaiting}, nil
}

// ResumeDialog reprompts after an interruption so the user knows what is
// still being asked.
func (p *TextPrompt) ResumeDialog(dc *DialogContext, reason DialogReason, result any) (DialogTurnResult, error) {
	inst := dc.ActiveDialog()
	if text, _ := inst.State[promptTextKey].(string); text != "" {
		dc.Context().SendText(text)
	}
	return DialogTurnResult{Status: StatusWaiting}, nil
}

func (p *TextPrompt) accept(text string) bool {
	if p.validate != nil {
		return p.validate(text)
	}
	return strings.TrimSpace(text) != ""
}
