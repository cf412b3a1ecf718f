package processing

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/generation"
	"github.com/teilomillet/chatline/internal/util"
	"github.com/teilomillet/chatline/storage"
	"github.com/teilomillet/chatline/textutil"
	"github.com/teilomillet/gollm"
	"go.uber.org/zap"
)

// Processor turns a user message into a cleaned reply.
//
// For each request it:
//  1. validates the message against the length limit
//  2. strips control characters when input sanitising is on
//  3. classifies the message
//  4. generates a reply, regenerating while the cleaned text is shorter
//     than the minimum response length
//  5. truncates and formats the reply
//
// Failures are returned as *errors.ChatError.
type Processor struct {
	gen        generation.Generator
	cfg        *config.Config
	limits     config.Limits
	classifier *textutil.Classifier
	cleaner    *textutil.Cleaner
	validator  *textutil.Validator
	logger     *zap.Logger

	tokenizer textutil.Tokenizer
	history   *storage.Slots
}

// Option configures optional Processor collaborators.
type Option func(*Processor)

// WithTokenizer adds token estimates to responses.
func WithTokenizer(t textutil.Tokenizer) Option {
	return func(p *Processor) { p.tokenizer = t }
}

// WithHistory records every successful exchange in the history slot.
func WithHistory(slots *storage.Slots) Option {
	return func(p *Processor) { p.history = slots }
}

// NewProcessor builds a Processor from cfg.
func NewProcessor(cfg *config.Config, gen generation.Generator, logger *zap.Logger, opts ...Option) (*Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}

	p := &Processor{
		gen:        gen,
		cfg:        cfg,
		limits:     cfg.Limits(),
		classifier: textutil.NewClassifier(cfg.Keywords()),
		cleaner:    textutil.NewCleaner(),
		validator:  textutil.NewValidator(cfg.App.MaxMessageLength),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Classifier exposes the processor's classifier.
func (p *Processor) Classifier() *textutil.Classifier {
	return p.classifier
}

// Validator exposes the processor's message validator.
func (p *Processor) Validator() *textutil.Validator {
	return p.validator
}

// UserMessage returns the configured display text for err.
func (p *Processor) UserMessage(err error) string {
	return errors.UserMessage(errors.Classify(err), p.cfg.Errors)
}

// ProcessRequest runs req through the pipeline.
func (p *Processor) ProcessRequest(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.NewValidationError("", "request cannot be nil", nil)
	}

	var (
		resp *Response
		err  error
	)
	util.Measure(p.logger, p.cfg.Dev.PerformanceMonitoring, "process_request", func() {
		resp, err = p.process(ctx, req)
	})
	return resp, err
}

func (p *Processor) process(ctx context.Context, req *Request) (*Response, error) {
	message := req.Message
	if result := p.validate(message); !result.Valid {
		return nil, errors.NewValidationError(req.RequestID, result.Reason, map[string]interface{}{
			"reason": result.Reason,
		})
	}

	prompt := strings.TrimSpace(message)
	if p.cfg.Security.SanitizeInput {
		prompt = stripControl(prompt)
	}

	category := p.classifier.Classify(prompt)
	p.logger.Debug("Message classified",
		zap.String("request_id", req.RequestID),
		zap.String("category", string(category)),
	)

	content, attempts, err := p.generate(ctx, req.RequestID, prompt)
	if err != nil {
		return nil, err
	}

	content = textutil.Truncate(content, p.limits.MaxResponseLength, "...")
	resp := &Response{
		Content:  content,
		HTML:     textutil.FormatText(textutil.SanitizeHTML(content, p.cfg.Security.XSSProtection)),
		Category: string(category),
		Attempts: attempts,
	}

	if p.tokenizer != nil {
		resp.Tokens = &Tokens{
			Prompt:   p.tokenizer.CountTokens(prompt),
			Response: p.tokenizer.CountTokens(content),
		}
	}

	if p.history != nil {
		p.history.AppendHistory(ctx, storage.Exchange{
			Message:   prompt,
			Response:  content,
			Category:  string(category),
			Timestamp: time.Now().UTC(),
		}, p.cfg.Storage.HistoryLimit)
	}

	return resp, nil
}

// validate always rejects blank messages; the length limit applies only
// when input validation is on.
func (p *Processor) validate(message string) textutil.ValidationResult {
	if p.cfg.Security.InputValidation {
		return p.validator.ValidateMessage(message)
	}
	if strings.TrimSpace(message) == "" {
		return textutil.ValidationResult{Valid: false, Reason: textutil.ReasonEmpty}
	}
	return textutil.ValidationResult{Valid: true}
}

// generate asks for a reply until one survives cleanup with at least the
// minimum length, up to MaxCleanupAttempts times.
func (p *Processor) generate(ctx context.Context, requestID, prompt string) (string, int, error) {
	attempts := max(p.cfg.Processing.MaxCleanupAttempts, 1)

	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := p.gen.Generate(ctx, prompt)
		if err != nil {
			// Copy: coalesced requests share the same error value
			chatErr := *errors.Wrap(requestID, err)
			chatErr.RequestID = requestID
			return "", attempt, &chatErr
		}

		cleaned := p.cleaner.Clean(raw, prompt)
		if p.cfg.Processing.CleanJSON {
			cleaned = strings.TrimSpace(gollm.CleanResponse(cleaned))
		}

		if utf8.RuneCountInString(cleaned) >= p.limits.MinResponseLength && cleaned != "" {
			return cleaned, attempt, nil
		}

		p.logger.Debug("Response too short after cleanup",
			zap.String("request_id", requestID),
			zap.Int("attempt", attempt),
			zap.Int("length", utf8.RuneCountInString(cleaned)),
			zap.Int("min_length", p.limits.MinResponseLength),
		)
	}

	return "", attempts, errors.NewUpstreamError(errors.NoResponseError, requestID,
		"no usable response after cleanup", errors.ErrNoResponse)
}

// stripControl removes control characters other than newline and tab.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, s)
}
