// Package orchestrator runs one chunk through the configured translation
// services: it retries, cleans and validates results, and chooses between
// candidates either by fallback order or by an LLM arbiter.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/valpere/texsplit/internal/arbiter"
	"github.com/valpere/texsplit/internal/placeholder"
	"github.com/valpere/texsplit/internal/postprocess"
	"github.com/valpere/texsplit/internal/refiner"
	"github.com/valpere/texsplit/internal/translator"
	"github.com/valpere/texsplit/internal/validator"
)

// Strategy selects how candidate translations are chosen.
type Strategy string

const (
	// StrategyFallback tries services in order and keeps the first valid
	// result.
	StrategyFallback Strategy = "fallback"
	// StrategyArbiter asks every service and lets an arbiter choose.
	StrategyArbiter Strategy = "arbiter"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
	defaultTimeout     = 2 * time.Minute
	maxRetryDelay      = 30 * time.Second
)

type OrchestratorConfig struct {
	Timeout     time.Duration
	MinServices int
	MaxAttempts int
	RetryDelay  time.Duration
	// StrictValidation fails an attempt whose prose is not in the target
	// language. Otherwise the last attempt is accepted with a warning.
	StrictValidation bool
	// SkipValidation disables the language check. Structure is always
	// checked.
	SkipValidation bool
	Strategy       Strategy
	Service        translator.ServiceConfig

	Arbiter arbiter.Arbiter
	Refiner refiner.Refiner
	Logger  *slog.Logger
}

type OrchestratorResult struct {
	Results   []translator.ServiceResult
	Errors    []error
	Succeeded int
	Failed    int
}

type Orchestrator struct {
	services  []translator.TranslationService
	config    OrchestratorConfig
	validator *validator.Validator
	logger    *slog.Logger
}

func New(services []translator.TranslationService, config OrchestratorConfig) *Orchestrator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MinServices <= 0 {
		config.MinServices = 1
	}
	if config.Strategy == "" {
		config.Strategy = StrategyFallback
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	o := &Orchestrator{
		services: services,
		config:   config,
		logger:   logger,
	}
	if !config.SkipValidation {
		o.validator = validator.New()
	}
	return o
}

// Translate translates one chunk under sess, records the turn and returns
// the translation. It satisfies the pipeline's collaborator contract.
func (o *Orchestrator) Translate(ctx context.Context, sess *translator.Session, index int, chunk string) (string, error) {
	if len(o.services) == 0 {
		return "", errors.New("no translation services configured")
	}
	req := sess.Request(chunk)
	log := o.logger.With("run", sess.ID, "chunk", index)

	var (
		res *translator.ServiceResult
		err error
	)
	switch o.config.Strategy {
	case StrategyArbiter:
		res, err = o.arbitrate(ctx, req, log)
	default:
		var errs []error
		res, errs = o.fallback(ctx, req, log)
		if res == nil {
			err = errors.Join(errs...)
		}
	}
	if err != nil {
		return "", err
	}
	sess.AddUsage(res.Metadata)

	text := res.TranslatedText
	if o.config.Refiner != nil {
		text = o.refine(ctx, req, text, log)
	}

	if err := sess.Record(chunk, text); err != nil {
		return "", err
	}
	log.Debug("chunk translated", "service", res.ServiceName, "latency", res.Latency)
	return text, nil
}

// Execute asks every service in parallel and collects the valid results in
// service order.
func (o *Orchestrator) Execute(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) *OrchestratorResult {
	result := &OrchestratorResult{
		Results: make([]translator.ServiceResult, 0),
		Errors:  make([]error, 0),
	}

	type outcome struct {
		res *translator.ServiceResult
		err error
	}
	outcomes := make([]outcome, len(o.services))

	var wg sync.WaitGroup
	for i, svc := range o.services {
		wg.Add(1)
		go func(index int, service translator.TranslationService) {
			defer wg.Done()
			res, err := o.attempt(ctx, service, cfg, req, o.logger)
			outcomes[index] = outcome{res: res, err: err}
		}(i, svc)
	}
	wg.Wait()

	for _, oc := range outcomes {
		if oc.err != nil {
			result.Errors = append(result.Errors, oc.err)
			result.Failed++
			continue
		}
		result.Results = append(result.Results, *oc.res)
		result.Succeeded++
	}

	return result
}

// ExecuteWithFallback tries services one after another and returns the first
// valid result, or nil when every service failed.
func (o *Orchestrator) ExecuteWithFallback(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) *translator.ServiceResult {
	res, _ := o.fallbackWith(ctx, cfg, req, o.logger)
	return res
}

func (o *Orchestrator) fallback(ctx context.Context, req translator.TranslateRequest, log *slog.Logger) (*translator.ServiceResult, []error) {
	return o.fallbackWith(ctx, o.config.Service, req, log)
}

func (o *Orchestrator) fallbackWith(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest, log *slog.Logger) (*translator.ServiceResult, []error) {
	var errs []error
	for _, svc := range o.services {
		res, err := o.attempt(ctx, svc, cfg, req, log)
		if err == nil {
			return res, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		log.Warn("service failed, trying next", "service", svc.Name(), "error", err)
	}
	return nil, errs
}

func (o *Orchestrator) arbitrate(ctx context.Context, req translator.TranslateRequest, log *slog.Logger) (*translator.ServiceResult, error) {
	outcome := o.Execute(ctx, o.config.Service, req)
	if outcome.Succeeded < o.config.MinServices {
		return nil, fmt.Errorf("%d of %d services succeeded, need %d: %w",
			outcome.Succeeded, len(o.services), o.config.MinServices, errors.Join(outcome.Errors...))
	}
	for _, err := range outcome.Errors {
		log.Warn("candidate discarded", "error", err)
	}

	best := outcome.Results[0]
	if o.config.Arbiter == nil || len(outcome.Results) == 1 {
		return &best, nil
	}

	verdict, err := o.config.Arbiter.Evaluate(ctx, req.Text, req.SourceLang, req.TargetLang, outcome.Results)
	if err != nil {
		log.Warn("arbiter failed, keeping first candidate", "service", best.ServiceName, "error", err)
		return &best, nil
	}

	if !verdict.IsComposite {
		for _, r := range outcome.Results {
			if r.ServiceName == verdict.SelectedService {
				log.Debug("arbiter selected", "service", r.ServiceName, "reason", verdict.Reasoning)
				return &r, nil
			}
		}
		return &best, nil
	}

	composed := postprocess.RestoreEdges(req.Text, postprocess.Clean(verdict.CompositeText))
	if err := validator.CheckStructure(req.Text, composed); err != nil {
		log.Warn("composite translation rejected", "error", err)
		return &best, nil
	}
	return &translator.ServiceResult{
		ServiceName:    arbiter.CompositeService,
		TranslatedText: composed,
		Metadata:       best.Metadata,
	}, nil
}

func (o *Orchestrator) refine(ctx context.Context, req translator.TranslateRequest, draft string, log *slog.Logger) string {
	refined, err := o.config.Refiner.Refine(ctx, req.SourceLang, req.TargetLang, req.Text, draft)
	if err != nil {
		log.Warn("refinement failed, keeping draft", "error", err)
		return draft
	}
	if err := validator.CheckStructure(req.Text, refined); err != nil {
		log.Warn("refinement broke structure, keeping draft", "error", err)
		return draft
	}
	return refined
}

// attempt runs one service with retries. Each try is cleaned and checked;
// a language mismatch on the last try is tolerated unless validation is
// strict.
func (o *Orchestrator) attempt(ctx context.Context, svc translator.TranslationService, cfg translator.ServiceConfig, req translator.TranslateRequest, log *slog.Logger) (*translator.ServiceResult, error) {
	var lastErr error
	for n := 0; n < o.config.MaxAttempts; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w", svc.Name(), ctx.Err())
			case <-time.After(o.backoff(n - 1)):
			}
		}

		res, err := o.translateOnce(ctx, svc, cfg, req)
		if err != nil {
			lastErr = err
			log.Debug("attempt failed", "service", svc.Name(), "attempt", n+1, "error", err)
			if translator.IsPermanent(err) {
				break
			}
			continue
		}

		if o.validator != nil {
			if ok, verr := o.validator.IsValid(res.TranslatedText, req.TargetLang); !ok {
				last := n == o.config.MaxAttempts-1
				if last && !o.config.StrictValidation {
					log.Warn("accepting translation that failed language check", "service", svc.Name(), "error", verr)
					return res, nil
				}
				lastErr = fmt.Errorf("%s: %w", svc.Name(), verr)
				continue
			}
		}
		return res, nil
	}
	return nil, lastErr
}

func (o *Orchestrator) translateOnce(ctx context.Context, svc translator.TranslationService, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	source := req.Text

	var markers []string
	if !translator.IsLaTeXAware(svc) {
		req.Text, markers = placeholder.Protect(source)
		if len(markers) > 0 {
			req.Instructions = strings.TrimSpace(req.Instructions + "\n" + placeholder.InstructionHint())
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	start := time.Now()
	res, err := svc.Translate(callCtx, cfg, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", svc.Name(), err)
	}
	if res == nil {
		return nil, fmt.Errorf("%s: no result", svc.Name())
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%s: %s", svc.Name(), res.Error)
	}
	if res.Latency == 0 {
		res.Latency = time.Since(start)
	}

	text := postprocess.Clean(res.TranslatedText)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: empty translation", svc.Name())
	}
	if markers != nil {
		if missing := placeholder.Validate(text, markers); len(missing) > 0 {
			return nil, fmt.Errorf("%s: lost placeholders %v", svc.Name(), missing)
		}
		text = placeholder.Restore(text, markers)
	}
	text = postprocess.RestoreEdges(source, text)

	if err := validator.CheckStructure(source, text); err != nil {
		return nil, fmt.Errorf("%s: %w", svc.Name(), err)
	}

	out := *res
	out.TranslatedText = text
	return &out, nil
}

// backoff returns the wait before retry n (0-indexed): RetryDelay doubled per
// retry, capped, plus up to 50% jitter.
func (o *Orchestrator) backoff(n int) time.Duration {
	base := o.config.RetryDelay << uint(n)
	if base > maxRetryDelay || base <= 0 {
		base = maxRetryDelay
	}
	jitter := time.Duration(rand.Int64N(int64(base)/2 + 1))
	return base + jitter
}
