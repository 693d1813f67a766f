// Package orchestrator implements the Pipeline Orchestrator: the single
// entry point that drives a message through mask -> glossary-protect ->
// cache-or-translate -> glossary-restore -> unmask for every target
// language, with bounded concurrency, cross-process in-flight dedupe, and
// idempotent status transitions. It wires together internal/parser,
// internal/glossary, internal/cache, internal/translator, and
// internal/messagestore — none of which know about each other.
//
// New package: the teacher has no direct equivalent, but its bounded
// concurrency idiom (plain semaphore channels, no errgroup import) comes
// from internal/federation/sync.go, and its NATS usage follows
// internal/events/events.go.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/amityvox/amityvox/internal/cache"
	"github.com/amityvox/amityvox/internal/glossary"
	"github.com/amityvox/amityvox/internal/messagestore"
	tracing "github.com/amityvox/amityvox/internal/middleware"
	"github.com/amityvox/amityvox/internal/models"
	"github.com/amityvox/amityvox/internal/parser"
	"github.com/amityvox/amityvox/internal/presence"
	"github.com/amityvox/amityvox/internal/translator"
)

// DefaultConcurrency is the default number of target languages translated
// in parallel for one message, per spec §4.F step 5.
const DefaultConcurrency = 8

// dedupeLockTTL bounds how long a translateMessage in-flight lock is held
// before it is considered abandoned (e.g. the holder crashed mid-flight).
const dedupeLockTTL = 2 * time.Minute

// TargetOutcome records what happened for one target language.
type TargetOutcome struct {
	Language  string
	Succeeded bool
	FromCache bool
	Error     string
}

// Summary is returned by TranslateMessage.
type Summary struct {
	MessageID string
	Outcomes  []TargetOutcome
	Status    models.MessageStatus
}

// GlossaryLookup resolves the glossary entries in effect for a message's
// channel, merging instance defaults with community-specific overrides.
// Implemented by internal/glossary.Store; the orchestrator itself has no
// opinion on where community-scoped glossaries are stored — it only knows
// the channel a message belongs to.
type GlossaryLookup interface {
	ForChannel(ctx context.Context, channelID string) ([]models.GlossaryEntry, error)
}

// Orchestrator wires components A-E against the Message Store.
type Orchestrator struct {
	Store       *messagestore.Store
	Cache       *cache.Cache
	Parser      *parser.Parser
	Glossaries  GlossaryLookup
	Translator  translator.Adapter
	Dedupe      *presence.Cache
	Logger      *slog.Logger
	Concurrency int

	// NATS is optional: when set, TranslateMessageAsync publishes jobs for
	// the bounded queue subscription started by StartWorkerPool instead of
	// running TranslateMessage inline. Nil is valid —
	// synchronous callers (including every test in this package) don't need
	// a NATS connection.
	NATS *nats.Conn
}

// New builds an Orchestrator with DefaultConcurrency.
func New(store *messagestore.Store, c *cache.Cache, p *parser.Parser, glossaries GlossaryLookup, t translator.Adapter, dedupe *presence.Cache, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Store:       store,
		Cache:       c,
		Parser:      p,
		Glossaries:  glossaries,
		Translator:  t,
		Dedupe:      dedupe,
		Logger:      logger,
		Concurrency: DefaultConcurrency,
	}
}

func (o *Orchestrator) concurrency() int {
	if o.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.Concurrency
}

// TranslateMessage implements spec §4.F's translateMessage(messageId,
// targetLanguages) entry point.
func (o *Orchestrator) TranslateMessage(ctx context.Context, messageID string, targetLanguages, supported []string) (summary *Summary, err error) {
	ctx = tracing.WithSpan(ctx, "orchestrator.translate_message")
	span := tracing.StartSpan(ctx, "orchestrator.translate_message", o.Logger)
	defer func() { span.End(err) }()

	if o.Dedupe != nil {
		if err := o.Dedupe.TryLock(ctx, messageID, dedupeLockTTL); err != nil {
			if errors.Is(err, presence.ErrLockHeld) {
				// Another process already owns this message's translation —
				// the second caller observes state and returns without
				// duplicate work, per spec §4.F's ordering guarantee.
				return o.currentSummary(ctx, messageID)
			}
			return nil, fmt.Errorf("acquiring in-flight lock: %w", err)
		}
		defer o.Dedupe.Unlock(ctx, messageID)
	}

	// Step 1: sent -> translating, idempotently.
	if err := o.Store.UpdateStatus(ctx, messageID, models.StatusSent, models.StatusTranslating); err != nil {
		if errors.Is(err, messagestore.ErrInvalidTransition) {
			return o.currentSummary(ctx, messageID)
		}
		return nil, fmt.Errorf("transitioning to translating: %w", err)
	}

	msg, err := o.Store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("loading message: %w", err)
	}

	targets := filterTargets(targetLanguages, supported, msg.SourceLanguage)
	if len(targets) == 0 {
		if err := o.Store.UpdateStatus(ctx, messageID, models.StatusTranslating, models.StatusTranslated); err != nil {
			return nil, fmt.Errorf("transitioning to translated (no targets): %w", err)
		}
		return &Summary{MessageID: messageID, Status: models.StatusTranslated}, nil
	}

	maskedWithCode, codeSegments, err := o.Parser.Mask(msg.Content)
	if err != nil {
		return nil, fmt.Errorf("masking content: %w", err)
	}

	if parser.MaskedIsEmpty(maskedWithCode) {
		if err := o.Store.UpdateStatus(ctx, messageID, models.StatusTranslating, models.StatusTranslated); err != nil {
			return nil, fmt.Errorf("transitioning to translated (entirely code): %w", err)
		}
		return &Summary{MessageID: messageID, Status: models.StatusTranslated}, nil
	}

	var entries []models.GlossaryEntry
	if o.Glossaries != nil {
		entries, err = o.Glossaries.ForChannel(ctx, msg.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("loading glossary: %w", err)
		}
	}
	protector := glossary.New(entries)

	outcomes := o.translateAllTargets(ctx, msg, maskedWithCode, codeSegments, protector, targets)

	anySucceeded := false
	for _, oc := range outcomes {
		if oc.Succeeded {
			anySucceeded = true
			break
		}
	}

	finalStatus := models.StatusFailed
	if anySucceeded {
		finalStatus = models.StatusTranslated
	}
	if err := o.Store.UpdateStatus(ctx, messageID, models.StatusTranslating, finalStatus); err != nil {
		return nil, fmt.Errorf("transitioning to %s: %w", finalStatus, err)
	}

	return &Summary{MessageID: messageID, Outcomes: outcomes, Status: finalStatus}, nil
}

// translateAllTargets runs step 5 of spec §4.F: for each target language, in
// parallel with bounded concurrency, cache-or-translate and restore.
func (o *Orchestrator) translateAllTargets(ctx context.Context, msg *models.Message, maskedWithCode string, codeSegments []parser.Segment, protector *glossary.Protector, targets []string) []TargetOutcome {
	sem := make(chan struct{}, o.concurrency())
	outcomes := make([]TargetOutcome, len(targets))
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, target string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = o.translateOneTarget(ctx, msg, maskedWithCode, codeSegments, protector, target)
		}(i, target)
	}
	wg.Wait()
	return outcomes
}

func (o *Orchestrator) translateOneTarget(ctx context.Context, msg *models.Message, maskedWithCode string, codeSegments []parser.Segment, protector *glossary.Protector, target string) (outcome TargetOutcome) {
	span := tracing.StartSpan(ctx, "orchestrator.translate_target:"+target, o.Logger)
	defer func() {
		var err error
		if outcome.Error != "" {
			err = errors.New(outcome.Error)
		}
		span.End(err)
	}()

	cacheKey := cache.Key(msg.Content, target)
	if cached, ok := o.Cache.Get(cacheKey); ok {
		if err := o.Store.AppendTranslation(ctx, msg.ID, target, cached, true); err != nil {
			o.Logger.Error("appending cached translation", slog.String("message_id", msg.ID), slog.String("target", target), slog.String("error", err.Error()))
			return TargetOutcome{Language: target, Succeeded: false, Error: err.Error()}
		}
		return TargetOutcome{Language: target, Succeeded: true, FromCache: true}
	}

	maskedWithGloss, protectedText := protector.Protect(maskedWithCode)

	rawOut, err := o.Translator.Translate(ctx, maskedWithGloss, msg.SourceLanguage, target)
	if err != nil {
		o.Logger.Warn("translation failed for target",
			slog.String("message_id", msg.ID), slog.String("target", target), slog.String("error", err.Error()))
		return TargetOutcome{Language: target, Succeeded: false, Error: err.Error()}
	}

	postGloss := glossary.Restore(rawOut, protectedText)
	final := parser.Unmask(postGloss, codeSegments)

	o.Cache.Set(cacheKey, final)

	if err := o.Store.AppendTranslation(ctx, msg.ID, target, final, false); err != nil {
		o.Logger.Error("appending translation", slog.String("message_id", msg.ID), slog.String("target", target), slog.String("error", err.Error()))
		return TargetOutcome{Language: target, Succeeded: false, Error: err.Error()}
	}

	return TargetOutcome{Language: target, Succeeded: true}
}

// currentSummary builds a Summary from the message's already-persisted
// state, used when TranslateMessage observes that another caller already
// did (or is doing) the work.
func (o *Orchestrator) currentSummary(ctx context.Context, messageID string) (*Summary, error) {
	msg, err := o.Store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("loading message for dedupe summary: %w", err)
	}
	outcomes := make([]TargetOutcome, 0, len(msg.Translations))
	for _, t := range msg.Translations {
		outcomes = append(outcomes, TargetOutcome{Language: t.TargetLanguage, Succeeded: true})
	}
	return &Summary{MessageID: messageID, Outcomes: outcomes, Status: msg.Status}, nil
}

// filterTargets drops targets outside the supported set and the message's
// own source language, per spec §4.F step 2 and the edge policy on
// source==target.
func filterTargets(targets, supported []string, sourceLanguage string) []string {
	supportedSet := make(map[string]bool, len(supported))
	for _, s := range supported {
		supportedSet[s] = true
	}

	out := make([]string, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t == sourceLanguage || seen[t] {
			continue
		}
		if len(supportedSet) > 0 && !supportedSet[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
