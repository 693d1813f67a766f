package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// SubjectTranslateRequests is the NATS subject TranslateMessageAsync
// publishes to and StartWorkerPool subscribes on. Named in the same
// "amityvox.<category>.<action>" style as internal/events' subjects.
const SubjectTranslateRequests = "amityvox.translate.requests"

// translateJob is the wire payload for one translateMessage dispatch.
type translateJob struct {
	MessageID       string   `json:"message_id"`
	TargetLanguages []string `json:"target_languages"`
	Supported       []string `json:"supported"`
}

// TranslateMessageAsync publishes a translation job to NATS instead of
// running TranslateMessage inline. Requires o.NATS to be set; falls back to
// a synchronous call otherwise so callers in tests (no NATS connection) and
// in single-process deployments both work without special-casing.
func (o *Orchestrator) TranslateMessageAsync(ctx context.Context, messageID string, targetLanguages, supported []string) error {
	if o.NATS == nil {
		_, err := o.TranslateMessage(ctx, messageID, targetLanguages, supported)
		return err
	}

	payload, err := json.Marshal(translateJob{MessageID: messageID, TargetLanguages: targetLanguages, Supported: supported})
	if err != nil {
		return fmt.Errorf("marshaling translate job: %w", err)
	}
	if err := o.NATS.Publish(SubjectTranslateRequests, payload); err != nil {
		return fmt.Errorf("publishing translate job: %w", err)
	}
	return nil
}

// StartWorkerPool subscribes to SubjectTranslateRequests with a queue group,
// so each job is delivered to one of the subscribing processes, and at most
// Concurrency jobs run at once within this process. Jobs are published with
// core NATS and are not persisted: a job published while no worker is
// subscribed is lost. Returns the subscription so callers can Drain/
// Unsubscribe it during shutdown.
func (o *Orchestrator) StartWorkerPool(ctx context.Context) (*nats.Subscription, error) {
	if o.NATS == nil {
		return nil, fmt.Errorf("orchestrator: NATS connection not configured")
	}

	sem := make(chan struct{}, o.concurrency())
	sub, err := o.NATS.QueueSubscribe(SubjectTranslateRequests, "translate-workers", func(msg *nats.Msg) {
		var job translateJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			o.Logger.Error("discarding malformed translate job", slog.String("error", err.Error()))
			return
		}

		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			if _, err := o.TranslateMessage(ctx, job.MessageID, job.TargetLanguages, job.Supported); err != nil {
				o.Logger.Error("translate job failed",
					slog.String("message_id", job.MessageID), slog.String("error", err.Error()))
			}
		}()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", SubjectTranslateRequests, err)
	}
	return sub, nil
}
