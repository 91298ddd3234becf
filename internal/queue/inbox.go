package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/service"
	"github.com/kagari-social/kagari/internal/usecase"
)

var tracer = otel.Tracer("queue")

// InboxQueueKey is the redis list holding accepted-but-unprocessed inbox
// deliveries.
const InboxQueueKey = "kagari:inbox"

const (
	dedupWindow = 10 * time.Minute
	maxAttempts = 5
)

// InboxJob is one accepted inbox POST, captured with enough of the original
// request to re-run signature verification inside the worker.
type InboxJob struct {
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Headers  http.Header `json:"headers"`
	Body     []byte      `json:"body"`
	Attempts int         `json:"attempts,omitempty"`
}

// InstanceStats records inbound contact per remote host.
type InstanceStats interface {
	Touch(ctx context.Context, host string) error
}

// InboxQueue accepts raw inbox deliveries at the edge and processes them on
// a worker loop. Verification and dispatch both happen in the worker so the
// HTTP handler can answer 202 immediately.
type InboxQueue struct {
	rdb        *redis.Client
	mc         *memcache.Client
	auth       *service.AuthService
	dispatcher *usecase.ActivityDispatcher
	instances  InstanceStats
}

func NewInboxQueue(
	rdb *redis.Client,
	mc *memcache.Client,
	auth *service.AuthService,
	dispatcher *usecase.ActivityDispatcher,
	instances InstanceStats,
) *InboxQueue {
	return &InboxQueue{
		rdb:        rdb,
		mc:         mc,
		auth:       auth,
		dispatcher: dispatcher,
		instances:  instances,
	}
}

// Enqueue captures the request and pushes it onto the list. The body must
// already be read; the request itself is not consumed.
func (q *InboxQueue) Enqueue(ctx context.Context, req *http.Request, body []byte) error {
	ctx, span := tracer.Start(ctx, "InboxQueue.Enqueue")
	defer span.End()

	job := InboxJob{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: req.Header.Clone(),
		Body:    body,
	}
	if job.Headers.Get("Host") == "" && req.Host != "" {
		job.Headers.Set("Host", req.Host)
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, InboxQueueKey, raw).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Run consumes the queue until the context is canceled. Pop timeouts just
// loop; redis failures back off briefly instead of spinning.
func (q *InboxQueue) Run(ctx context.Context) {
	slog.Info("inbox worker started")
	for {
		if ctx.Err() != nil {
			return
		}

		popped, err := q.rdb.BRPop(ctx, 5*time.Second, InboxQueueKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			slog.Error("inbox queue pop failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}
		if len(popped) != 2 {
			continue
		}

		var job InboxJob
		if err := json.Unmarshal([]byte(popped[1]), &job); err != nil {
			slog.Error("inbox job is not decodable", slog.String("error", err.Error()))
			continue
		}

		q.handle(ctx, &job)
	}
}

func (q *InboxQueue) handle(ctx context.Context, job *InboxJob) {
	ctx, span := tracer.Start(ctx, "InboxQueue.Handle")
	defer span.End()

	activity, err := kagari.ParseActivity(job.Body)
	if err != nil {
		slog.Info("dropping undecodable activity", slog.String("error", err.Error()))
		return
	}

	if !q.claim(activity.ID) {
		slog.Debug("dropping duplicate delivery", slog.String("activity", activity.ID))
		return
	}

	req, err := job.request(ctx)
	if err != nil {
		slog.Error("inbox job request rebuild failed", slog.String("error", err.Error()))
		return
	}

	result, err := q.auth.VerifyActivity(ctx, req, job.Body, &activity)
	if err != nil {
		span.RecordError(err)
		q.retry(ctx, job, activity.ID, err)
		return
	}
	if result.State != service.StateValid {
		slog.Info("dropping unauthenticated activity",
			slog.String("activity", activity.ID),
			slog.String("state", string(result.State)),
			slog.String("reason", result.Reason),
		)
		return
	}

	signer := result.User.Actor
	if signer.IsRemote() {
		go func(host string) {
			bg := context.WithoutCancel(ctx)
			if err := q.instances.Touch(bg, host); err != nil {
				slog.Error("instance touch failed",
					slog.String("host", host),
					slog.String("error", err.Error()),
				)
			}
		}(signer.Host)
	}

	skip, err := q.dispatcher.Perform(ctx, signer, &activity)
	if err != nil {
		span.RecordError(err)
		q.retry(ctx, job, activity.ID, err)
		return
	}
	if skip != "" {
		slog.Info("skipped activity",
			slog.String("activity", activity.ID),
			slog.String("type", activity.Type),
			slog.String("actor", signer.URI),
			slog.String("reason", skip),
		)
	}
}

// claim marks the activity id as seen. memcache Add is atomic, so exactly
// one worker wins per id within the window. Ids are optional on the wire
// and a down memcached must not halt ingest, so both cases pass through.
func (q *InboxQueue) claim(activityID string) bool {
	if activityID == "" || len(activityID) > 250 {
		return true
	}
	err := q.mc.Add(&memcache.Item{
		Key:        "inbox:" + activityID,
		Value:      []byte{1},
		Expiration: int32(dedupWindow / time.Second),
	})
	if err == nil {
		return true
	}
	if err == memcache.ErrNotStored {
		return false
	}
	slog.Error("inbox dedup unavailable", slog.String("error", err.Error()))
	return true
}

// retry re-queues a job that failed for a transient reason, up to
// maxAttempts. The dedup claim is released so the re-run is not dropped.
func (q *InboxQueue) retry(ctx context.Context, job *InboxJob, activityID string, cause error) {
	if activityID != "" && len(activityID) <= 250 {
		if err := q.mc.Delete("inbox:" + activityID); err != nil && err != memcache.ErrCacheMiss {
			slog.Error("inbox dedup release failed", slog.String("error", err.Error()))
		}
	}

	job.Attempts++
	if job.Attempts >= maxAttempts {
		slog.Error("giving up on activity",
			slog.String("activity", activityID),
			slog.Int("attempts", job.Attempts),
			slog.String("error", cause.Error()),
		)
		return
	}
	slog.Warn("re-queueing activity",
		slog.String("activity", activityID),
		slog.Int("attempts", job.Attempts),
		slog.String("error", cause.Error()),
	)

	raw, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := q.rdb.LPush(context.WithoutCancel(ctx), InboxQueueKey, raw).Err(); err != nil {
		slog.Error("inbox re-queue failed", slog.String("error", err.Error()))
	}
}

// request rebuilds an http.Request equivalent to the one the edge saw, so
// the draft-cavage verifier can recompute the signing string.
func (j *InboxJob) request(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, j.Method, j.URL, bytes.NewReader(j.Body))
	if err != nil {
		return nil, err
	}
	req.Header = j.Headers.Clone()
	if host := j.Headers.Get("Host"); host != "" {
		req.Host = host
	}
	return req, nil
}
