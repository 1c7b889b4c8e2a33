package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/lbarroso/zapsender/internal/browser"
	"github.com/lbarroso/zapsender/internal/campaign"
	"github.com/lbarroso/zapsender/internal/store"
	"github.com/lbarroso/zapsender/pkg/logx"
	"github.com/lbarroso/zapsender/pkg/metrics"
	"github.com/lbarroso/zapsender/pkg/rmq"
)

const (
	sendControlSelector = `span[data-icon="send"]`

	// Dominant latency source: WhatsApp Web loading on shared infra.
	sendControlTimeout = 90 * time.Second

	// The send control can become clickable before the page has bound
	// its click handler.
	preClickPause = 2 * time.Second
)

type statusStore interface {
	MarkCampaignRunning(ctx context.Context, jobID string) error
	FinishCampaign(ctx context.Context, jobID string, enviados, falhas int, status string) error
}

type Worker struct {
	Store         statusStore
	Cons          *rmq.Consumer
	Sessions      browser.Factory
	ScreenshotDir string

	sleep func(ctx context.Context, d time.Duration) error
}

func New(st *store.Store, cons *rmq.Consumer, sessions browser.Factory, screenshotDir string) *Worker {
	return &Worker{
		Store:         st,
		Cons:          cons,
		Sessions:      sessions,
		ScreenshotDir: screenshotDir,
		sleep:         sleepCtx,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.Cons.Consume()
	if err != nil {
		return err
	}
	logx.L().Infow("worker_started", "queue", w.Cons.Queue)

	for {
		select {
		case <-ctx.Done():
			logx.L().Infow("worker_stopping")
			return ctx.Err()

		case d, ok := <-msgs:
			if !ok {
				logx.L().Warnw("consumer_channel_closed")
				return nil
			}

			metrics.WorkerJobsConsumed.Inc()

			var job campaign.Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logx.L().Warnw("job_unmarshal_error", "error", err)
				_ = d.Ack(false)
				continue
			}

			// Acked only after the job terminates. A crash mid-job leaves
			// the delivery unacked and the broker redelivers; duplicate
			// sends are accepted under the at-least-once contract.
			w.runJob(ctx, job)
			_ = d.Ack(false)
		}
	}
}

// runJob executes one campaign to completion. It never returns an error:
// the job is fire-and-forget, so every outcome ends in a log line, a
// status row and guaranteed session release.
func (w *Worker) runJob(ctx context.Context, job campaign.Job) {
	start := time.Now()
	fields := []any{
		"job_id", job.JobID,
		"recipients", len(job.Recipients),
		"interval", job.IntervalSeconds,
	}
	logx.L().Infow("job_received", fields...)

	// The API enforces this before publishing; a violation here means a
	// forged or corrupted job.
	if job.IntervalSeconds < campaign.MinInterval {
		logx.L().Errorw("job_invalid_interval", fields...)
		w.finish(job.JobID, 0, 0, campaign.StatusFailed)
		return
	}

	w.markRunning(job.JobID)

	sess, err := w.Sessions.Open(ctx)
	if err != nil {
		metrics.WorkerSessionFailures.Inc()
		logx.L().Errorw("session_open_error", append(fields, "error", err)...)
		w.finish(job.JobID, 0, 0, campaign.StatusFailed)
		return
	}
	defer sess.Close()
	logx.L().Infow("session_open", fields...)

	var enviados, falhas int
	for i, number := range job.Recipients {
		if err := sess.Err(); err != nil {
			metrics.WorkerSessionFailures.Inc()
			logx.L().Errorw("session_lost", append(fields, "error", err, "remaining", len(job.Recipients)-i)...)
			falhas += len(job.Recipients) - i
			break
		}

		sendStart := time.Now()
		if err := w.sendOne(ctx, sess, number, job.MessageBody); err != nil {
			falhas++
			metrics.WorkerRecipientsFailed.Inc()
			logx.L().Warnw("send_failed", "job_id", job.JobID, "number", number, "error", err)
			w.captureFailure(sess, number)
			continue
		}
		enviados++
		metrics.WorkerRecipientsSent.Inc()
		metrics.WorkerSendDuration.Observe(time.Since(sendStart).Seconds())
		logx.L().Infow("send_success", "job_id", job.JobID, "number", number)

		if i < len(job.Recipients)-1 {
			if err := w.sleep(ctx, time.Duration(job.IntervalSeconds)*time.Second); err != nil {
				logx.L().Warnw("job_interrupted", append(fields, "error", err)...)
				falhas += len(job.Recipients) - i - 1
				break
			}
		}
	}

	var status string
	switch {
	case falhas == 0:
		status = campaign.StatusSucceeded
	case enviados == 0:
		status = campaign.StatusFailed
	default:
		status = campaign.StatusPartiallyFailed
	}

	w.finish(job.JobID, enviados, falhas, status)
	metrics.WorkerJobDuration.Observe(time.Since(start).Seconds())
	logx.L().Infow("job_done",
		append(fields, "enviados", enviados, "falhas", falhas, "status", status)...)
}

func (w *Worker) sendOne(ctx context.Context, sess browser.Session, number, body string) error {
	if err := sess.Navigate(deepLink(number, body)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := sess.WaitClickable(sendControlSelector, sendControlTimeout); err != nil {
		return fmt.Errorf("wait send control: %w", err)
	}
	if err := w.sleep(ctx, preClickPause); err != nil {
		return err
	}
	if err := sess.Click(sendControlSelector); err != nil {
		return fmt.Errorf("click send control: %w", err)
	}
	return nil
}

func (w *Worker) captureFailure(sess browser.Session, number string) {
	png, err := sess.Screenshot()
	if err != nil {
		logx.L().Warnw("screenshot_error", "number", number, "error", err)
		return
	}
	path := filepath.Join(w.ScreenshotDir, "error_"+number+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		logx.L().Warnw("screenshot_write_error", "path", path, "error", err)
		return
	}
	logx.L().Infow("screenshot_saved", "path", path)
}

// Status writes are best effort: a dead database never interrupts sending.
func (w *Worker) markRunning(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Store.MarkCampaignRunning(ctx, jobID); err != nil {
		logx.L().Warnw("mark_running_error", "job_id", jobID, "error", err)
	}
}

func (w *Worker) finish(jobID string, enviados, falhas int, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Store.FinishCampaign(ctx, jobID, enviados, falhas, status); err != nil {
		logx.L().Warnw("finish_campaign_error", "job_id", jobID, "error", err)
	}
}

func deepLink(number, body string) string {
	q := url.Values{}
	q.Set("phone", number)
	q.Set("text", body)
	return "https://web.whatsapp.com/send?" + q.Encode()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
