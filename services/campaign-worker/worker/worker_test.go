package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lbarroso/zapsender/internal/browser"
	"github.com/lbarroso/zapsender/internal/campaign"
)

type fakeStatusStore struct {
	mu       sync.Mutex
	running  []string
	finished []finishCall
}

type finishCall struct {
	jobID    string
	enviados int
	falhas   int
	status   string
}

func (f *fakeStatusStore) MarkCampaignRunning(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = append(f.running, jobID)
	return nil
}

func (f *fakeStatusStore) FinishCampaign(ctx context.Context, jobID string, enviados, falhas int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, finishCall{jobID, enviados, falhas, status})
	return nil
}

func (f *fakeStatusStore) lastFinish(t *testing.T) finishCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.finished) != 1 {
		t.Fatalf("want exactly 1 finish call, got %d", len(f.finished))
	}
	return f.finished[0]
}

// fakeSession scripts per-recipient outcomes by visit index.
type fakeSession struct {
	waitErrAt map[int]error // visit index -> WaitClickable error

	visits  []string
	clicks  int
	shots   int
	closedN int
	err     error
}

func (s *fakeSession) Navigate(u string) error {
	s.visits = append(s.visits, u)
	return nil
}

func (s *fakeSession) WaitClickable(selector string, timeout time.Duration) error {
	if err, ok := s.waitErrAt[len(s.visits)-1]; ok {
		return err
	}
	return nil
}

func (s *fakeSession) Click(selector string) error {
	s.clicks++
	return nil
}

func (s *fakeSession) Screenshot() ([]byte, error) {
	s.shots++
	return []byte("png"), nil
}

func (s *fakeSession) Err() error { return s.err }
func (s *fakeSession) Close()     { s.closedN++ }

type fakeFactory struct {
	sess    *fakeSession
	openErr error
	opens   int
}

func (f *fakeFactory) Open(ctx context.Context) (browser.Session, error) {
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.sess, nil
}

func newTestWorker(st *fakeStatusStore, f *fakeFactory, dir string) (*Worker, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	w := &Worker{
		Store:         st,
		Sessions:      f,
		ScreenshotDir: dir,
		sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return ctx.Err()
		},
	}
	return w, sleeps
}

func twoRecipientJob(interval int) campaign.Job {
	return campaign.Job{
		JobID:           "job-1",
		Recipients:      []string{"551199999999", "551188888888"},
		MessageBody:     "Oi, tudo bem?",
		IntervalSeconds: interval,
	}
}

func TestRunJob_AllSent(t *testing.T) {
	st := &fakeStatusStore{}
	sess := &fakeSession{}
	w, sleeps := newTestWorker(st, &fakeFactory{sess: sess}, t.TempDir())

	w.runJob(context.Background(), twoRecipientJob(5))

	if len(sess.visits) != 2 || sess.clicks != 2 {
		t.Fatalf("want 2 visits and 2 clicks, got %d/%d", len(sess.visits), sess.clicks)
	}
	// Two pre-click pauses plus one inter-send interval; none after the
	// last recipient.
	var intervals int
	for _, d := range *sleeps {
		if d == 5*time.Second {
			intervals++
		}
	}
	if intervals != 1 || len(*sleeps) != 3 {
		t.Fatalf("unexpected sleeps: %v", *sleeps)
	}
	if sess.closedN != 1 {
		t.Fatalf("session closed %d times, want 1", sess.closedN)
	}

	fin := st.lastFinish(t)
	if fin.enviados != 2 || fin.falhas != 0 || fin.status != campaign.StatusSucceeded {
		t.Fatalf("unexpected finish: %+v", fin)
	}
	if len(st.running) != 1 {
		t.Fatalf("running not marked: %v", st.running)
	}
}

func TestRunJob_FailureIsolation(t *testing.T) {
	st := &fakeStatusStore{}
	sess := &fakeSession{waitErrAt: map[int]error{0: errors.New("timeout waiting for selector")}}
	f := &fakeFactory{sess: sess}
	dir := t.TempDir()
	w, _ := newTestWorker(st, f, dir)

	w.runJob(context.Background(), twoRecipientJob(5))

	// Recipient 1 timed out, recipient 2 must still be attempted.
	if len(sess.visits) != 2 {
		t.Fatalf("want 2 navigations, got %d", len(sess.visits))
	}
	if sess.clicks != 1 {
		t.Fatalf("want 1 click, got %d", sess.clicks)
	}
	if sess.shots != 1 {
		t.Fatalf("want 1 screenshot, got %d", sess.shots)
	}
	shot := filepath.Join(dir, "error_551199999999.png")
	if _, err := os.Stat(shot); err != nil {
		t.Fatalf("screenshot not written: %v", err)
	}
	if sess.closedN != 1 {
		t.Fatalf("session closed %d times, want 1", sess.closedN)
	}

	fin := st.lastFinish(t)
	if fin.enviados != 1 || fin.falhas != 1 || fin.status != campaign.StatusPartiallyFailed {
		t.Fatalf("unexpected finish: %+v", fin)
	}
}

func TestRunJob_AllRecipientsFail(t *testing.T) {
	st := &fakeStatusStore{}
	sess := &fakeSession{waitErrAt: map[int]error{
		0: errors.New("timeout"),
		1: errors.New("timeout"),
	}}
	w, _ := newTestWorker(st, &fakeFactory{sess: sess}, t.TempDir())

	w.runJob(context.Background(), twoRecipientJob(5))

	fin := st.lastFinish(t)
	if fin.enviados != 0 || fin.falhas != 2 || fin.status != campaign.StatusFailed {
		t.Fatalf("unexpected finish: %+v", fin)
	}
	if sess.closedN != 1 {
		t.Fatalf("session closed %d times, want 1", sess.closedN)
	}
}

func TestRunJob_SessionOpenError(t *testing.T) {
	st := &fakeStatusStore{}
	f := &fakeFactory{openErr: errors.New("chrome failed to start")}
	w, _ := newTestWorker(st, f, t.TempDir())

	w.runJob(context.Background(), twoRecipientJob(5))

	fin := st.lastFinish(t)
	if fin.enviados != 0 || fin.falhas != 0 || fin.status != campaign.StatusFailed {
		t.Fatalf("unexpected finish: %+v", fin)
	}
}

func TestRunJob_SessionLostMidLoop(t *testing.T) {
	st := &fakeStatusStore{}
	sess := &fakeSession{}
	w, _ := newTestWorker(st, &fakeFactory{sess: sess}, t.TempDir())

	// Browser dies after the first send.
	origSleep := w.sleep
	w.sleep = func(ctx context.Context, d time.Duration) error {
		if d == 5*time.Second {
			sess.err = errors.New("browser context canceled")
		}
		return origSleep(ctx, d)
	}

	w.runJob(context.Background(), twoRecipientJob(5))

	if len(sess.visits) != 1 {
		t.Fatalf("want 1 navigation before session loss, got %d", len(sess.visits))
	}
	fin := st.lastFinish(t)
	if fin.enviados != 1 || fin.falhas != 1 || fin.status != campaign.StatusPartiallyFailed {
		t.Fatalf("unexpected finish: %+v", fin)
	}
	if sess.closedN != 1 {
		t.Fatalf("session closed %d times, want 1", sess.closedN)
	}
}

func TestRunJob_RejectsInvalidInterval(t *testing.T) {
	st := &fakeStatusStore{}
	f := &fakeFactory{sess: &fakeSession{}}
	w, _ := newTestWorker(st, f, t.TempDir())

	w.runJob(context.Background(), twoRecipientJob(3))

	if f.opens != 0 {
		t.Fatal("session opened for an invalid job")
	}
	fin := st.lastFinish(t)
	if fin.status != campaign.StatusFailed {
		t.Fatalf("unexpected finish: %+v", fin)
	}
}

func TestDeepLink(t *testing.T) {
	got := deepLink("551199999999", "Promoção: 50% off & frete grátis")
	want := "https://web.whatsapp.com/send?phone=551199999999&text=Promo%C3%A7%C3%A3o%3A+50%25+off+%26+frete+gr%C3%A1tis"
	if got != want {
		t.Fatalf("deep link mismatch:\n got %s\nwant %s", got, want)
	}
}
