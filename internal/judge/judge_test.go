package judge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/aptos"
	"github.com/songzhibin97/supercircle/internal/contract"
	"github.com/songzhibin97/supercircle/internal/lock"
	"github.com/songzhibin97/supercircle/internal/models"
	"github.com/songzhibin97/supercircle/internal/storage"
)

var testNow = time.Unix(1_700_000_000, 0)

func strPtr(s string) *string { return &s }

func testCircles() []models.Circle {
	return []models.Circle{
		{ID: 0, Creator: "0xa", Opponent: strPtr("0xb"), Description: "chess match", Deadline: testNow.Unix() - 100, Status: models.StatusActive},
		{ID: 1, Creator: "0xc", Description: "run 5k", Deadline: testNow.Unix() + 100, Status: models.StatusPending},
		{ID: 2, Creator: "0xd", Opponent: strPtr("0xa"), Deadline: testNow.Unix() - 100, Resolved: true, Status: models.StatusResolved},
		{ID: 3, Creator: "0xe", Description: "solo swim", Deadline: testNow.Unix() - 1, Status: models.StatusPending},
	}
}

type fakeChain struct {
	mu        sync.Mutex
	circles   []models.Circle
	listErr   error
	submitErr error
	submitted []*aptos.EntryFunctionPayload
}

func (f *fakeChain) AllCircles(ctx context.Context) ([]models.Circle, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.circles, nil
}

func (f *fakeChain) CircleByID(ctx context.Context, circleID uint64) (*models.Circle, error) {
	for i := range f.circles {
		if f.circles[i].ID == circleID {
			c := f.circles[i]
			return &c, nil
		}
	}
	return nil, contract.ErrCircleNotFound
}

func (f *fakeChain) Submit(ctx context.Context, signer aptos.Signer, payload *aptos.EntryFunctionPayload) (*aptos.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, payload)
	return &aptos.Transaction{Type: "user_transaction", Hash: "0xfeed", Success: true}, nil
}

type fakeSigner struct{}

func (fakeSigner) Address() string        { return "0x99" }
func (fakeSigner) PublicKeyHex() string   { return "0x00" }
func (fakeSigner) Sign(msg []byte) []byte { return make([]byte, 64) }

func newTestResolver(chain Chain) *Resolver {
	r := NewResolver(chain, contract.NewBuilder("0x1", "supercircle"), fakeSigner{}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	r.now = func() time.Time { return testNow }
	return r
}

func TestSelectJudgeable(t *testing.T) {
	got := SelectJudgeable(testCircles(), testNow)

	ids := make([]uint64, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []uint64{0, 3}, ids)

	// deadline equal to now is not yet passed
	assert.Empty(t, SelectJudgeable([]models.Circle{{ID: 9, Deadline: testNow.Unix()}}, testNow))
	assert.Empty(t, SelectJudgeable(nil, testNow))
}

func TestResolver_ResolveChallenge(t *testing.T) {
	tests := []struct {
		name      string
		args      ai.ResolveArgs
		submitErr error
		wantOK    bool
		wantAddr  string
		wantError string
	}{
		{name: "creator wins", args: ai.ResolveArgs{CircleID: 0, Winner: "creator"}, wantOK: true, wantAddr: "0xa"},
		{name: "opponent wins", args: ai.ResolveArgs{CircleID: 0, Winner: "opponent"}, wantOK: true, wantAddr: "0xb"},
		{name: "no opponent", args: ai.ResolveArgs{CircleID: 3, Winner: "opponent"}, wantError: ErrNoOpponent.Error()},
		{name: "already resolved", args: ai.ResolveArgs{CircleID: 2, Winner: "creator"}, wantError: ErrAlreadyResolved.Error()},
		{name: "deadline ahead", args: ai.ResolveArgs{CircleID: 1, Winner: "creator"}, wantError: ErrDeadlineNotPassed.Error()},
		{name: "unknown circle", args: ai.ResolveArgs{CircleID: 42, Winner: "creator"}, wantError: "circle not found"},
		{name: "bad side", args: ai.ResolveArgs{CircleID: 0, Winner: "draw"}, wantError: "invalid side"},
		{name: "submit fails", args: ai.ResolveArgs{CircleID: 0, Winner: "creator"}, submitErr: errors.New("vm status: ABORTED"), wantError: "ABORTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &fakeChain{circles: testCircles(), submitErr: tt.submitErr}

			result, err := newTestResolver(chain).ResolveChallenge(context.Background(), tt.args)
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.Equal(t, tt.wantOK, result.Successful)
			if !tt.wantOK {
				assert.Equal(t, "Failed to resolve challenge", result.Data.Result)
				assert.Contains(t, result.Data.Error, tt.wantError)
				assert.Empty(t, chain.submitted)
				return
			}

			assert.Equal(t, "Challenge resolved successfully", result.Data.Result)
			assert.Equal(t, "0xfeed", result.Data.TransactionHash)
			assert.Equal(t, tt.wantAddr, result.Data.WinnerAddress)
			assert.Equal(t, tt.args.Winner, result.Data.Winner)

			require.Len(t, chain.submitted, 1)
			payload := chain.submitted[0]
			assert.Equal(t, "0x1::supercircle::resolve_circle", payload.Function)
			require.Len(t, payload.Arguments, 2)
			assert.Equal(t, "0", payload.Arguments[0])
			assert.True(t, strings.HasSuffix(payload.Arguments[1].(string), strings.TrimPrefix(tt.wantAddr, "0x")))
		})
	}
}

type scriptedJudge struct {
	mu       sync.Mutex
	judged   []uint64
	failFor  map[uint64]error
	resolves bool
}

func (s *scriptedJudge) Name() string { return "scripted" }

func (s *scriptedJudge) Judge(ctx context.Context, circle *models.Circle, exec ai.ToolExecutor) (*ai.Verdict, error) {
	s.mu.Lock()
	s.judged = append(s.judged, circle.ID)
	s.mu.Unlock()

	if err := s.failFor[circle.ID]; err != nil {
		return nil, err
	}

	verdict := ai.NewVerdict(circle, "scripted", "test")
	if s.resolves {
		result := ai.Dispatch(ctx, circle, exec, ai.ToolResolveChallenge, []byte(`{"circle_id":`+strconv.FormatUint(circle.ID, 10)+`,"winner":"creator"}`))
		verdict.Record(result)
	}
	return verdict, nil
}

func newTestTrigger(chain *fakeChain, j ai.Judge, store storage.VerdictStore, locker lock.Locker) *Trigger {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tr := NewTrigger(TriggerConfig{}, chain, j, newTestResolver(chain), store, locker, logger)
	tr.now = func() time.Time { return testNow }
	return tr
}

func TestTrigger_Run(t *testing.T) {
	chain := &fakeChain{circles: testCircles()}
	j := &scriptedJudge{resolves: true}
	store := storage.NewMemoryStorage()

	report, err := newTestTrigger(chain, j, store, lock.NewLocalLocker()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []uint64{0, 3}, j.judged)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Judged)
	assert.Equal(t, 2, report.Resolved)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.Error)
	assert.NotEmpty(t, report.ID)
	require.Len(t, report.Verdicts, 2)
	assert.Len(t, chain.submitted, 2)

	saved, ok := store.Run(report.ID)
	require.True(t, ok)
	assert.Equal(t, 2, saved.Resolved)

	verdicts, err := store.ListVerdicts(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.Equal(t, "creator", verdicts[0].Winner)
	assert.Equal(t, "0xe", verdicts[0].WinnerAddress)
}

func TestTrigger_RunIsolatesFailures(t *testing.T) {
	chain := &fakeChain{circles: testCircles()}
	j := &scriptedJudge{failFor: map[uint64]error{0: errors.New("model unavailable")}}
	store := storage.NewMemoryStorage()

	report, err := newTestTrigger(chain, j, store, lock.NewLocalLocker()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circle 0: model unavailable")

	// circle 3 was still judged after circle 0 failed
	assert.Equal(t, []uint64{0, 3}, j.judged)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Judged)
	assert.Zero(t, report.Resolved)
	assert.Equal(t, []CircleFailure{{CircleID: 0, Error: "model unavailable"}}, report.Failures)

	saved, ok := store.Run(report.ID)
	require.True(t, ok)
	assert.Contains(t, saved.Error, "model unavailable")
}

func TestTrigger_RunListError(t *testing.T) {
	chain := &fakeChain{listErr: errors.New("node down")}
	j := &scriptedJudge{}

	report, err := newTestTrigger(chain, j, storage.NewMemoryStorage(), lock.NewLocalLocker()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node down")
	require.NotNil(t, report)
	assert.Zero(t, report.Candidates)
	assert.Empty(t, j.judged)
}

func TestTrigger_RunLockHeld(t *testing.T) {
	locker := lock.NewLocalLocker()
	unlock, err := locker.Acquire(context.Background(), DefaultLockKey, time.Minute)
	require.NoError(t, err)
	defer unlock()

	j := &scriptedJudge{}
	_, err = newTestTrigger(&fakeChain{circles: testCircles()}, j, storage.NewMemoryStorage(), locker).Run(context.Background())
	assert.ErrorIs(t, err, lock.ErrLockHeld)
	assert.Empty(t, j.judged)
}

func TestTrigger_RunReleasesLock(t *testing.T) {
	locker := lock.NewLocalLocker()
	tr := newTestTrigger(&fakeChain{circles: testCircles()}, &scriptedJudge{}, storage.NewMemoryStorage(), locker)

	_, err := tr.Run(context.Background())
	require.NoError(t, err)
	_, err = tr.Run(context.Background())
	require.NoError(t, err)
}

func TestTrigger_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a cancelled context fails before the lock is taken
	_, err := newTestTrigger(&fakeChain{circles: testCircles()}, &scriptedJudge{}, storage.NewMemoryStorage(), lock.NewLocalLocker()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// slowJudge blocks for delay or until ctx ends, tracking overlapping calls.
type slowJudge struct {
	delay   time.Duration
	active  atomic.Int32
	overlap atomic.Bool
	calls   atomic.Int32
}

func (s *slowJudge) Name() string { return "slow" }

func (s *slowJudge) Judge(ctx context.Context, circle *models.Circle, exec ai.ToolExecutor) (*ai.Verdict, error) {
	s.calls.Add(1)
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return ai.NewVerdict(circle, "slow", "test"), nil
	}
}

func TestTrigger_RunBoundedByLockTTL(t *testing.T) {
	locker := lock.NewLocalLocker()
	j := &slowJudge{delay: 150 * time.Millisecond}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	newTrigger := func() *Trigger {
		chain := &fakeChain{circles: testCircles()}
		tr := NewTrigger(TriggerConfig{LockTTL: 50 * time.Millisecond}, chain, j, newTestResolver(chain), storage.NewMemoryStorage(), locker, logger)
		tr.now = func() time.Time { return testNow }
		return tr
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	reports := make([]*RunReport, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		reports[0], errs[0] = newTrigger().Run(context.Background())
	}()
	go func() {
		defer wg.Done()
		time.Sleep(100 * time.Millisecond)
		reports[1], errs[1] = newTrigger().Run(context.Background())
	}()
	wg.Wait()

	// each run stops at its lock TTL, so the second never overlaps the first
	assert.False(t, j.overlap.Load())
	for i := range errs {
		require.NotNil(t, reports[i])
		assert.ErrorIs(t, errs[i], context.DeadlineExceeded)
		assert.Zero(t, reports[i].Judged)
	}
	// the slow first circle exhausts the budget; the second is never reached
	assert.EqualValues(t, 2, j.calls.Load())
}
