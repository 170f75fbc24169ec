package svanalysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etprediction"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdclassify"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdnotice"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/repo/rpanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/persistence/memory"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/errorx"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

type fakePredictor struct {
	raw string
	err error
}

func (f *fakePredictor) Predict(ctx context.Context, m etecg.SampleMatrix) (*classifier.PredictResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &classifier.PredictResponse{Predictions: []byte(f.raw), Message: "ok"}, nil
}

// asyncDispatcher 模拟队列：投递后由另一个 goroutine 完成分析
type asyncDispatcher struct {
	svc     *AnalysisService
	outcome *mdclassify.Outcome // nil 表示 worker 不回调
	err     error
	wg      sync.WaitGroup
}

func (d *asyncDispatcher) Dispatch(ctx context.Context, requestID, analysisID string, m etecg.SampleMatrix) (*mdclassify.Outcome, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.outcome != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			_, _ = d.svc.Complete(context.Background(), analysisID, *d.outcome)
		}()
	}
	return nil, nil
}

func (d *asyncDispatcher) Async() bool { return true }

type fixture struct {
	svc  *AnalysisService
	repo *rpanalysis.MemoryAnalysisRepository
}

func newFixture(dispatcher mdclassify.Dispatcher) *fixture {
	repo := rpanalysis.NewMemoryAnalysisRepository(time.Hour, time.Minute)
	notices := mdnotice.NewMemoryNoticeModule(memory.NewPubSub())
	return &fixture{
		svc:  NewAnalysisService(repo, dispatcher, notices, logger.NewNop()),
		repo: repo,
	}
}

func newInlineFixture(p mdclassify.Predictor) *fixture {
	return newFixture(mdclassify.NewInlineDispatcher(p, logger.NewNop()))
}

func sampleInput(session string) SubmitInput {
	return SubmitInput{SessionID: session, Matrix: mdingest.NewSeededSampler(5).Generate()}
}

func TestSubmit_InlineSuccess(t *testing.T) {
	f := newInlineFixture(&fakePredictor{raw: `[{"1dAVb":0.00005,"AF":0.2}]`})

	a, err := f.svc.Submit(context.Background(), sampleInput(""), 0)
	require.NoError(t, err)
	assert.Equal(t, etanalysis.StatusSucceeded, a.Status)

	primary, ok := a.Primary()
	require.True(t, ok)
	rows := etprediction.Annotate(primary)
	require.Len(t, rows, 2)
	assert.Equal(t, "5.00e-5", rows[0].Display)
	assert.Equal(t, etprediction.TierHigh, rows[1].Tier)

	stored, err := f.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, etanalysis.StatusSucceeded, stored.Status)
}

func TestSubmit_InlineFailures(t *testing.T) {
	cases := []struct {
		name      string
		predictor *fakePredictor
		kind      etanalysis.FailureKind
	}{
		{"classifier 500", &fakePredictor{err: classifier.ErrClassifierUnavailable}, etanalysis.FailureClassifierUnavailable},
		{"string predictions", &fakePredictor{raw: `"oops"`}, etanalysis.FailureInvalidPredictionFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newInlineFixture(tc.predictor)
			a, err := f.svc.Submit(context.Background(), sampleInput("s"), 0)
			require.NoError(t, err)
			assert.Equal(t, etanalysis.StatusFailed, a.Status)
			assert.Equal(t, tc.kind, a.FailureKind)
			assert.Empty(t, a.Records)

			// 失败后会话锁已释放
			_, err = f.svc.Submit(context.Background(), sampleInput("s"), 0)
			assert.NoError(t, err)
		})
	}
}

func TestSubmit_SessionInFlight(t *testing.T) {
	d := &asyncDispatcher{}
	f := newFixture(d)
	d.svc = f.svc

	first, err := f.svc.Submit(context.Background(), sampleInput("session-1"), 0)
	require.NoError(t, err)
	assert.Equal(t, etanalysis.StatusSubmitting, first.Status)

	_, err = f.svc.Submit(context.Background(), sampleInput("session-1"), 0)
	assert.ErrorIs(t, err, errorx.ErrSubmissionInFlight)

	// 其他会话不受影响
	_, err = f.svc.Submit(context.Background(), sampleInput("session-2"), 0)
	assert.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), first.ID, mdclassify.Outcome{})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), sampleInput("session-1"), 0)
	assert.NoError(t, err)
}

func TestSubmit_QueueSmartWait(t *testing.T) {
	records, err := etprediction.Normalize([]byte(`{"ST":0.4}`))
	require.NoError(t, err)

	d := &asyncDispatcher{outcome: &mdclassify.Outcome{Records: records}}
	f := newFixture(d)
	d.svc = f.svc

	a, err := f.svc.Submit(context.Background(), sampleInput(""), 2*time.Second)
	require.NoError(t, err)
	d.wg.Wait()

	assert.Equal(t, etanalysis.StatusSucceeded, a.Status)
	assert.Equal(t, records, a.Records)
}

func TestSubmit_QueueTimeout(t *testing.T) {
	d := &asyncDispatcher{}
	f := newFixture(d)
	d.svc = f.svc

	a, err := f.svc.Submit(context.Background(), sampleInput(""), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, etanalysis.StatusSubmitting, a.Status)

	stored, err := f.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, etanalysis.StatusSubmitting, stored.Status)
}

func TestSubmit_DispatchFailure(t *testing.T) {
	d := &asyncDispatcher{err: errors.New("lmstfy down")}
	f := newFixture(d)
	d.svc = f.svc

	a, err := f.svc.Submit(context.Background(), sampleInput("s"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, etanalysis.StatusFailed, a.Status)
	assert.Equal(t, etanalysis.FailureDispatchFailed, a.FailureKind)
	assert.Contains(t, a.FailureReason, "lmstfy down")

	ok, err := f.repo.AcquireSession(context.Background(), "s", "probe")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmit_EmptyMatrix(t *testing.T) {
	f := newInlineFixture(&fakePredictor{raw: `[]`})
	_, err := f.svc.Submit(context.Background(), SubmitInput{}, 0)

	var bizErr *errorx.BusinessError
	assert.True(t, errors.As(err, &bizErr))
}

func TestComplete_Idempotent(t *testing.T) {
	d := &asyncDispatcher{}
	f := newFixture(d)
	d.svc = f.svc

	a, err := f.svc.Submit(context.Background(), sampleInput(""), 0)
	require.NoError(t, err)

	done, err := f.svc.Complete(context.Background(), a.ID, mdclassify.Failed(etanalysis.FailureClassifierUnavailable, "x"))
	require.NoError(t, err)
	assert.Equal(t, etanalysis.StatusFailed, done.Status)

	again, err := f.svc.Complete(context.Background(), a.ID, mdclassify.Outcome{})
	require.NoError(t, err)
	assert.Equal(t, etanalysis.StatusFailed, again.Status)
}

func TestGet(t *testing.T) {
	f := newInlineFixture(&fakePredictor{raw: `[]`})

	_, err := f.svc.Get(context.Background(), "missing")
	assert.True(t, IsNotFound(err))

	_, err = f.svc.Get(context.Background(), "")
	assert.Error(t, err)
}
