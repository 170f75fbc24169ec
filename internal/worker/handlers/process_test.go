package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/framework"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/handlers/classify"
)

type fakePredictor struct {
	raw string
	err error
}

func (f *fakePredictor) Predict(ctx context.Context, m etecg.SampleMatrix) (*classifier.PredictResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &classifier.PredictResponse{Predictions: []byte(f.raw)}, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	callbacks []*model.ClassifyCallback
}

func (f *fakePublisher) Publish(ctx context.Context, queue string, v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.callbacks = append(f.callbacks, v.(*model.ClassifyCallback))
	return nil
}

func jobMessage(t *testing.T, analysisID string, rows [][]float64) *framework.Message {
	t.Helper()
	data, err := json.Marshal(model.NewClassifyJob("req-1", analysisID, rows))
	require.NoError(t, err)
	return &framework.Message{ID: "job-" + analysisID, Queue: "ecg_classify", Data: data}
}

func newProc(p *fakePredictor, pub *fakePublisher) framework.Proc {
	hm := NewHandlerMap(classify.Deps{
		Predictor:     p,
		Publisher:     pub,
		CallbackQueue: "ecg_classify_callback",
		Logger:        logger.NewNop(),
	})
	return GetProcess(hm, logger.NewNop())
}

func TestGetProcess_Success(t *testing.T) {
	pub := &fakePublisher{}
	proc := newProc(&fakePredictor{raw: `{"AF":0.5}`}, pub)

	rows := mdingest.NewSeededSampler(1).Generate().Rows()
	resp := proc(context.Background(), jobMessage(t, "a-1", rows))

	assert.Equal(t, framework.JobActionAck, resp.Action)
	require.Len(t, pub.callbacks, 1)
	cb := pub.callbacks[0]
	assert.Equal(t, "a-1", cb.AnalysisID)
	assert.Equal(t, "req-1", cb.RequestID)
	assert.Equal(t, model.CallbackStatusSuccess, cb.Status)
	assert.JSONEq(t, `[{"AF":0.5}]`, string(cb.Predictions))
}

func TestGetProcess_OutcomeFailuresAreAcked(t *testing.T) {
	rows := mdingest.NewSeededSampler(1).Generate().Rows()

	cases := []struct {
		name      string
		predictor *fakePredictor
		rows      [][]float64
		kind      etanalysis.FailureKind
	}{
		{"classifier down", &fakePredictor{err: classifier.ErrClassifierUnavailable}, rows, etanalysis.FailureClassifierUnavailable},
		{"bad predictions", &fakePredictor{raw: `"oops"`}, rows, etanalysis.FailureInvalidPredictionFormat},
		{"bad shape", &fakePredictor{raw: `{}`}, rows[:10], etanalysis.FailureInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &fakePublisher{}
			resp := newProc(tc.predictor, pub)(context.Background(), jobMessage(t, "a", tc.rows))

			assert.Equal(t, framework.JobActionAck, resp.Action)
			require.Len(t, pub.callbacks, 1)
			assert.Equal(t, model.CallbackStatusFailed, pub.callbacks[0].Status)
			assert.Equal(t, string(tc.kind), pub.callbacks[0].FailureKind)
		})
	}
}

func TestGetProcess_CallbackPublishFailureReleases(t *testing.T) {
	pub := &fakePublisher{err: errors.New("lmstfy down")}
	proc := newProc(&fakePredictor{raw: `{}`}, pub)

	rows := mdingest.NewSeededSampler(1).Generate().Rows()
	resp := proc(context.Background(), jobMessage(t, "a", rows))
	assert.Equal(t, framework.JobActionRelease, resp.Action)
	assert.ErrorContains(t, resp.Err, "lmstfy down")
}

func TestGetProcess_BadJobsAreBuried(t *testing.T) {
	proc := newProc(&fakePredictor{}, &fakePublisher{})

	for name, data := range map[string]string{
		"not json":       `{`,
		"no payload":     `{}`,
		"unknown action": `{"payload":{"data":{"action_type":"reboot","id":"x","data":{}}}}`,
		"no data":        `{"payload":{"data":{"action_type":"ecg_classify","id":"x"}}}`,
		"no analysis id": `{"payload":{"data":{"action_type":"ecg_classify","data":{"ecg_data":[]}}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := proc(context.Background(), &framework.Message{ID: "j", Data: []byte(data)})
			assert.Equal(t, framework.JobActionBury, resp.Action)
			assert.Error(t, resp.Err)
		})
	}
}
