package routers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/apimodel/response"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdclassify"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdnotice"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/repo/rpanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/services/svanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/classifier"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/infra/persistence/memory"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/ginx"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/analysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/ecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/server/handlers/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Meta ginx.Meta       `json:"meta"`
	Data json.RawMessage `json:"data"`
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, queue string, v interface{}) error { return nil }

type testServer struct {
	engine *gin.Engine
	repo   *rpanalysis.MemoryAnalysisRepository
}

// newTestServer 组装路由；classifierHandler 为 nil 时分类器不可达
func newTestServer(t *testing.T, classifierHandler http.HandlerFunc, dispatcher func(*classifier.Client) mdclassify.Dispatcher) *testServer {
	t.Helper()

	baseURL := "http://127.0.0.1:1"
	if classifierHandler != nil {
		srv := httptest.NewServer(classifierHandler)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}

	log := logger.NewNop()
	client := classifier.NewClient(baseURL, 2*time.Second, log)
	parser := mdingest.NewParser(mdingest.Config{MaxBytes: 8 << 20}, log)
	repo := rpanalysis.NewMemoryAnalysisRepository(time.Hour, time.Minute)
	notices := mdnotice.NewMemoryNoticeModule(memory.NewPubSub())

	if dispatcher == nil {
		dispatcher = func(c *classifier.Client) mdclassify.Dispatcher {
			return mdclassify.NewInlineDispatcher(c, log)
		}
	}
	svc := svanalysis.NewAnalysisService(repo, dispatcher(client), notices, log)

	engine := SetupRoutes(
		ecg.NewECGHandler(parser, 42),
		analysis.NewAnalysisHandler(parser, svc, 5*time.Second),
		model.NewModelHandler(client),
		log,
	)
	return &testServer{engine: engine, repo: repo}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sampleCSV(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, mdingest.EncodeCSV(&buf, mdingest.NewSeededSampler(3).Generate()))
	return buf.String()
}

func predictOK(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/predict":
		_, _ = w.Write([]byte(`{"predictions":[{"AF":0.62,"RBBB":0.0004,"1dAVb":0.2}],"message":"ok"}`))
	case "/api/model-info":
		_, _ = w.Write([]byte(`{"status":"loaded","input_shape":"(1, 4096, 12)","output_conditions":["1dAVb","RBBB","LBBB","SB","AF","ST"],"model_summary":"Trained ECG classification model"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, predictOK, nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestLeads(t *testing.T) {
	s := newTestServer(t, predictOK, nil)

	t.Run("valid CSV", func(t *testing.T) {
		w, env := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/ecg/leads", map[string]string{"data": sampleCSV(t)}))
		require.Equal(t, http.StatusOK, w.Code)

		var leads response.LeadsResponse
		require.NoError(t, json.Unmarshal(env.Data, &leads))
		assert.Equal(t, [2]int{4096, 12}, leads.Shape)
		require.Len(t, leads.Leads, 12)
		assert.Equal(t, "I", leads.Leads[0].Label)
		assert.Len(t, leads.Leads[11].Samples, 4096)
	})

	t.Run("missing data", func(t *testing.T) {
		w, env := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/ecg/leads", map[string]string{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Validation failed", env.Meta.Message)
	})

	t.Run("unrecognized format", func(t *testing.T) {
		w, env := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/ecg/leads", map[string]string{"data": "hello world"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid ECG data format. Please check your input.", env.Meta.Message)
		require.Len(t, env.Meta.Details, 1)
		assert.Equal(t, "data", env.Meta.Details[0].Path)
	})

	t.Run("wrong shape", func(t *testing.T) {
		w, env := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/ecg/leads", map[string]string{"data": "[[1,2,3]]"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "expected data shape (4096, 12), got (1, 3)", env.Meta.Message)
	})
}

func TestLeadsUpload(t *testing.T) {
	s := newTestServer(t, predictOK, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "ecg.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(sampleCSV(t)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ecg/leads/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w, _ := s.do(t, req)
	assert.Equal(t, http.StatusOK, w.Code)

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ecg/leads/upload", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w, env := s.do(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "file is required", env.Meta.Message)
	})
}

func TestSample(t *testing.T) {
	s := newTestServer(t, predictOK, nil)

	t.Run("json is reproducible", func(t *testing.T) {
		_, first := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/ecg/sample?seed=7", nil))
		_, second := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/ecg/sample?seed=7", nil))
		assert.Equal(t, string(first.Data), string(second.Data))

		var sample response.SampleResponse
		require.NoError(t, json.Unmarshal(first.Data, &sample))
		assert.Equal(t, int64(7), sample.Seed)
	})

	t.Run("default seed", func(t *testing.T) {
		_, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/ecg/sample", nil))
		var sample response.SampleResponse
		require.NoError(t, json.Unmarshal(env.Data, &sample))
		assert.Equal(t, int64(42), sample.Seed)
	})

	t.Run("csv download", func(t *testing.T) {
		w, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/ecg/sample?seed=7&format=csv", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "ecg_sample.csv")
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		assert.GreaterOrEqual(t, len(lines), 4096)
	})

	t.Run("bad format", func(t *testing.T) {
		w, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/ecg/sample?format=xml", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubmitAnalysis_Inline(t *testing.T) {
	s := newTestServer(t, predictOK, nil)

	w, env := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/analyses", map[string]string{
		"data":       sampleCSV(t),
		"session_id": "tab-1",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, env.Meta.Code)

	var resp response.AnalysisResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "SUCCEEDED", resp.Status)
	require.Len(t, resp.Records, 1)
	require.NotEmpty(t, resp.Results)
	displays := make(map[string]string, len(resp.Results))
	for _, r := range resp.Results {
		displays[r.Condition] = r.Display
	}
	assert.Equal(t, "62.0000%", displays["AF"])

	// 轮询同一分析
	w, env = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+resp.AnalysisID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var polled response.AnalysisResponse
	require.NoError(t, json.Unmarshal(env.Data, &polled))
	assert.Equal(t, resp.AnalysisID, polled.AnalysisID)
	assert.Equal(t, "SUCCEEDED", polled.Status)
}

func TestSubmitAnalysis_ClassifierDown(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w, env := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/analyses", map[string]string{"data": sampleCSV(t)}))
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.AnalysisResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "FAILED", resp.Status)
	assert.Equal(t, "CLASSIFIER_UNAVAILABLE", resp.FailureKind)
	assert.Empty(t, resp.Results)
}

func TestSubmitAnalysis_Conflict(t *testing.T) {
	s := newTestServer(t, predictOK, nil)

	ok, err := s.repo.AcquireSession(context.Background(), "tab-1", "someone-else")
	require.NoError(t, err)
	require.True(t, ok)

	w, _ := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/analyses", map[string]string{
		"data":       sampleCSV(t),
		"session_id": "tab-1",
	}))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitAnalysis_Processing(t *testing.T) {
	s := newTestServer(t, predictOK, func(*classifier.Client) mdclassify.Dispatcher {
		return mdclassify.NewQueueDispatcher(nopPublisher{}, "ecg_classify", logger.NewNop())
	})

	w, env := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/analyses?wait=0", map[string]string{"data": sampleCSV(t)}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ginx.CodeProcessing, env.Meta.Code)

	var processing ginx.ProcessingData
	require.NoError(t, json.Unmarshal(env.Data, &processing))
	assert.NotEmpty(t, processing.AnalysisID)
	assert.Equal(t, "/api/v1/analyses/"+processing.AnalysisID, processing.PollURL)

	_, env = s.do(t, httptest.NewRequest(http.MethodGet, processing.PollURL, nil))
	var polled response.AnalysisResponse
	require.NoError(t, json.Unmarshal(env.Data, &polled))
	assert.Equal(t, "SUBMITTING", polled.Status)
}

func TestSubmitAnalysis_BadWait(t *testing.T) {
	s := newTestServer(t, predictOK, nil)

	w, _ := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/analyses?wait=-1", map[string]string{"data": sampleCSV(t)}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	s := newTestServer(t, predictOK, nil)

	w, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "analysis not found", env.Meta.Message)
}

func TestModelInfo(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		s := newTestServer(t, predictOK, nil)
		w, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/model-info", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var info response.ModelInfoResponse
		require.NoError(t, json.Unmarshal(env.Data, &info))
		assert.Equal(t, "loaded", info.Status)
		assert.Equal(t, "(1, 4096, 12)", info.InputShape)
		assert.Len(t, info.OutputConditions, 6)
	})

	t.Run("not loaded", func(t *testing.T) {
		s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"not_loaded","message":"Model failed to load, using mock data"}`))
		}, nil)
		w, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/model-info", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var info response.ModelInfoResponse
		require.NoError(t, json.Unmarshal(env.Data, &info))
		assert.Equal(t, "not_loaded", info.Status)
		assert.Equal(t, "Model failed to load, using mock data", info.Message)
		assert.Empty(t, info.InputShape)
	})

	t.Run("unreachable", func(t *testing.T) {
		s := newTestServer(t, nil, nil)
		w, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/model-info", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "Classifier service unavailable", env.Meta.Message)
	})
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, predictOK, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyses", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
