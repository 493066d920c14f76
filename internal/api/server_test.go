package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/config"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/insight"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/llm"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/normalize"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/sqlite"
)

type mockProvider struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (m *mockProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, req.Prompt)
	return m.response, m.err
}

func (m *mockProvider) Name() string { return "mock" }

type fakeSynth struct {
	audio []byte
	err   error
	texts []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

const sampleLoan = `{
  "metadata": {"version": "1.0", "last_updated": "2024-03-01T00:00:00Z", "schema_type": "LoanJSON-Standard"},
  "loan_id": "LN-2024-001",
  "borrower": {"name": "Nordic Wind Holdings", "jurisdiction": "NO", "sector": "Renewable Energy", "credit_rating": "BBB+"},
  "loan_terms": {
    "principal": {"amount": 25000000, "currency": "EUR"},
    "interest_rate": {"type": "floating", "base": "EURIBOR", "margin": 2.1, "current_all_in": 5.25},
    "maturity_date": "2029-06-30",
    "origination_date": "2022-06-30"
  },
  "covenants": [
    {"id": "C1", "description": "Debt Service Coverage Ratio", "threshold": 1.25, "unit": "x", "current_value": 1.1, "status": "breached", "last_check": "2024-02-15"},
    {"id": "C2", "description": "Turbine uptime", "threshold": 95, "unit": "%", "current_value": 97.5, "status": "compliant", "last_check": "2024-02-15"}
  ],
  "risk_engine": {"health_score": 72, "trend": "decreasing", "prediction": {"probability_of_default": 0.045, "horizon": "90d", "factors": ["DSCR breach"]}},
  "timeline": [
    {"date": "2022-06-30", "event": "Origination", "description": "Facility signed", "type": "origination"},
    {"date": "2024-02-15", "event": "DSCR breach", "description": "DSCR below threshold", "type": "breach"},
    {"date": "2023-05-01", "event": "Amendment", "description": "Margin step-up", "type": "amendment"}
  ]
}`

type testEnv struct {
	server   *Server
	provider *mockProvider
	synth    *fakeSynth
	catalog  *sqlite.Store
}

func newTestEnv(t *testing.T, provider *mockProvider, withSpeech bool) *testEnv {
	t.Helper()
	storeCfg := config.DefaultConfig().Store
	storeCfg.Path = filepath.Join(t.TempDir(), "loans.db")
	catalog, err := sqlite.Open(storeCfg)
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })

	var p llm.Provider
	if provider != nil {
		p = provider
	}
	deps := Deps{
		Normalizer: normalize.New(p, config.DefaultConfig().Normalize),
		Insights:   insight.NewOrchestrator(p),
		Catalog:    catalog,
		Server:     config.ServerConfig{MaxBodyBytes: 1 << 20},
	}
	env := &testEnv{provider: provider, catalog: catalog}
	if withSpeech {
		env.synth = &fakeSynth{audio: []byte("ID3-mp3")}
		deps.Speech = env.synth
	}
	srv, err := NewServer(deps)
	require.NoError(t, err)
	env.server = srv
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServerRequiresPipeline(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.Error(t, err)
}

func TestHealthzAndRequestID(t *testing.T) {
	env := newTestEnv(t, nil, false)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestConvertLoanPassThrough(t *testing.T) {
	provider := &mockProvider{}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/convert-loan", map[string]string{
		"content":  `{"loan_id":"L1","borrower":{},"loan_terms":{}}`,
		"fileName": "loan.txt",
		"fileType": "application/json",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, normalize.MessagePassthrough, body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "L1", data["loan_id"])
	assert.Zero(t, provider.calls)

	row, err := env.catalog.GetLoan(context.Background(), "L1")
	require.NoError(t, err)
	assert.Equal(t, normalize.SourcePassthrough, row.Source)
	assert.Equal(t, body["uploadId"], row.UploadID)
}

func TestConvertLoanStructuresText(t *testing.T) {
	provider := &mockProvider{response: sampleLoan}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/convert-loan", map[string]string{
		"content":  "Facility agreement for Nordic Wind Holdings",
		"fileName": "agreement.txt",
		"fileType": "text/plain",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, normalize.MessageStructured, decodeBody(t, rec)["message"])

	rows, err := env.catalog.ListLoans(context.Background(), sqlite.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "LN-2024-001", rows[0].LoanID)
	assert.Equal(t, 1, rows[0].BreachedCovenants)
}

func TestConvertLoanFailures(t *testing.T) {
	cases := []struct {
		name     string
		provider *mockProvider
		body     interface{}
		status   int
		message  string
	}{
		{"unparsable output", &mockProvider{response: "not json"}, map[string]string{"content": "memo"}, http.StatusUnprocessableEntity, msgConvertUnparsable},
		{"not configured", nil, map[string]string{"content": "memo"}, http.StatusInternalServerError, msgConvertNotConfigured},
		{"provider error", &mockProvider{err: errors.New("boom")}, map[string]string{"content": "memo"}, http.StatusInternalServerError, msgConvertUnsupported},
		{"missing content", &mockProvider{response: "nothing to convert"}, map[string]string{"fileName": "a.txt"}, http.StatusUnprocessableEntity, msgConvertUnparsable},
		{"bad json", &mockProvider{}, "{", http.StatusBadRequest, "invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.provider, false)
			rec := env.do(t, http.MethodPost, "/api/convert-loan", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tc.message)
		})
	}
}

func TestConvertBlankContentCallsProviderOnce(t *testing.T) {
	provider := &mockProvider{response: "There is no loan here."}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/convert-loan", map[string]string{
		"content":  "  ",
		"fileName": "blank.txt",
		"fileType": "text/plain",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, msgConvertUnparsable, decodeBody(t, rec)["error"])
	assert.Equal(t, 1, provider.calls)
}

func TestConvertOversizedUploadFails(t *testing.T) {
	provider := &mockProvider{response: sampleLoan}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/convert-loan", map[string]string{
		"content":  strings.Repeat("a", 2<<20),
		"fileName": "huge.txt",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, msgConvertTooLarge, body["error"])
	assert.Zero(t, provider.calls)
}

func TestConvertThenInsightWithNumericIdentifiers(t *testing.T) {
	const numericLoan = `{
	  "loan_id": 12345,
	  "borrower": {"name": "Harbor Logistics", "sector": "Transport", "credit_rating": "BB"},
	  "loan_terms": {"principal": {"amount": 1000000, "currency": "USD"}, "interest_rate": {"type": "fixed", "base": 4.5, "current_all_in": 6}},
	  "covenants": [{"id": 1, "description": "Interest cover", "threshold": 2, "unit": "x", "current_value": 1.5, "status": "breached"}],
	  "risk_engine": {"health_score": 55, "trend": "decreasing", "prediction": {"probability_of_default": 0.08, "factors": ["fuel costs"]}}
	}`
	provider := &mockProvider{response: "Loan Overview\nUnder pressure."}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/convert-loan", map[string]string{
		"content":  numericLoan,
		"fileName": "harbor.json",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var converted convertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &converted))
	assert.Zero(t, provider.calls)

	row, err := env.catalog.GetLoan(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, 1, row.BreachedCovenants)

	rec = env.do(t, http.MethodPost, "/api/generate-insight", map[string]interface{}{
		"loanData":    converted.Data,
		"insightType": "explain",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "Loan ID: 12345")
	assert.Contains(t, provider.prompts[0], "Interest cover (Current: 1.5x, Threshold: 2x)")

	rec = env.do(t, http.MethodPost, "/api/voice-summary", map[string]interface{}{
		"loanData":       converted.Data,
		"currentInsight": "Loan Overview\nUnder pressure.",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	trail, err := env.catalog.AuditTrail(context.Background(), "12345")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, "normalized", trail[0].Action)
	assert.Equal(t, "insight", trail[1].Action)
}

func TestGenerateInsight(t *testing.T) {
	provider := &mockProvider{response: "Risk Assessment\nModerate.\n\nMitigation Strategies\n• Increase reserves by 5%. • Monitor covenant X monthly."}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/generate-insight", map[string]interface{}{
		"loanData":    json.RawMessage(sampleLoan),
		"insightType": "risk",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got insight.Insight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Risk Analysis", got.Title)
	assert.Equal(t, []string{"Increase reserves by 5%.", "Monitor covenant X monthly."}, got.Recommendations)
	require.Len(t, got.Sections, 1)
	assert.Contains(t, provider.prompts[0], "Nordic Wind Holdings")

	trail, err := env.catalog.AuditTrail(context.Background(), "LN-2024-001")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "category=risk", trail[0].Detail)
}

func TestGenerateInsightOmitsEmptyRecommendations(t *testing.T) {
	provider := &mockProvider{response: "Loan Overview\nHealthy facility."}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/generate-insight", map[string]interface{}{
		"loanData":    json.RawMessage(sampleLoan),
		"insightType": "explain",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	_, present := body["recommendations"]
	assert.False(t, present)
	assert.Equal(t, "Loan Overview\nHealthy facility.", body["rawText"])
}

func TestGenerateInsightInvalidType(t *testing.T) {
	provider := &mockProvider{response: "x"}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/generate-insight", map[string]interface{}{
		"loanData":    json.RawMessage(sampleLoan),
		"insightType": "unknown",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidInsightType, decodeBody(t, rec)["error"])
	assert.Zero(t, provider.calls)
}

func TestGenerateInsightFailures(t *testing.T) {
	env := newTestEnv(t, nil, false)
	rec := env.do(t, http.MethodPost, "/api/generate-insight", map[string]interface{}{
		"loanData":    json.RawMessage(sampleLoan),
		"insightType": "explain",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInsightNotConfigured, decodeBody(t, rec)["error"])

	failing := newTestEnv(t, &mockProvider{err: errors.New("quota exceeded")}, false)
	rec = failing.do(t, http.MethodPost, "/api/generate-insight", map[string]interface{}{
		"loanData":    json.RawMessage(sampleLoan),
		"insightType": "esg",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, msgInsightFailed, body["error"])
	assert.Contains(t, body["details"], "quota exceeded")

	rec = failing.do(t, http.MethodPost, "/api/generate-insight", map[string]interface{}{
		"loanData":    json.RawMessage(sampleLoan),
		"insightType": "summary-voice",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoiceSummary(t *testing.T) {
	provider := &mockProvider{response: "**Nordic Wind** remains _stable_ overall."}
	env := newTestEnv(t, provider, false)

	rec := env.do(t, http.MethodPost, "/api/voice-summary", map[string]interface{}{
		"loanData":       json.RawMessage(sampleLoan),
		"currentInsight": "Loan Overview\nPerforming.",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Nordic Wind remains stable overall.", decodeBody(t, rec)["text"])

	rec = env.do(t, http.MethodPost, "/api/voice-summary", map[string]interface{}{
		"loanData": json.RawMessage(sampleLoan),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "currentInsight is required")
}

func TestTTS(t *testing.T) {
	env := newTestEnv(t, nil, true)
	rec := env.do(t, http.MethodPost, "/api/tts", map[string]string{"text": "The loan remains stable."})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ID3-mp3", rec.Body.String())
	assert.Equal(t, []string{"The loan remains stable."}, env.synth.texts)

	env.synth.err = errors.New("upstream 500")
	rec = env.do(t, http.MethodPost, "/api/tts", map[string]string{"text": "again"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgSpeechFailed, decodeBody(t, rec)["error"])
}

func TestTTSNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil, false)
	rec := env.do(t, http.MethodPost, "/api/tts", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgSpeechNotConfigured, decodeBody(t, rec)["error"])
}

func TestLoanCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t, nil, false)
	rec := env.do(t, http.MethodPost, "/api/convert-loan", map[string]string{
		"content":  sampleLoan,
		"fileName": "nordic.json",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/loans?breached=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list loanListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Nordic Wind Holdings", list.Loans[0].BorrowerName)

	rec = env.do(t, http.MethodGet, "/v1/loans/LN-2024-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "nordic.json", body["file_name"])
	assert.Equal(t, "LN-2024-001", body["data"].(map[string]interface{})["loan_id"])

	rec = env.do(t, http.MethodGet, "/v1/loans/LN-2024-001/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview struct {
		Risk      struct{ Level string }             `json:"risk"`
		Covenants struct{ Total, Breached int }      `json:"covenants"`
		Timeline  []struct{ Date string }            `json:"timeline"`
		Summary   struct{ Amendments, Breaches int } `json:"timeline_summary"`
		Audit     []struct{ Action string }          `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Equal(t, "MODERATE RISK", overview.Risk.Level)
	assert.Equal(t, 2, overview.Covenants.Total)
	assert.Equal(t, 1, overview.Covenants.Breached)
	require.Len(t, overview.Timeline, 3)
	assert.Equal(t, "2024-02-15", overview.Timeline[0].Date)
	assert.Equal(t, 1, overview.Summary.Amendments)
	require.Len(t, overview.Audit, 1)
	assert.Equal(t, "normalized", overview.Audit[0].Action)

	rec = env.do(t, http.MethodGet, "/v1/loans/LN-2024-001/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="loan-LN-2024-001-`)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "{\n  \""))

	rec = env.do(t, http.MethodGet, "/v1/loans/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/loans?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.do(t, http.MethodPost, "/api/tts", map[string]string{"text": "hello"})

	rec := env.do(t, http.MethodGet, "/v1/logs?component=api&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Entries []struct {
			Component string `json:"component"`
		} `json:"entries"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.LessOrEqual(t, body.Count, 5)
	for _, entry := range body.Entries {
		assert.Equal(t, "api", entry.Component)
	}
}

func TestDebugVars(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.do(t, http.MethodPost, "/api/convert-loan", map[string]string{"content": sampleLoan, "fileName": "nordic.json"})
	rec := env.do(t, http.MethodGet, "/debug/vars", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loanjson_normalize_total")
}
