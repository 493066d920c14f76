package normalize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/config"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/llm"
)

type mockProvider struct {
	response string
	err      error
	calls    int
	last     llm.Request
}

func (m *mockProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.calls++
	m.last = req
	return m.response, m.err
}

func (m *mockProvider) Name() string { return "mock" }

const minimalRecord = `{"loan_id":"L1","borrower":{},"loan_terms":{}}`

func newTestNormalizer(p llm.Provider, cfg config.NormalizeConfig) *Normalizer {
	n := New(p, cfg)
	n.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return n
}

func TestNormalizePassThroughJSON(t *testing.T) {
	provider := &mockProvider{}
	n := newTestNormalizer(provider, config.NormalizeConfig{})

	res, err := n.Normalize(context.Background(), Document{
		Content:     minimalRecord,
		FileName:    "upload.txt",
		ContentType: "application/json",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, provider.calls)
	assert.Equal(t, SourcePassthrough, res.Source)
	assert.Equal(t, MessagePassthrough, res.Message)
	assert.JSONEq(t, minimalRecord, string(res.Data))
}

func TestNormalizePassThroughWithoutProvider(t *testing.T) {
	n := newTestNormalizer(nil, config.NormalizeConfig{})
	res, err := n.Normalize(context.Background(), Document{Content: minimalRecord, FileName: "LOAN.JSON"})
	require.NoError(t, err)
	assert.Equal(t, SourcePassthrough, res.Source)
}

func TestNormalizeFallsBackForInvalidJSON(t *testing.T) {
	cases := map[string]string{
		"syntax error":    `{"loan_id": "L1",`,
		"missing terms":   `{"loan_id":"L1","borrower":{}}`,
		"null borrower":   `{"loan_id":"L1","borrower":null,"loan_terms":{}}`,
		"array top level": `[1,2,3]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			provider := &mockProvider{response: minimalRecord}
			n := newTestNormalizer(provider, config.NormalizeConfig{})

			res, err := n.Normalize(context.Background(), Document{Content: content, FileName: "loan.json"})
			require.NoError(t, err)
			assert.Equal(t, 1, provider.calls)
			assert.Equal(t, SourceStructured, res.Source)
			assert.Equal(t, MessageStructured, res.Message)
		})
	}
}

func TestNormalizeStructuresTextExactlyOnce(t *testing.T) {
	provider := &mockProvider{response: minimalRecord}
	n := newTestNormalizer(provider, config.NormalizeConfig{})

	res, err := n.Normalize(context.Background(), Document{
		Content:     "Facility agreement between Nordic Wind Holdings and the Bank.",
		FileName:    "facility.txt",
		ContentType: "text/plain",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, llm.FormatJSON, provider.last.Format)
	assert.Contains(t, provider.last.Prompt, "Nordic Wind Holdings")
	assert.Contains(t, provider.last.Prompt, "LoanJSON-Standard")
	assert.Contains(t, provider.last.Prompt, "2024-03-01T12:00:00Z")
	assert.Contains(t, provider.last.Prompt, "chronological")
	assert.JSONEq(t, minimalRecord, string(res.Data))
}

func TestNormalizeValidJSONNotDeclaredIsStructured(t *testing.T) {
	provider := &mockProvider{response: minimalRecord}
	n := newTestNormalizer(provider, config.NormalizeConfig{})

	_, err := n.Normalize(context.Background(), Document{Content: minimalRecord, FileName: "loan.txt", ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestNormalizeStripsCodeFence(t *testing.T) {
	provider := &mockProvider{response: "```json\n" + minimalRecord + "\n```"}
	n := newTestNormalizer(provider, config.NormalizeConfig{})

	res, err := n.Normalize(context.Background(), Document{Content: "term sheet"})
	require.NoError(t, err)
	assert.JSONEq(t, minimalRecord, string(res.Data))
}

func TestNormalizeUnparsableOutput(t *testing.T) {
	provider := &mockProvider{response: "I could not find a loan in this document."}
	n := newTestNormalizer(provider, config.NormalizeConfig{})

	_, err := n.Normalize(context.Background(), Document{Content: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnparsableOutput)
	assert.Equal(t, 1, provider.calls)
}

func TestNormalizeTrustsOutputUnlessStrict(t *testing.T) {
	provider := &mockProvider{response: `{"borrower":{"name":"Acme"}}`}

	res, err := newTestNormalizer(provider, config.NormalizeConfig{}).Normalize(context.Background(), Document{Content: "memo"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"borrower":{"name":"Acme"}}`, string(res.Data))

	_, err = newTestNormalizer(provider, config.NormalizeConfig{StrictAIOutput: true}).Normalize(context.Background(), Document{Content: "memo"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestNormalizeWithoutProvider(t *testing.T) {
	n := newTestNormalizer(nil, config.NormalizeConfig{})
	_, err := n.Normalize(context.Background(), Document{Content: "plain text", FileName: "memo.txt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestNormalizeProviderFailure(t *testing.T) {
	provider := &mockProvider{err: errors.New("503 from upstream")}
	n := newTestNormalizer(provider, config.NormalizeConfig{})

	_, err := n.Normalize(context.Background(), Document{Content: "plain text"})
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
	assert.Equal(t, 1, provider.calls)
}

func TestNormalizeSendsBlankAndLargeContentToProvider(t *testing.T) {
	inputs := []string{"", "   \n", strings.Repeat("x", 64<<10)}
	for _, content := range inputs {
		provider := &mockProvider{response: "I could not find a loan in this document."}
		n := newTestNormalizer(provider, config.NormalizeConfig{})

		_, err := n.Normalize(context.Background(), Document{Content: content, FileName: "notes.txt"})
		assert.ErrorIs(t, err, ErrUnparsableOutput)
		assert.Equal(t, 1, provider.calls)
		assert.Equal(t, llm.FormatJSON, provider.last.Format)
	}
}

func TestNormalizeEmptyProviderReplyIsUnparsable(t *testing.T) {
	provider := &mockProvider{response: ""}
	n := newTestNormalizer(provider, config.NormalizeConfig{})

	_, err := n.Normalize(context.Background(), Document{Content: "term sheet"})
	assert.ErrorIs(t, err, ErrUnparsableOutput)
	assert.NotErrorIs(t, err, ErrCapabilityUnavailable)
}

func TestIsJSONDocument(t *testing.T) {
	assert.True(t, IsJSONDocument("loan.json", ""))
	assert.True(t, IsJSONDocument("Loan.Json", "text/plain"))
	assert.True(t, IsJSONDocument("", "application/json; charset=utf-8"))
	assert.True(t, IsJSONDocument("", "application/ld+json"))
	assert.False(t, IsJSONDocument("loan.pdf", "application/pdf"))
	assert.False(t, IsJSONDocument("json", ""))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
