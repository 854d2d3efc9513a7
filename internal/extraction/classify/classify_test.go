package classify

import (
	"context"
	"errors"
	"testing"

	"stratex/internal/extraction/prompt"
	"stratex/internal/gateway/provider"
	"stratex/internal/gateway/provider/providertest"
	"stratex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	raw := "```json\n{\"methodology\": \"SMC\", \"confidence\": 87, \"evidence\": [\"wait for the order block\", \"\"], \"reasoning\": \"order blocks dominate\"}\n```"
	out, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, types.MethodologySMC, out.Methodology)
	assert.Equal(t, 87.0, out.Confidence)
	assert.Equal(t, []string{"wait for the order block"}, out.Evidence)
	assert.Equal(t, "order blocks dominate", out.Reasoning)
}

func TestParseResponse_UnknownLabelIsHybrid(t *testing.T) {
	out, err := ParseResponse(`{"methodology": "astrology", "confidence": 70}`)
	require.NoError(t, err)
	assert.Equal(t, types.MethodologyHybrid, out.Methodology)
}

func TestParseResponse_ClampsConfidence(t *testing.T) {
	out, err := ParseResponse(`{"methodology": "wyckoff", "confidence": "140"}`)
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.Confidence)

	out, err = ParseResponse(`{"methodology": "wyckoff", "confidence": -3}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Confidence)
}

func TestParseResponse_Errors(t *testing.T) {
	_, err := ParseResponse("no json here")
	assert.Error(t, err)

	_, err = ParseResponse(`{"confidence": 80}`)
	assert.Error(t, err)
}

func TestParseResponse_CapsEvidence(t *testing.T) {
	out, err := ParseResponse(`{"methodology": "ict", "confidence": 90, "evidence": ["a","b","c","d","e","f","g"]}`)
	require.NoError(t, err)
	assert.Len(t, out.Evidence, maxEvidence)
}

func TestClassifier_Classify(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, providertest.Purpose("methodology_detection")).
		Return(`{"methodology": "price_action", "confidence": 72, "evidence": ["pin bar at support"]}`, nil).Once()

	c := &Classifier{LLM: llm, Prompts: prompt.NewBuilder(0), Model: "m"}
	out, err := c.Classify(context.Background(), "some transcript")
	require.NoError(t, err)
	assert.Equal(t, types.MethodologyPriceAction, out.Methodology)
	assert.True(t, out.Passes(60))
	assert.False(t, out.Passes(80))
	llm.AssertExpectations(t)
}

func TestClassifier_UpstreamErrors(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything).
		Return("", &provider.UpstreamError{StatusCode: 429, Message: "slow down"}).Once()

	c := &Classifier{LLM: llm, Prompts: prompt.NewBuilder(0)}
	_, err := c.Classify(context.Background(), "t")
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.KindUpstreamRateLimited, kind)

	llm2 := new(providertest.MockCompleter)
	llm2.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom")).Once()
	c.LLM = llm2
	_, err = c.Classify(context.Background(), "t")
	kind, _ = types.KindOf(err)
	assert.Equal(t, types.KindUpstreamUnavailable, kind)
}

func TestClassifier_ParseFailure(t *testing.T) {
	llm := new(providertest.MockCompleter)
	llm.On("Complete", mock.Anything, mock.Anything).Return("I think it is SMC", nil).Once()
	c := &Classifier{LLM: llm, Prompts: prompt.NewBuilder(0)}
	_, err := c.Classify(context.Background(), "t")
	kind, _ := types.KindOf(err)
	assert.Equal(t, types.KindParseFailure, kind)
}
