package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"medtutor/internal/models"
	"medtutor/internal/synth"
	"medtutor/internal/topics"
	"medtutor/internal/util"

	"github.com/stretchr/testify/require"
)

type scripted struct {
	replies map[string]string
	errs    map[string]error
	calls   []synth.Call
}

func (s *scripted) Complete(ctx context.Context, call synth.Call) (string, error) {
	s.calls = append(s.calls, call)
	if err := s.errs[call.Operation]; err != nil {
		return "", err
	}
	return s.replies[call.Operation], nil
}

func (s *scripted) ops() []string {
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.Operation)
	}
	return out
}

// colorectalHistory would resolve to colorectal_cancer if consulted.
var colorectalHistory = []models.Message{
	{Role: models.RoleUser, Content: "tell me about colorectal cancer"},
	{Role: models.RoleAssistant, Content: "Colorectal cancer is..."},
}

func newResolver(s *scripted) *Resolver {
	return New(s, topics.Default(), nil)
}

func TestExactTopicWinsRegardlessOfHistory(t *testing.T) {
	s := &scripted{replies: map[string]string{
		OpExtractTopic:        `{"topic":"trigeminal neuralgia","invalid":false}`,
		OpExtractTopicHistory: `{"topic":"colorectal cancer","confidence":0.9}`,
	}}
	res := newResolver(s).Resolve(context.Background(), "What is trigeminal neuralgia?", colorectalHistory, true, synth.Override{})
	require.True(t, res.Success)
	require.Equal(t, "trigeminal_neuralgia", res.Topic)
	require.Equal(t, 1.0, res.Confidence)
	require.Equal(t, []string{OpExtractTopic}, s.ops())
}

func TestExplicitInvalidNeverConsultsHistory(t *testing.T) {
	s := &scripted{replies: map[string]string{
		OpExtractTopic:        `{"topic":"none","invalid":true}`,
		OpExtractTopicHistory: `{"topic":"colorectal cancer","confidence":0.9}`,
	}}
	res := newResolver(s).Resolve(context.Background(), "tell me about facial nerve palsy", colorectalHistory, true, synth.Override{})
	require.True(t, res.Success)
	require.True(t, res.ExplicitInvalid)
	require.Empty(t, res.Topic)
	require.Equal(t, 0.0, res.Confidence)
	require.Equal(t, []string{OpExtractTopic}, s.ops())
}

func TestEmptyUtteranceSkipsDirectPass(t *testing.T) {
	s := &scripted{replies: map[string]string{
		OpExtractTopicHistory: `{"topic":"Colorectal Cancer (CRC)","confidence":0.7}`,
	}}
	res := newResolver(s).Resolve(context.Background(), "   ", colorectalHistory, true, synth.Override{})
	require.True(t, res.Success)
	require.Equal(t, "colorectal_cancer", res.Topic)
	require.InDelta(t, 0.7, res.Confidence, 1e-9)
	require.Equal(t, []string{OpExtractTopicHistory}, s.ops())
}

func TestNoTopicFallsBackToHistory(t *testing.T) {
	s := &scripted{replies: map[string]string{
		OpExtractTopic:        `{"topic":"none","invalid":false}`,
		OpExtractTopicHistory: `{"topic":"colorectal cancer"}`,
	}}
	res := newResolver(s).Resolve(context.Background(), "what are the symptoms?", colorectalHistory, true, synth.Override{})
	require.True(t, res.Success)
	require.Equal(t, "colorectal_cancer", res.Topic)
	require.Equal(t, 0.0, res.Confidence)
	require.Equal(t, []string{OpExtractTopic, OpExtractTopicHistory}, s.ops())
}

func TestDirectPassFailureDoesNotFallBack(t *testing.T) {
	s := &scripted{
		replies: map[string]string{OpExtractTopicHistory: `{"topic":"colorectal cancer","confidence":1}`},
		errs:    map[string]error{OpExtractTopic: errors.New("provider down")},
	}
	res := newResolver(s).Resolve(context.Background(), "hello", colorectalHistory, true, synth.Override{})
	require.False(t, res.Success)
	require.Equal(t, []string{OpExtractTopic}, s.ops())

	s = &scripted{replies: map[string]string{OpExtractTopic: "I think tuberculosis"}}
	res = newResolver(s).Resolve(context.Background(), "hello", colorectalHistory, true, synth.Override{})
	require.False(t, res.Success)
}

func TestDirectPassRequiresExactLabel(t *testing.T) {
	s := &scripted{replies: map[string]string{
		OpExtractTopic:        `{"topic":"Tuberculosis","invalid":false}`,
		OpExtractTopicHistory: `{"topic":"none","confidence":0}`,
	}}
	res := newResolver(s).Resolve(context.Background(), "TB?", colorectalHistory, true, synth.Override{})
	require.True(t, res.Success)
	require.Empty(t, res.Topic)
	require.Equal(t, []string{OpExtractTopic, OpExtractTopicHistory}, s.ops())
}

func TestHistoryFailures(t *testing.T) {
	s := &scripted{replies: map[string]string{OpExtractTopicHistory: `{"topic":"tuberculosis","confidence":"high"}`}}
	r := newResolver(s)

	res := r.ExtractFromHistory(context.Background(), nil, false, synth.Override{})
	require.False(t, res.Success)
	require.Equal(t, "No chat history found", res.Message)
	require.ErrorIs(t, res.Err, util.ErrNoHistory)

	res = r.ExtractFromHistory(context.Background(), colorectalHistory, true, synth.Override{})
	require.False(t, res.Success)
	require.Equal(t, "Failed to parse topic analysis", res.Message)
}

func TestHistoryPromptTruncatesLastTwoTurns(t *testing.T) {
	long := strings.Repeat("word ", 60)
	history := []models.Message{
		{Role: models.RoleUser, Content: "ignored first turn"},
		{Role: models.RoleUser, Content: long},
		{Role: models.RoleAssistant, Content: "short latest"},
	}
	got := HistoryPrompt(history)
	want := "Chat context:\nPrevious message: " + strings.TrimSpace(strings.Repeat("word ", 50)) + "...\nLatest message: short latest\n\nDetermine the topic being discussed, prioritizing the topic from the latest message."
	require.Equal(t, want, got)

	single := HistoryPrompt(history[2:])
	require.True(t, strings.HasPrefix(single, "Chat context:\nPrevious message: \nLatest message: short latest"))
}
