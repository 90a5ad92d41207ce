package qnabot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/qnabot/pkg/errors"
)

func TestSelectReply_BestPolicy(t *testing.T) {
	cfg := withDefaults(Config{Policy: PolicyBest})

	reply, outcome := selectReply(cfg, []CandidateAnswer{
		{Text: "A", Score: 0.4, AlternateQuestions: []string{"qa"}},
		{Text: "B", Score: 0.3, AlternateQuestions: []string{"qb"}},
	})
	require.Equal(t, "A", reply.Text)
	require.Nil(t, reply.Card)
	require.Empty(t, outcome)
}

func TestSelectReply_EmptyCandidates(t *testing.T) {
	for _, policy := range []SelectionPolicy{PolicyBest, PolicyGated} {
		cfg := withDefaults(Config{Policy: policy})
		reply, outcome := selectReply(cfg, nil)
		require.Equal(t, DefaultNoAnswerText, reply.Text, "policy %s", policy)
		require.Nil(t, reply.Card)
		require.Equal(t, MissNoAnswer, outcome)
	}
}

func TestSelectReply_GatedPerfectMatch(t *testing.T) {
	cfg := withDefaults(Config{Policy: PolicyGated})

	reply, outcome := selectReply(cfg, []CandidateAnswer{
		{Text: "Outsourcing means X", Score: 1.0, AlternateQuestions: []string{"What is outsourcing?"}},
	})
	require.Equal(t, "Outsourcing means X", reply.Text)
	require.Nil(t, reply.Card)
	require.Empty(t, outcome)
}

func TestSelectReply_GatedDisambiguation(t *testing.T) {
	cfg := withDefaults(Config{Policy: PolicyGated, PromptText: "Did you mean?"})
	candidates := []CandidateAnswer{
		{Text: "A", Score: 0.6, AlternateQuestions: []string{"What is A?", "A?"}},
		{Text: "B", Score: 0.55, AlternateQuestions: []string{"What is B?"}},
		{Text: "C", Score: 0.5},
	}

	reply, outcome := selectReply(cfg, candidates)
	require.Empty(t, reply.Text)
	require.NotNil(t, reply.Card)
	require.Equal(t, "Did you mean?", reply.Card.Text)
	require.Equal(t, MissAmbiguous, outcome)
	require.Equal(t, []CardButton{
		{Title: "What is A?", Value: "What is A?"},
		{Title: "What is B?", Value: "What is B?"},
		{Title: "C", Value: "C"},
	}, reply.Card.Buttons)
}

func TestSelectReply_GatedNearPerfectScoreStillAsks(t *testing.T) {
	cfg := withDefaults(Config{Policy: PolicyGated})

	reply, _ := selectReply(cfg, []CandidateAnswer{{Text: "A", Score: 0.99, AlternateQuestions: []string{"A?"}}})
	require.NotNil(t, reply.Card)
	require.Len(t, reply.Card.Buttons, 1)
}

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(Config{Policy: "unknown"})
	require.Equal(t, PolicyBest, cfg.Policy)
	require.Equal(t, 1, cfg.Top)
	require.Equal(t, DefaultWelcomeText, cfg.WelcomeText)
	require.Equal(t, DefaultNoAnswerText, cfg.NoAnswerText)
	require.Equal(t, DefaultPromptText, cfg.PromptText)
}

func TestService_OnConversationStartSkipsSelf(t *testing.T) {
	svc := newServiceUnderTest(Config{WelcomeText: "welcome"}, &stubAnswerClient{}, nil, nil)
	out := &recordingSender{}

	err := svc.OnConversationStart(context.Background(), ConversationStart{
		Members: []Identity{{ID: "bot"}, {ID: "user-1"}, {ID: "user-2"}},
		Self:    Identity{ID: "bot"},
	}, out)
	require.NoError(t, err)
	require.Len(t, out.sent, 2)
	for _, msg := range out.sent {
		require.Equal(t, "welcome", msg.Text)
	}
}

func TestService_OnConversationStartOnlySelf(t *testing.T) {
	svc := newServiceUnderTest(Config{}, &stubAnswerClient{}, nil, nil)
	out := &recordingSender{}

	err := svc.OnConversationStart(context.Background(), ConversationStart{
		Members: []Identity{{ID: "bot"}},
		Self:    Identity{ID: "bot"},
	}, out)
	require.NoError(t, err)
	require.Empty(t, out.sent)
}

func TestService_OnConversationStartSendFailure(t *testing.T) {
	svc := newServiceUnderTest(Config{}, &stubAnswerClient{}, nil, nil)
	out := &recordingSender{err: errors.New("connector down")}

	err := svc.OnConversationStart(context.Background(), ConversationStart{
		Members: []Identity{{ID: "user-1"}, {ID: "user-2"}},
		Self:    Identity{ID: "bot"},
	}, out)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "send_failed"))
	require.Equal(t, 1, out.calls)
}

func TestService_OnMessageSendsExactlyOneReply(t *testing.T) {
	client := &stubAnswerClient{
		answers: []CandidateAnswer{
			{Text: "A", Score: 0.6, AlternateQuestions: []string{"What is A?"}},
			{Text: "B", Score: 0.55, AlternateQuestions: []string{"What is B?"}},
		},
	}
	store := newStubStore()
	misses := &stubMissRepository{}
	svc := newServiceUnderTest(Config{Policy: PolicyGated, Top: 3, ScoreThreshold: 0.3}, client, store, misses)
	out := &recordingSender{}

	err := svc.OnMessage(context.Background(), MessageEvent{Text: "what is it?", Sender: Identity{ID: "user"}}, out)
	require.NoError(t, err)
	require.Len(t, out.sent, 1)
	require.NotNil(t, out.sent[0].Card)
	require.Len(t, out.sent[0].Card.Buttons, 2)

	require.Equal(t, "what is it?", client.lastQuery)
	require.Equal(t, QueryOptions{Top: 3, ScoreThreshold: 0.3}, client.lastOpts)
	require.Equal(t, int64(1), store.counts["what is it"])
	require.Len(t, misses.recorded, 1)
	require.Equal(t, MissAmbiguous, misses.recorded[0].Outcome)
	require.Equal(t, 0.6, misses.recorded[0].TopScore)
	require.Equal(t, time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC), misses.recorded[0].CreatedAt)
}

func TestService_OnMessageNoAnswer(t *testing.T) {
	misses := &stubMissRepository{}
	svc := newServiceUnderTest(Config{NoAnswerText: "sorry"}, &stubAnswerClient{}, newStubStore(), misses)
	out := &recordingSender{}

	require.NoError(t, svc.OnMessage(context.Background(), MessageEvent{Text: "unknown"}, out))
	require.Len(t, out.sent, 1)
	require.Equal(t, "sorry", out.sent[0].Text)
	require.Len(t, misses.recorded, 1)
	require.Equal(t, MissNoAnswer, misses.recorded[0].Outcome)
}

func TestService_OnMessageClientErrorPropagates(t *testing.T) {
	client := &stubAnswerClient{err: errors.New("401 unauthorized")}
	svc := newServiceUnderTest(Config{}, client, newStubStore(), &stubMissRepository{})
	out := &recordingSender{}

	err := svc.OnMessage(context.Background(), MessageEvent{Text: "hello"}, out)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "qna_error"))
	require.Empty(t, out.sent)
}

func TestService_OnMessageSendErrorPropagates(t *testing.T) {
	client := &stubAnswerClient{answers: []CandidateAnswer{{Text: "A", Score: 1}}}
	svc := newServiceUnderTest(Config{}, client, nil, nil)

	err := svc.OnMessage(context.Background(), MessageEvent{Text: "hello"}, &recordingSender{err: errors.New("boom")})
	require.True(t, apperrors.IsCode(err, "send_failed"))
}

func TestService_OnMessageUsesCache(t *testing.T) {
	client := &stubAnswerClient{answers: []CandidateAnswer{{Text: "cached answer", Score: 0.8}}}
	store := newStubStore()
	svc := newServiceUnderTest(Config{CacheTTL: time.Minute}, client, store, nil)

	for i := 0; i < 2; i++ {
		out := &recordingSender{}
		require.NoError(t, svc.OnMessage(context.Background(), MessageEvent{Text: "Cached?"}, out))
		require.Equal(t, "cached answer", out.sent[0].Text)
	}
	require.Equal(t, 1, client.calls)
	require.Equal(t, int64(2), store.counts["cached"])
}

func TestService_OnMessageCacheKeepsQueriesDifferingInSymbolsApart(t *testing.T) {
	client := &echoAnswerClient{}
	store := newStubStore()
	svc := newServiceUnderTest(Config{CacheTTL: time.Minute}, client, store, nil)

	first := &recordingSender{}
	require.NoError(t, svc.OnMessage(context.Background(), MessageEvent{Text: "What is C++?"}, first))
	second := &recordingSender{}
	require.NoError(t, svc.OnMessage(context.Background(), MessageEvent{Text: "What is C#?"}, second))

	require.Equal(t, []string{"What is C++?", "What is C#?"}, client.queries)
	require.Equal(t, "answer for What is C++?", first.sent[0].Text)
	require.Equal(t, "answer for What is C#?", second.sent[0].Text)

	third := &recordingSender{}
	require.NoError(t, svc.OnMessage(context.Background(), MessageEvent{Text: "  What is C#?  "}, third))
	require.Len(t, client.queries, 2)
	require.Equal(t, "answer for What is C#?", third.sent[0].Text)
}

func TestService_OnMessageDoesNotCacheEmptyResults(t *testing.T) {
	client := &stubAnswerClient{}
	svc := newServiceUnderTest(Config{CacheTTL: time.Minute}, client, newStubStore(), nil)

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.OnMessage(context.Background(), MessageEvent{Text: "nothing"}, &recordingSender{}))
	}
	require.Equal(t, 2, client.calls)
}

func TestService_StoreFailuresDoNotChangeReply(t *testing.T) {
	client := &stubAnswerClient{answers: []CandidateAnswer{{Text: "A", Score: 1}}}
	store := newStubStore()
	store.err = errors.New("valkey down")
	misses := &stubMissRepository{err: errors.New("postgres down")}
	svc := newServiceUnderTest(Config{CacheTTL: time.Minute, Policy: PolicyGated}, client, store, misses)
	out := &recordingSender{}

	require.NoError(t, svc.OnMessage(context.Background(), MessageEvent{Text: "A?"}, out))
	require.Len(t, out.sent, 1)
	require.Equal(t, "A", out.sent[0].Text)
}

func TestService_RecentMissesDefaultsLimit(t *testing.T) {
	misses := &stubMissRepository{}
	svc := newServiceUnderTest(Config{}, &stubAnswerClient{}, nil, misses)

	_, err := svc.RecentMisses(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, defaultMissesLimit, misses.lastLimit)
}

func newServiceUnderTest(cfg Config, client AnswerClient, store Store, misses MissRepository) *service {
	svc := &service{
		cfg:    withDefaults(cfg),
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: func() time.Time {
			return time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
		},
	}
	if store != nil {
		svc.store = store
	}
	if misses != nil {
		svc.misses = misses
	}
	return svc
}

type stubAnswerClient struct {
	answers   []CandidateAnswer
	err       error
	calls     int
	lastQuery string
	lastOpts  QueryOptions
}

func (s *stubAnswerClient) GetAnswers(_ context.Context, query string, opts QueryOptions) ([]CandidateAnswer, error) {
	s.calls++
	s.lastQuery = query
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.answers, nil
}

type echoAnswerClient struct {
	queries []string
}

func (e *echoAnswerClient) GetAnswers(_ context.Context, query string, _ QueryOptions) ([]CandidateAnswer, error) {
	e.queries = append(e.queries, query)
	return []CandidateAnswer{{Text: "answer for " + query, Score: 0.9}}, nil
}

type recordingSender struct {
	sent  []Message
	calls int
	err   error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type stubStore struct {
	cached map[string][]CandidateAnswer
	counts map[string]int64
	err    error
}

func newStubStore() *stubStore {
	return &stubStore{
		cached: make(map[string][]CandidateAnswer),
		counts: make(map[string]int64),
	}
}

func (s *stubStore) GetCandidates(_ context.Context, key string) ([]CandidateAnswer, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	items, ok := s.cached[key]
	return items, ok, nil
}

func (s *stubStore) SaveCandidates(_ context.Context, key string, candidates []CandidateAnswer, _ time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.cached[key] = candidates
	return nil
}

func (s *stubStore) IncrementQuery(_ context.Context, canonical, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.counts[canonical]++
	return nil
}

func (s *stubStore) TopQueries(_ context.Context, _ int) ([]TrendingQuery, error) {
	return nil, s.err
}

type stubMissRepository struct {
	recorded  []Miss
	lastLimit int
	err       error
}

func (s *stubMissRepository) RecordMiss(_ context.Context, miss Miss) (Miss, error) {
	if s.err != nil {
		return Miss{}, s.err
	}
	miss.ID = int64(len(s.recorded) + 1)
	s.recorded = append(s.recorded, miss)
	return miss, nil
}

func (s *stubMissRepository) RecentMisses(_ context.Context, limit int) ([]Miss, error) {
	s.lastLimit = limit
	return s.recorded, s.err
}
