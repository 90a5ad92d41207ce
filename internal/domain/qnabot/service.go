package qnabot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/qnabot/pkg/errors"
)

const (
	// DefaultWelcomeText greets members joining the conversation.
	DefaultWelcomeText = "こんにちは、ヘルプデスクチャットボットです。" +
		"\n\n" +
		"会社の問題に答えます。" +
		"\n\n" +
		"サンプルの質問: アウトソーシングとはどのような意味ですか" +
		"\n\n" +
		"参照リンク: https://www.noc-net.co.jp/faq/"
	// DefaultNoAnswerText is sent when the knowledge base has no candidate.
	DefaultNoAnswerText = "申し訳ありませんが、システムにはその質問に対する正しい答えがありません。"
	// DefaultPromptText heads the disambiguation card.
	DefaultPromptText = "以下が聞きたい質問ですか？"

	defaultTop         = 1
	defaultMissesLimit = 20
)

// Service answers chat events using a QnA knowledge base.
type Service interface {
	OnConversationStart(ctx context.Context, ev ConversationStart, out Sender) error
	OnMessage(ctx context.Context, ev MessageEvent, out Sender) error
	Trending(ctx context.Context) ([]TrendingQuery, error)
	RecentMisses(ctx context.Context, limit int) ([]Miss, error)
}

// AnswerClient queries the hosted QnA service.
type AnswerClient interface {
	GetAnswers(ctx context.Context, query string, opts QueryOptions) ([]CandidateAnswer, error)
}

// Sender delivers a reply to the conversation the event came from.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type service struct {
	cfg    Config
	client AnswerClient
	store  Store
	misses MissRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the responder.
func NewService(cfg Config, client AnswerClient, store Store, misses MissRepository, logger *slog.Logger) Service {
	return &service{
		cfg:    withDefaults(cfg),
		client: client,
		store:  store,
		misses: misses,
		logger: logger.With("component", "qnabot.service"),
		now:    time.Now,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Policy != PolicyGated {
		cfg.Policy = PolicyBest
	}
	if cfg.Top <= 0 {
		cfg.Top = defaultTop
	}
	if strings.TrimSpace(cfg.WelcomeText) == "" {
		cfg.WelcomeText = DefaultWelcomeText
	}
	if strings.TrimSpace(cfg.NoAnswerText) == "" {
		cfg.NoAnswerText = DefaultNoAnswerText
	}
	if strings.TrimSpace(cfg.PromptText) == "" {
		cfg.PromptText = DefaultPromptText
	}
	return cfg
}

func (s *service) OnConversationStart(ctx context.Context, ev ConversationStart, out Sender) error {
	for _, member := range ev.Members {
		if member.ID == ev.Self.ID {
			continue
		}
		if err := out.Send(ctx, Message{Text: s.cfg.WelcomeText}); err != nil {
			return apperrors.Wrap("send_failed", "failed to send welcome message", err)
		}
	}
	return nil
}

func (s *service) OnMessage(ctx context.Context, ev MessageEvent, out Sender) error {
	candidates, err := s.lookup(ctx, ev.Text)
	if err != nil {
		return err
	}

	reply, outcome := selectReply(s.cfg, candidates)
	if err := out.Send(ctx, reply); err != nil {
		return apperrors.Wrap("send_failed", "failed to send reply", err)
	}

	s.record(ctx, ev.Text, candidates, outcome)
	return nil
}

func (s *service) Trending(ctx context.Context) ([]TrendingQuery, error) {
	if s.store == nil {
		return nil, nil
	}
	recs, err := s.store.TopQueries(ctx, s.cfg.TopTrending)
	if err != nil {
		return nil, apperrors.Wrap("insights_error", "failed to load trending queries", err)
	}
	return recs, nil
}

func (s *service) RecentMisses(ctx context.Context, limit int) ([]Miss, error) {
	if s.misses == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultMissesLimit
	}
	items, err := s.misses.RecentMisses(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap("insights_error", "failed to load missed queries", err)
	}
	return items, nil
}

// lookup keys the candidate cache on the exact question; symbols such as
// "C++" and "C#" change the answer.
func (s *service) lookup(ctx context.Context, query string) ([]CandidateAnswer, error) {
	key := strings.TrimSpace(query)
	cacheable := s.cfg.CacheTTL > 0 && key != "" && s.store != nil
	if cacheable {
		cached, ok, err := s.store.GetCandidates(ctx, key)
		if err != nil {
			s.logger.Warn("candidate cache lookup failed", "error", err)
		} else if ok {
			s.logger.Debug("candidate cache hit", "candidates", len(cached))
			return cached, nil
		}
	}

	s.logger.Info("calling qna service", "top", s.cfg.Top)
	candidates, err := s.client.GetAnswers(ctx, query, QueryOptions{
		Top:            s.cfg.Top,
		ScoreThreshold: s.cfg.ScoreThreshold,
	})
	if err != nil {
		return nil, apperrors.Wrap("qna_error", "qna service request failed", err)
	}

	// empty results stay uncached so newly published answers show up at once
	if cacheable && len(candidates) > 0 {
		if err := s.store.SaveCandidates(ctx, key, candidates, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("candidate cache save failed", "error", err)
		}
	}
	return candidates, nil
}

func (s *service) record(ctx context.Context, query string, candidates []CandidateAnswer, outcome MissOutcome) {
	if key := normalizeQuery(query); s.store != nil && key != "" {
		if err := s.store.IncrementQuery(ctx, key, strings.TrimSpace(query)); err != nil {
			s.logger.Warn("trending increment failed", "error", err)
		}
	}
	if outcome == "" || s.misses == nil {
		return
	}
	miss := Miss{
		Query:     strings.TrimSpace(query),
		Outcome:   outcome,
		CreatedAt: s.now().UTC(),
	}
	if len(candidates) > 0 {
		miss.TopScore = candidates[0].Score
	}
	if _, err := s.misses.RecordMiss(ctx, miss); err != nil {
		s.logger.Warn("miss log write failed", "error", err)
	}
}

// selectReply applies the selection policy. The outcome is empty when the
// reply answers the question directly.
func selectReply(cfg Config, candidates []CandidateAnswer) (Message, MissOutcome) {
	if len(candidates) == 0 {
		return Message{Text: cfg.NoAnswerText}, MissNoAnswer
	}
	top := candidates[0]
	if cfg.Policy != PolicyGated || isPerfectMatch(top) {
		return Message{Text: top.Text}, ""
	}
	card := &Card{
		Text:    cfg.PromptText,
		Buttons: make([]CardButton, 0, len(candidates)),
	}
	for _, candidate := range candidates {
		question := firstQuestion(candidate)
		card.Buttons = append(card.Buttons, CardButton{Title: question, Value: question})
	}
	return Message{Card: card}, MissAmbiguous
}

func isPerfectMatch(candidate CandidateAnswer) bool {
	return candidate.Score*100 >= 100
}

func firstQuestion(candidate CandidateAnswer) string {
	if len(candidate.AlternateQuestions) > 0 {
		return candidate.AlternateQuestions[0]
	}
	return candidate.Text
}
