package qnabot

import "time"

// SelectionPolicy decides how candidate answers turn into a reply.
type SelectionPolicy string

const (
	// PolicyBest replies with the top candidate whatever its score.
	PolicyBest SelectionPolicy = "best"
	// PolicyGated replies with the top candidate only on a perfect match and
	// otherwise offers every candidate as a button.
	PolicyGated SelectionPolicy = "gated"
)

// CandidateAnswer is a ranked answer returned by the QnA service.
type CandidateAnswer struct {
	ID                 int      `json:"id"`
	Text               string   `json:"text"`
	Score              float64  `json:"score"`
	AlternateQuestions []string `json:"alternateQuestions"`
	Source             string   `json:"source,omitempty"`
}

// EndpointConfig holds the knowledge base credentials.
type EndpointConfig struct {
	KnowledgeBaseID string
	AuthKey         string
	HostURL         string
}

// QueryOptions tunes a single QnA lookup.
type QueryOptions struct {
	Top            int
	ScoreThreshold float64
}

// Identity names a conversation member.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationStart is delivered when members join a conversation.
type ConversationStart struct {
	Members []Identity
	Self    Identity
}

// MessageEvent is an inbound user message.
type MessageEvent struct {
	Text   string
	Sender Identity
}

// Message is a reply. Exactly one of Text or Card is set.
type Message struct {
	Text string
	Card *Card
}

// Card is a prompt with selectable buttons.
type Card struct {
	Text    string       `json:"text"`
	Buttons []CardButton `json:"buttons"`
}

// CardButton re-sends Value as the next user message when selected.
type CardButton struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// TrendingQuery represents a frequently asked question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// MissOutcome labels why a query did not get a direct answer.
type MissOutcome string

const (
	MissNoAnswer  MissOutcome = "no_answer"
	MissAmbiguous MissOutcome = "ambiguous"
)

// Miss records a query that ended in the fallback or a disambiguation card.
type Miss struct {
	ID        int64       `json:"id"`
	Query     string      `json:"query"`
	Outcome   MissOutcome `json:"outcome"`
	TopScore  float64     `json:"topScore"`
	CreatedAt time.Time   `json:"createdAt"`
}
