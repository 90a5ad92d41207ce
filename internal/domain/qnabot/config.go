package qnabot

import "time"

// Config holds runtime knobs for the responder.
type Config struct {
	Policy         SelectionPolicy
	Top            int
	ScoreThreshold float64
	WelcomeText    string
	NoAnswerText   string
	PromptText     string
	CacheTTL       time.Duration
	TopTrending    int
}
