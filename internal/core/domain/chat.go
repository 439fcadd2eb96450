package domain

import "time"

// ChatCategory separates conversations in the history log
type ChatCategory string

const (
	ChatCategoryGeneral  ChatCategory = "general"  // Questions to the assistant
	ChatCategoryDocument ChatCategory = "document" // Document generation dialogue
)

// IsValid returns true if this is a known category
func (c ChatCategory) IsValid() bool {
	return c == ChatCategoryGeneral || c == ChatCategoryDocument
}

// ChatTurn is one question/answer exchange in a user's history
type ChatTurn struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Category  ChatCategory `json:"category"`
	Question  string       `json:"question"`
	Answer    string       `json:"answer"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewChatTurn creates a turn stamped with the current time
func NewChatTurn(userID string, category ChatCategory, question, answer string) *ChatTurn {
	return &ChatTurn{
		ID:        GenerateID(),
		UserID:    userID,
		Category:  category,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
}

// AnswerTier records which prompt policy produced an answer
type AnswerTier string

const (
	AnswerTierGrounded AnswerTier = "grounded" // Context found, answer must cite it
	AnswerTierAdvisory AnswerTier = "advisory" // No context, disclaimer first
	AnswerTierCanned   AnswerTier = "canned"   // Redirect, greeting or apology without generation
)

// Answer is the outcome of one pipeline run
type Answer struct {
	Text     string     `json:"text"`
	Language Language   `json:"language"`
	Tier     AnswerTier `json:"tier"`
	Sources  []string   `json:"sources,omitempty"` // Document ids that grounded the answer
}
