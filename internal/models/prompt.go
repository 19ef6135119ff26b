package models

import "time"

const DefaultPromptModel = "llama-3.1-8b-instruct"

// Prompt is a submission record. Tier is a snapshot of the owner's tier at
// submission time and is never rewritten.
type Prompt struct {
	ID        string
	UserID    string
	Comment   string
	Body      string
	Model     string
	Tier      Tier
	CreatedAt time.Time
	UpdatedAt time.Time
}
