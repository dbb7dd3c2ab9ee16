package corpus

import (
	"time"

	"github.com/google/uuid"
)

// ValidSessionID reports whether id looks like a session log's expected
// identifier: a UUID, matching the "<uuid>.log" naming convention the
// corpus's session files follow.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// SessionDoc is the parsed, not-yet-indexed representation of a session doc.
type SessionDoc struct {
	SessionID     string
	ProjectPath   string
	ProjectRaw    string
	Summary       string
	FirstPrompt   string
	GitBranch     string
	Model         string
	Status        string
	LogPath       string
	MessageCount  int
	InputTokens   int
	OutputTokens  int
	TotalTokens   int
	TurnDepth     int
	CreatedAt     time.Time
	HasCreatedAt  bool
	ModifiedAt    time.Time
	HasModifiedAt bool
	Archived      bool
	FileExists    bool
	HasToolUse    bool
}

// MessageDoc is the parsed, not-yet-indexed representation of one message doc.
type MessageDoc struct {
	SessionID      string
	MsgProject     string
	Role           string
	Content        string
	ContentPreview string
	ContentType    string
	Timestamp      time.Time
	HasTimestamp   bool
	TurnIndex      int
	BlockIndex     int
}

// ParseResult is one log file's decoded output: the session doc first,
// followed by message docs in file order.
type ParseResult struct {
	Session  SessionDoc
	Messages []MessageDoc
}

// SidebandEntry is one session's precomputed metadata from sessions-index.json.
type SidebandEntry struct {
	Summary      string    `json:"summary"`
	FirstPrompt  string    `json:"firstPrompt"`
	Created      time.Time `json:"created"`
	Modified     time.Time `json:"modified"`
	GitBranch    string    `json:"gitBranch"`
	ProjectPath  string    `json:"projectPath"`
	MessageCount int       `json:"messageCount"`
}

// Sideband maps sessionId to its precomputed metadata entry.
type Sideband map[string]SidebandEntry
