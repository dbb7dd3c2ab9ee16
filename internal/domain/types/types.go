// Package types defines the request/response shapes exposed by the query
// layer and the progress/update payloads published on the event hub. These
// are JSON-compatible and intentionally storage-agnostic: nothing here
// depends on the search index implementation.
package types

import "time"

// SessionFilter narrows listSessions.
type SessionFilter struct {
	Project         string `json:"project,omitempty"`
	ProjectPrefix   string `json:"project_prefix,omitempty"`
	GitBranch       string `json:"git_branch,omitempty"`
	Model           string `json:"model,omitempty"`
	IncludeArchived bool   `json:"include_archived"`
}

// SearchFilter narrows search.
type SearchFilter struct {
	Project           string `json:"project,omitempty"`
	IncludeToolOutput bool   `json:"include_tool_output"`
	Limit             int    `json:"limit,omitempty"`
	DateFrom          string `json:"date_from,omitempty"`
	DateTo            string `json:"date_to,omitempty"`
	Role              string `json:"role,omitempty"`
}

// SessionListItem describes one session row for listSessions and the
// session:updated event payload.
type SessionListItem struct {
	SessionID    string     `json:"session_id"`
	ProjectPath  string     `json:"project_path"`
	Summary      string     `json:"summary"`
	FirstPrompt  string     `json:"first_prompt"`
	GitBranch    string     `json:"git_branch"`
	Model        string     `json:"model"`
	Status       string     `json:"status"`
	MessageCount int        `json:"message_count"`
	TotalTokens  int        `json:"total_tokens"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	ModifiedAt   *time.Time `json:"modified_at,omitempty"`
	HasToolUse   bool       `json:"has_tool_use"`
	FileExists   bool       `json:"file_exists"`
	Archived     bool       `json:"archived"`
}

// MatchSnippet is one matched message within a SearchResult.
type MatchSnippet struct {
	Role        string     `json:"role"`
	ContentType string     `json:"content_type"`
	Snippet     string     `json:"snippet"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	TurnIndex   int        `json:"turn_index"`
}

// SearchResult is one session's aggregated search hit.
type SearchResult struct {
	SessionID   string         `json:"session_id"`
	Score       float64        `json:"score"`
	Snippets    []MatchSnippet `json:"snippets"`
	ProjectPath string         `json:"project_path,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Model       string         `json:"model,omitempty"`
	ModifiedAt  *time.Time     `json:"modified_at,omitempty"`
	FileExists  bool           `json:"file_exists"`
}

// SessionDetail is the full session record returned by sessionDetail.
type SessionDetail struct {
	SessionListItem
	LogPath      string `json:"log_path"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TurnDepth    int    `json:"turn_depth"`
}

// ConversationMessage is one reconstructed message returned by conversation.
type ConversationMessage struct {
	Role        string     `json:"role"`
	ContentType string     `json:"content_type"`
	Text        string     `json:"text"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Truncated   bool       `json:"truncated"`
}

// IndexStats summarizes index contents, returned by indexStats.
type IndexStats struct {
	TotalSessions    int   `json:"total_sessions"`
	ActiveSessions   int   `json:"active_sessions"`
	ArchivedSessions int   `json:"archived_sessions"`
	TotalMessages    int   `json:"total_messages"`
	SegmentCount     int   `json:"segment_count"`
	IndexSizeBytes   int64 `json:"index_size_bytes"`
}

// IndexPhase names one phase of the bulk indexer, used by IndexProgress.
type IndexPhase string

const (
	PhaseDiscovering     IndexPhase = "discovering"
	PhaseLoadingMetadata IndexPhase = "loading_metadata"
	PhaseIndexing        IndexPhase = "indexing"
	PhaseCommitting      IndexPhase = "committing"
)

// IndexProgress is the payload of index:progress events, emitted on phase
// transitions and every 500 files processed within a phase.
type IndexProgress struct {
	Phase   IndexPhase `json:"phase"`
	Current int        `json:"current"`
	Total   int        `json:"total"`
}
