package searchindex

import (
	"fmt"
	"time"

	"github.com/convoidx/convoidx/internal/corpus"
)

// sessionDocument is the indexed shape of a session doc. Field names
// mirror the schema's field constants via struct tags so bleve's
// reflection-based indexing lines up without a manual field-by-field
// mapping call.
type sessionDocument struct {
	SessionID    string     `json:"sessionId"`
	DocType      string     `json:"docType"`
	ProjectPath  string     `json:"projectPath"`
	ProjectRaw   string     `json:"projectRaw"`
	Summary      string     `json:"summary"`
	FirstPrompt  string     `json:"firstPrompt"`
	GitBranch    string     `json:"gitBranch"`
	Model        string     `json:"model"`
	Status       string     `json:"status"`
	LogPath      string     `json:"logPath"`
	MessageCount int        `json:"messageCount"`
	InputTokens  int        `json:"inputTokens"`
	OutputTokens int        `json:"outputTokens"`
	TotalTokens  int        `json:"totalTokens"`
	TurnDepth    int        `json:"turnDepth"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	ModifiedAt   *time.Time `json:"modifiedAt,omitempty"`
	Archived     bool       `json:"archived"`
	FileExists   bool       `json:"fileExists"`
	HasToolUse   bool       `json:"hasToolUse"`
}

// messageDocument is the indexed shape of one content-block message doc.
type messageDocument struct {
	SessionID      string     `json:"sessionId"`
	DocType        string     `json:"docType"`
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	ContentPreview string     `json:"contentPreview"`
	ContentType    string     `json:"contentType"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	TurnIndex      int        `json:"turnIndex"`
	BlockIndex     int        `json:"blockIndex"`
	MsgProject     string     `json:"msgProject"`
}

// sessionDocID is the stable identity of a session doc: one per
// sessionId, so a reingest's delete-by-term plus re-add lands on the
// same external id a caller might have cached.
func sessionDocID(sessionID string) string {
	return "session:" + sessionID
}

// messageDocID is unique per content block and stable across re-parses
// of an unchanged file (I6 total order), so an unchanged reingest
// produces byte-identical ids.
func messageDocID(sessionID string, turnIndex, blockIndex int) string {
	return fmt.Sprintf("message:%s:%d:%d", sessionID, turnIndex, blockIndex)
}

// buildDocuments converts one parsed log file into the (id, document)
// pairs ready for addition to the writer.
func buildDocuments(result *corpus.ParseResult) (string, sessionDocument, []indexedMessage) {
	s := result.Session
	sd := sessionDocument{
		SessionID:    s.SessionID,
		DocType:      string(DocTypeSession),
		ProjectPath:  s.ProjectPath,
		ProjectRaw:   s.ProjectRaw,
		Summary:      s.Summary,
		FirstPrompt:  s.FirstPrompt,
		GitBranch:    s.GitBranch,
		Model:        s.Model,
		Status:       s.Status,
		LogPath:      s.LogPath,
		MessageCount: s.MessageCount,
		InputTokens:  s.InputTokens,
		OutputTokens: s.OutputTokens,
		TotalTokens:  s.TotalTokens,
		TurnDepth:    s.TurnDepth,
		Archived:     s.Archived,
		FileExists:   s.FileExists,
		HasToolUse:   s.HasToolUse,
	}
	if s.HasCreatedAt {
		t := s.CreatedAt
		sd.CreatedAt = &t
	}
	if s.HasModifiedAt {
		t := s.ModifiedAt
		sd.ModifiedAt = &t
	}

	messages := make([]indexedMessage, 0, len(result.Messages))
	for _, m := range result.Messages {
		md := messageDocument{
			SessionID:      m.SessionID,
			DocType:        string(DocTypeMessage),
			Role:           m.Role,
			Content:        m.Content,
			ContentPreview: m.ContentPreview,
			ContentType:    m.ContentType,
			TurnIndex:      m.TurnIndex,
			BlockIndex:     m.BlockIndex,
			MsgProject:     m.MsgProject,
		}
		if m.HasTimestamp {
			t := m.Timestamp
			md.Timestamp = &t
		}
		messages = append(messages, indexedMessage{
			ID:  messageDocID(m.SessionID, m.TurnIndex, m.BlockIndex),
			Doc: md,
		})
	}

	return sessionDocID(s.SessionID), sd, messages
}

// indexedMessage pairs a message document with its computed id.
type indexedMessage struct {
	ID  string
	Doc messageDocument
}
