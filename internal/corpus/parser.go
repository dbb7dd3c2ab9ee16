package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/convoidx/convoidx/internal/adapters/jsonl"
	"github.com/convoidx/convoidx/internal/pathutil"
)

// previewBytes bounds contentPreview and firstPrompt, both cut at a valid
// UTF-8 boundary rather than mid-rune.
const previewBytes = 500

// maxLogLineBytes guards against a single corrupt line consuming unbounded
// memory; it does not bound message content, only one JSONL record.
const maxLogLineBytes = 8 << 20

// rawLine is the on-disk shape of one JSONL record. Unknown fields are
// ignored; the corpus is produced by a tool this package doesn't control.
type rawLine struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Cwd       string          `json:"cwd"`
	GitBranch string          `json:"gitBranch"`
	Timestamp json.RawMessage `json:"timestamp"`
	Message   struct {
		Role    string          `json:"role"`
		Model   string          `json:"model"`
		Content json.RawMessage `json:"content"`
		Usage   struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

// block is one element of an Anthropic-style content array.
type block struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
	Content  json.RawMessage `json:"content"`
}

// emittableTypes are the top-level line types that produce message docs.
// Other line types (e.g. "summary", "meta") may still advance the
// session's first/last-seen timestamps but never become a message.
var emittableTypes = map[string]bool{
	"user":      true,
	"assistant": true,
	"tool":      true,
}

// userTextExclusionPrefixes mirrors the markers the CLI injects into
// synthetic user turns (slash-command echoes, caveat banners) that should
// never seed firstPrompt or count as authored text.
var userTextExclusionPrefixes = []string{
	"Caveat:",
	"<command-name>",
	"<local-command-stdout>",
	"<local-command-stderr>",
}

// ParseFile decodes one session log into a session doc followed by its
// message docs, in file order. projectRaw is the encoded project directory
// name the file was found under; side carries precomputed metadata from a
// sibling sessions-index.json, if one exists, and may be nil.
//
// A file that cannot be opened yields an empty result and a non-nil error;
// callers should log and continue rather than abort a bulk pass. Malformed
// individual lines are skipped, never fatal.
func ParseFile(path, projectRaw string, side *SidebandEntry) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sess := SessionDoc{
		LogPath:    path,
		ProjectRaw: projectRaw,
		FileExists: true,
	}

	var messages []MessageDoc
	var lastUsage struct{ input, output int }
	haveUsage := false
	turnIndex := 0
	lastEmittingType := ""

	r := jsonl.NewReader(f, maxLogLineBytes)
	for {
		line, err := r.Next()
		if err != nil {
			break // io.EOF or stream error: stop, keep what we parsed so far
		}
		if line.TooLong || len(bytes.TrimSpace(line.Data)) == 0 {
			continue
		}

		var raw rawLine
		if err := json.Unmarshal(line.Data, &raw); err != nil {
			continue
		}

		if sess.SessionID == "" && raw.SessionID != "" {
			sess.SessionID = raw.SessionID
		}
		if sess.GitBranch == "" && raw.GitBranch != "" {
			sess.GitBranch = raw.GitBranch
		}
		cwdSeen := raw.Cwd != ""
		if cwdSeen && sess.ProjectPath == "" {
			sess.ProjectPath = raw.Cwd
		}
		if raw.Message.Model != "" {
			sess.Model = raw.Message.Model
		}

		ts, hasTS := parseTimestamp(raw.Timestamp)
		if hasTS {
			if !sess.HasCreatedAt || ts.Before(sess.CreatedAt) {
				sess.CreatedAt = ts
				sess.HasCreatedAt = true
			}
			if !sess.HasModifiedAt || ts.After(sess.ModifiedAt) {
				sess.ModifiedAt = ts
				sess.HasModifiedAt = true
			}
		}

		if raw.Message.Usage.InputTokens != 0 || raw.Message.Usage.OutputTokens != 0 {
			lastUsage.input = raw.Message.Usage.InputTokens
			lastUsage.output += raw.Message.Usage.OutputTokens
			haveUsage = true
		}

		if !emittableTypes[raw.Type] {
			continue
		}
		lastEmittingType = raw.Type

		blocks := normalizeContent(raw.Message.Content)
		blockIdx := 0
		for _, b := range blocks {
			text, contentType, ok := renderBlock(b)
			if !ok {
				continue
			}
			if contentType == "tool_use" || contentType == "tool_result" {
				sess.HasToolUse = true
			}

			msg := MessageDoc{
				SessionID:      sess.SessionID,
				MsgProject:     sess.ProjectRaw,
				Role:           raw.Message.Role,
				Content:        text,
				ContentPreview: truncateUTF8(text, previewBytes),
				ContentType:    contentType,
				TurnIndex:      turnIndex,
				BlockIndex:     blockIdx,
			}
			if hasTS {
				msg.Timestamp = ts
				msg.HasTimestamp = true
			}
			messages = append(messages, msg)
			blockIdx++

			if sess.FirstPrompt == "" && (side == nil || side.FirstPrompt == "") && raw.Type == "user" &&
				contentType == "text" && isAuthoredUserText(text) {
				sess.FirstPrompt = truncateUTF8(text, previewBytes)
			}
		}
		turnIndex++
	}

	sess.MessageCount = len(messages)
	sess.TurnDepth = turnIndex
	if haveUsage {
		sess.InputTokens = lastUsage.input
		sess.OutputTokens = lastUsage.output
		sess.TotalTokens = sess.InputTokens + sess.OutputTokens
	}
	switch lastEmittingType {
	case "user":
		sess.Status = "thinking"
	case "assistant":
		sess.Status = "idle"
	default:
		sess.Status = "idle"
	}

	applySideband(&sess, side)
	if sess.ProjectPath == "" {
		sess.ProjectPath = pathutil.Decode(projectRaw)
	}

	return &ParseResult{Session: sess, Messages: messages}, nil
}

func applySideband(sess *SessionDoc, side *SidebandEntry) {
	if side == nil {
		return
	}
	if side.Summary != "" {
		sess.Summary = side.Summary
	}
	if side.FirstPrompt != "" {
		sess.FirstPrompt = truncateUTF8(side.FirstPrompt, previewBytes)
	}
	if side.ProjectPath != "" {
		sess.ProjectPath = side.ProjectPath
	}
	if side.GitBranch != "" && sess.GitBranch == "" {
		sess.GitBranch = side.GitBranch
	}
	if !side.Created.IsZero() && (!sess.HasCreatedAt || side.Created.Before(sess.CreatedAt)) {
		sess.CreatedAt = side.Created
		sess.HasCreatedAt = true
	}
	if !side.Modified.IsZero() && (!sess.HasModifiedAt || side.Modified.After(sess.ModifiedAt)) {
		sess.ModifiedAt = side.Modified
		sess.HasModifiedAt = true
	}
}

// normalizeContent turns the polymorphic "content" field (bare string, or a
// list of typed blocks) into a uniform list of blocks.
func normalizeContent(raw json.RawMessage) []block {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return []block{{Type: "text", Text: s}}
	}

	var blocks []block
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return blocks
	}
	return nil
}

// renderBlock renders one content block to its stored text form and
// reports the contentType to persist alongside it. ok is false when the
// block carries no textual payload worth indexing.
func renderBlock(b block) (text, contentType string, ok bool) {
	switch b.Type {
	case "text":
		return b.Text, "text", strings.TrimSpace(b.Text) != ""
	case "thinking":
		return b.Thinking, "thinking", strings.TrimSpace(b.Thinking) != ""
	case "tool_use":
		input := compactJSON(b.Input)
		rendered := strings.TrimSpace(fmt.Sprintf("tool_use: %s %s", b.Name, input))
		return rendered, "tool_use", b.Name != ""
	case "tool_result":
		flat := flattenToolResult(b.Content)
		return flat, "tool_result", strings.TrimSpace(flat) != ""
	default:
		return "", "", false
	}
}

// flattenToolResult handles the two shapes Anthropic tool results arrive
// in: a bare string, or a nested content array of its own (itself usually
// text blocks) which gets newline-joined.
func flattenToolResult(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var nested []block
	if err := json.Unmarshal(raw, &nested); err == nil {
		var parts []string
		for _, n := range nested {
			if n.Type == "text" && strings.TrimSpace(n.Text) != "" {
				parts = append(parts, n.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	return strings.Trim(string(raw), `"`)
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// isAuthoredUserText reports whether text is something a human actually
// typed, as opposed to a caveat banner or slash-command echo the CLI
// injects into the transcript under the "user" role.
func isAuthoredUserText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	for _, prefix := range userTextExclusionPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return false
		}
	}
	return true
}

// truncateUTF8 cuts s to at most n bytes without splitting a multi-byte
// rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to the start of the rune that straddles the cut, if any.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// parseTimestamp accepts RFC3339 (with or without a timezone offset), a
// bare string or number of epoch seconds, and epoch milliseconds (any
// integer value above the epoch-seconds/epoch-milliseconds threshold).
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, ok := parseTimestampString(s); ok {
			return t, true
		}
		return time.Time{}, false
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return epochToTime(n), true
	}

	return time.Time{}, false
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochToTime(n), true
	}
	return time.Time{}, false
}

// epochMillisThreshold: any epoch value larger than this is treated as
// milliseconds rather than seconds (seconds would otherwise land in the
// year 33658).
const epochMillisThreshold = 1_000_000_000_000

func epochToTime(n int64) time.Time {
	if n > epochMillisThreshold {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
