package searchindex

import (
	"testing"

	dtypes "github.com/convoidx/convoidx/internal/domain/types"
)

// TestBulkIndex_AuthenticationSearch is scenario S1: one log file with a
// user/assistant turn, bulk indexed, then found by a content search.
func TestBulkIndex_AuthenticationSearch(t *testing.T) {
	root := t.TempDir()
	sid := newSessionID(t)
	writeLog(t, root, "-p", sid, []string{
		`{"type":"user","message":{"role":"user","content":[{"type":"text","text":"How do I implement authentication?"}]},"timestamp":"2026-02-18T10:00:00Z","sessionId":"` + sid + `","cwd":"/p","gitBranch":"main"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"You can use JWT tokens for auth"}],"model":"M","usage":{"input_tokens":100,"output_tokens":50}},"timestamp":"2026-02-18T10:01:00Z","sessionId":"` + sid + `"}`,
	})

	m := newTestManager(t, root)
	sessionCount, err := m.BulkIndex()
	if err != nil {
		t.Fatalf("BulkIndex: %v", err)
	}
	if sessionCount != 1 {
		t.Fatalf("sessionCount = %d, want 1", sessionCount)
	}

	results, err := m.Search("authentication", dtypes.SearchFilter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].SessionID != sid {
		t.Errorf("SessionID = %q, want %q", results[0].SessionID, sid)
	}
	if len(results[0].Snippets) == 0 {
		t.Errorf("expected at least one snippet")
	}
	if results[0].Model != "M" {
		t.Errorf("Model = %q, want M", results[0].Model)
	}
	if !results[0].FileExists {
		t.Errorf("FileExists = false, want true")
	}
}

// TestBulkIndex_ToolOutputExcludedByDefault is scenario S2.
func TestBulkIndex_ToolOutputExcludedByDefault(t *testing.T) {
	root := t.TempDir()
	sid := newSessionID(t)
	writeLog(t, root, "-p", sid, []string{
		`{"type":"tool","message":{"role":"tool","content":[{"type":"tool_result","content":"tantivy notes"}]},"sessionId":"` + sid + `"}`,
	})

	m := newTestManager(t, root)
	if _, err := m.BulkIndex(); err != nil {
		t.Fatalf("BulkIndex: %v", err)
	}

	results, err := m.Search("tantivy", dtypes.SearchFilter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0 (tool output excluded by default)", len(results))
	}

	results, err = m.Search("tantivy", dtypes.SearchFilter{IncludeToolOutput: true})
	if err != nil {
		t.Fatalf("Search with includeToolOutput: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1 with includeToolOutput=true", len(results))
	}
}

// TestBulkIndex_TokenAggregation is scenario S3: I5's last-input/sum-output
// rule.
func TestBulkIndex_TokenAggregation(t *testing.T) {
	root := t.TempDir()
	sid := newSessionID(t)
	writeLog(t, root, "-p", sid, []string{
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"one"}],"usage":{"input_tokens":100,"output_tokens":50}},"sessionId":"` + sid + `"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"two"}],"usage":{"input_tokens":200,"output_tokens":75}},"sessionId":"` + sid + `"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"three"}],"usage":{"input_tokens":250,"output_tokens":30}},"sessionId":"` + sid + `"}`,
	})

	m := newTestManager(t, root)
	if _, err := m.BulkIndex(); err != nil {
		t.Fatalf("BulkIndex: %v", err)
	}

	detail, err := m.SessionDetail(sid)
	if err != nil {
		t.Fatalf("SessionDetail: %v", err)
	}
	if detail.InputTokens != 250 {
		t.Errorf("InputTokens = %d, want 250", detail.InputTokens)
	}
	if detail.OutputTokens != 155 {
		t.Errorf("OutputTokens = %d, want 155", detail.OutputTokens)
	}
	if detail.TotalTokens != 405 {
		t.Errorf("TotalTokens = %d, want 405", detail.TotalTokens)
	}
}

// TestBulkIndex_SkipsNonUUIDFileWithoutAbortingPass ensures a log file whose
// name is not a session UUID is skipped without stopping the rest of the
// corpus from being indexed (§4.4).
func TestBulkIndex_SkipsNonUUIDFileWithoutAbortingPass(t *testing.T) {
	root := t.TempDir()
	good := newSessionID(t)
	writeLog(t, root, "-p", good, []string{
		`{"type":"user","message":{"role":"user","content":"hello"},"sessionId":"` + good + `"}`,
	})
	// A non-UUID file name is skipped entirely by the worker loop.
	writeLog(t, root, "-p", "not-a-uuid", []string{`{"type":"user"}`})

	m := newTestManager(t, root)
	sessionCount, err := m.BulkIndex()
	if err != nil {
		t.Fatalf("BulkIndex: %v", err)
	}
	if sessionCount != 1 {
		t.Fatalf("sessionCount = %d, want 1", sessionCount)
	}
}
