package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// sidebandFileName is the sibling file a project directory may carry with
// precomputed per-session metadata (summary, first prompt, git branch).
const sidebandFileName = "sessions-index.json"

// rawSidebandEntry is the on-disk shape of one entry of sessions-index.json,
// which is either a map keyed by sessionId or a list of entries each
// carrying its own id.
type rawSidebandEntry struct {
	SessionID    string `json:"sessionId"`
	Summary      string `json:"summary"`
	FirstPrompt  string `json:"firstPrompt"`
	Created      string `json:"created"`
	Modified     string `json:"modified"`
	GitBranch    string `json:"gitBranch"`
	ProjectPath  string `json:"projectPath"`
	MessageCount int    `json:"messageCount"`
}

// LoadSideband reads <projectDir>/sessions-index.json, if present, and
// returns the per-session metadata it carries keyed by sessionId. A
// missing file is not an error: it returns an empty, non-nil Sideband.
func LoadSideband(projectDir string) (Sideband, error) {
	path := filepath.Join(projectDir, sidebandFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Sideband{}, nil
		}
		return nil, err
	}

	var byID map[string]rawSidebandEntry
	if err := json.Unmarshal(data, &byID); err == nil && len(byID) > 0 {
		out := make(Sideband, len(byID))
		for id, e := range byID {
			e.SessionID = id
			out[id] = toSidebandEntry(e)
		}
		return out, nil
	}

	var list []rawSidebandEntry
	if err := json.Unmarshal(data, &list); err == nil {
		out := make(Sideband, len(list))
		for _, e := range list {
			if e.SessionID == "" {
				continue
			}
			out[e.SessionID] = toSidebandEntry(e)
		}
		return out, nil
	}

	return Sideband{}, nil
}

func toSidebandEntry(e rawSidebandEntry) SidebandEntry {
	entry := SidebandEntry{
		Summary:      e.Summary,
		FirstPrompt:  e.FirstPrompt,
		GitBranch:    e.GitBranch,
		ProjectPath:  e.ProjectPath,
		MessageCount: e.MessageCount,
	}
	if t, ok := parseTimestampString(e.Created); ok {
		entry.Created = t
	}
	if t, ok := parseTimestampString(e.Modified); ok {
		entry.Modified = t
	}
	return entry
}
