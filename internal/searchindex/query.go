package searchindex

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/convoidx/convoidx/internal/corpus"
	"github.com/convoidx/convoidx/internal/domain"
	dtypes "github.com/convoidx/convoidx/internal/domain/types"
)

const (
	listSessionsCollectorSize = 10000
	defaultSearchLimit        = 50
	searchOverfetchFactor     = 3
	maxSnippetsPerSession     = 3
)

// ListSessions implements §4.7.1.
func (m *Manager) ListSessions(filter dtypes.SessionFilter) ([]dtypes.SessionListItem, error) {
	must := []query.Query{termFieldQuery(FieldDocType, string(DocTypeSession))}
	if filter.Project != "" {
		must = append(must, termFieldQuery(FieldProjectRaw, filter.Project))
	}
	if filter.ProjectPrefix != "" {
		pq := bleve.NewPrefixQuery(filter.ProjectPrefix)
		pq.SetField(FieldProjectRaw)
		must = append(must, pq)
	}
	if filter.GitBranch != "" {
		must = append(must, termFieldQuery(FieldGitBranch, filter.GitBranch))
	}
	if filter.Model != "" {
		must = append(must, termFieldQuery(FieldModel, filter.Model))
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(must...), listSessionsCollectorSize, 0, false)
	req.Fields = []string{"*"}
	req.SortBy([]string{"-" + FieldModifiedAt})

	result, err := m.idx.Search(req)
	if err != nil {
		return nil, domain.New(domain.KindInternal, "searchindex.ListSessions", err)
	}

	items := make([]dtypes.SessionListItem, 0, len(result.Hits))
	for _, hit := range result.Hits {
		f := fieldsOf(hit)
		archived, _ := f.boolean(FieldArchived)
		if archived && !filter.IncludeArchived {
			continue
		}
		items = append(items, sessionListItemFromDoc(sessionDocFromFields(f)))
	}
	return items, nil
}

// Search implements §4.7.2's three phases: message matching, session
// enrichment via one OR-query, and result emission.
func (m *Manager) Search(queryText string, filter dtypes.SearchFilter) ([]dtypes.SearchResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	must := []query.Query{
		termFieldQuery(FieldDocType, string(DocTypeMessage)),
		contentMatchQuery(queryText),
	}
	if filter.Project != "" {
		must = append(must, termFieldQuery(FieldMsgProject, filter.Project))
	}
	if filter.Role != "" {
		must = append(must, termFieldQuery(FieldRole, filter.Role))
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)
	if !filter.IncludeToolOutput {
		bq.AddMustNot(termFieldQuery(FieldContentType, "tool_result"))
	}

	req := bleve.NewSearchRequestOptions(bq, limit*searchOverfetchFactor, 0, false)
	req.Fields = []string{"*"}
	result, err := m.idx.Search(req)
	if err != nil {
		return nil, domain.New(domain.KindInternal, "searchindex.Search", err)
	}

	dateFrom, dateTo, err := parseDateBounds(filter.DateFrom, filter.DateTo)
	if err != nil {
		return nil, domain.New(domain.KindParse, "searchindex.Search", err)
	}

	type accum struct {
		sessionID string
		best      float64
		snippets  []dtypes.MatchSnippet
	}
	order := make([]string, 0)
	bySession := make(map[string]*accum)

	for _, hit := range result.Hits {
		f := fieldsOf(hit)
		ts, hasTS := f.date(FieldTimestamp)
		if hasTS && !withinDateBounds(ts, dateFrom, dateTo) {
			continue
		}

		sessionID, _ := f.str(FieldSessionID)
		if sessionID == "" {
			continue
		}
		a, ok := bySession[sessionID]
		if !ok {
			a = &accum{sessionID: sessionID}
			bySession[sessionID] = a
			order = append(order, sessionID)
		}
		if hit.Score > a.best {
			a.best = hit.Score
		}
		if len(a.snippets) < maxSnippetsPerSession {
			snippet := dtypes.MatchSnippet{}
			snippet.Role, _ = f.str(FieldRole)
			snippet.ContentType, _ = f.str(FieldContentType)
			snippet.Snippet, _ = f.str(FieldContentPreview)
			if v, ok := f.u64(FieldTurnIndex); ok {
				snippet.TurnIndex = int(v)
			}
			if hasTS {
				t := ts
				snippet.Timestamp = &t
			}
			a.snippets = append(a.snippets, snippet)
		}
	}

	// Phase 2: one enrichment OR-query across every matched session.
	sessionDocs, err := m.fetchSessionDocsByID(order)
	if err != nil {
		return nil, err
	}

	// Phase 3: emit sorted, truncated results.
	sort.Slice(order, func(i, j int) bool {
		return bySession[order[i]].best > bySession[order[j]].best
	})
	if len(order) > limit {
		order = order[:limit]
	}

	results := make([]dtypes.SearchResult, 0, len(order))
	for _, sessionID := range order {
		a := bySession[sessionID]
		res := dtypes.SearchResult{
			SessionID: sessionID,
			Score:     a.best,
			Snippets:  a.snippets,
		}
		if sd, ok := sessionDocs[sessionID]; ok {
			res.ProjectPath = sd.ProjectPath
			res.Summary = sd.Summary
			res.Model = sd.Model
			res.FileExists = sd.FileExists
			if sd.ModifiedAt != nil {
				t := *sd.ModifiedAt
				res.ModifiedAt = &t
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// fetchSessionDocsByID is the Phase 2 enrichment query: a single
// should-OR across every session id, not one lookup per hit.
func (m *Manager) fetchSessionDocsByID(sessionIDs []string) (map[string]sessionDocument, error) {
	out := make(map[string]sessionDocument, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(termFieldQuery(FieldDocType, string(DocTypeSession)))
	should := make([]query.Query, len(sessionIDs))
	for i, id := range sessionIDs {
		should[i] = termFieldQuery(FieldSessionID, id)
	}
	bq.AddShould(should...)
	bq.SetMinShould(1)

	req := bleve.NewSearchRequestOptions(bq, len(sessionIDs), 0, false)
	req.Fields = []string{"*"}
	result, err := m.idx.Search(req)
	if err != nil {
		return nil, domain.New(domain.KindInternal, "searchindex.fetchSessionDocsByID", err)
	}
	for _, hit := range result.Hits {
		f := fieldsOf(hit)
		sd := sessionDocFromFields(f)
		out[sd.SessionID] = sd
	}
	return out, nil
}

// SessionDetail implements §4.7.3.
func (m *Manager) SessionDetail(sessionID string) (dtypes.SessionDetail, error) {
	sd, ok, err := m.fetchSessionDoc(sessionID)
	if err != nil {
		return dtypes.SessionDetail{}, err
	}
	if !ok {
		return dtypes.SessionDetail{}, domain.New(domain.KindNotFound, "searchindex.SessionDetail", domain.ErrSessionNotFound)
	}

	return dtypes.SessionDetail{
		SessionListItem: sessionListItemFromDoc(sd),
		LogPath:         sd.LogPath,
		InputTokens:     sd.InputTokens,
		OutputTokens:    sd.OutputTokens,
		TurnDepth:       sd.TurnDepth,
	}, nil
}

// Conversation implements §4.7.4.
func (m *Manager) Conversation(sessionID string) ([]dtypes.ConversationMessage, error) {
	sd, ok, err := m.fetchSessionDoc(sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.New(domain.KindNotFound, "searchindex.Conversation", domain.ErrSessionNotFound)
	}

	if sd.FileExists {
		if _, statErr := os.Stat(sd.LogPath); statErr == nil {
			return m.conversationFromDisk(sd)
		}
	}
	return m.conversationFromIndex(sessionID)
}

func (m *Manager) conversationFromDisk(sd sessionDocument) ([]dtypes.ConversationMessage, error) {
	projectRaw := filepath.Base(filepath.Dir(sd.LogPath))
	result, err := corpus.ParseFile(sd.LogPath, projectRaw, nil)
	if err != nil {
		return nil, domain.New(domain.KindIO, "searchindex.Conversation", err)
	}

	out := make([]dtypes.ConversationMessage, 0, len(result.Messages))
	for _, msg := range result.Messages {
		cm := dtypes.ConversationMessage{
			Role:        msg.Role,
			ContentType: msg.ContentType,
			Text:        msg.Content,
			Truncated:   false,
		}
		if msg.HasTimestamp {
			t := msg.Timestamp
			cm.Timestamp = &t
		}
		out = append(out, cm)
	}
	return out, nil
}

func (m *Manager) conversationFromIndex(sessionID string) ([]dtypes.ConversationMessage, error) {
	must := bleve.NewConjunctionQuery(
		termFieldQuery(FieldDocType, string(DocTypeMessage)),
		termFieldQuery(FieldSessionID, sessionID),
	)
	req := bleve.NewSearchRequestOptions(must, listSessionsCollectorSize, 0, false)
	req.Fields = []string{"*"}

	result, err := m.idx.Search(req)
	if err != nil {
		return nil, domain.New(domain.KindInternal, "searchindex.Conversation", err)
	}

	type row struct {
		turnIndex, blockIndex int
		msg                   dtypes.ConversationMessage
	}
	rows := make([]row, 0, len(result.Hits))
	for _, hit := range result.Hits {
		f := fieldsOf(hit)
		cm := dtypes.ConversationMessage{Truncated: true}
		cm.Role, _ = f.str(FieldRole)
		cm.ContentType, _ = f.str(FieldContentType)
		cm.Text, _ = f.str(FieldContentPreview)
		if t, ok := f.date(FieldTimestamp); ok {
			cm.Timestamp = &t
		}
		var r row
		r.msg = cm
		if v, ok := f.u64(FieldTurnIndex); ok {
			r.turnIndex = int(v)
		}
		if v, ok := f.u64(FieldBlockIndex); ok {
			r.blockIndex = int(v)
		}
		rows = append(rows, r)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].turnIndex != rows[j].turnIndex {
			return rows[i].turnIndex < rows[j].turnIndex
		}
		return rows[i].blockIndex < rows[j].blockIndex
	})

	out := make([]dtypes.ConversationMessage, len(rows))
	for i, r := range rows {
		out[i] = r.msg
	}
	return out, nil
}

// IndexStats implements §4.7.5.
func (m *Manager) IndexStats() (dtypes.IndexStats, error) {
	stats := dtypes.IndexStats{}

	sessionCount, archivedCount, err := m.countSessions()
	if err != nil {
		return dtypes.IndexStats{}, err
	}
	stats.TotalSessions = sessionCount
	stats.ArchivedSessions = archivedCount
	stats.ActiveSessions = sessionCount - archivedCount

	msgCount, err := m.countDocs(termFieldQuery(FieldDocType, string(DocTypeMessage)))
	if err != nil {
		return dtypes.IndexStats{}, err
	}
	stats.TotalMessages = msgCount

	stats.SegmentCount = countSegmentFiles(m.indexDir)
	stats.IndexSizeBytes = dirSize(m.indexDir)
	return stats, nil
}

func (m *Manager) countSessions() (total, archived int, err error) {
	req := bleve.NewSearchRequestOptions(termFieldQuery(FieldDocType, string(DocTypeSession)), listSessionsCollectorSize, 0, false)
	req.Fields = []string{FieldArchived}
	result, err := m.idx.Search(req)
	if err != nil {
		return 0, 0, domain.New(domain.KindInternal, "searchindex.IndexStats", err)
	}
	for _, hit := range result.Hits {
		f := fieldsOf(hit)
		if a, _ := f.boolean(FieldArchived); a {
			archived++
		}
	}
	return len(result.Hits), archived, nil
}

func (m *Manager) countDocs(q query.Query) (int, error) {
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	result, err := m.idx.Search(req)
	if err != nil {
		return 0, domain.New(domain.KindInternal, "searchindex.countDocs", err)
	}
	return int(result.Total), nil
}

// countSegmentFiles approximates segment count by counting the scorch
// engine's on-disk segment files (".zap"). Bleve's public Index interface
// has no stable segment-count accessor; this reads the one observable
// signal that exists independent of engine internals.
func countSegmentFiles(indexDir string) int {
	count := 0
	_ = filepath.Walk(indexDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".zap" {
			count++
		}
		return nil
	})
	return count
}

func dirSize(root string) int64 {
	var total int64
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

// ReindexAll implements §4.7.6.
func (m *Manager) ReindexAll() (int, error) {
	m.Pause()
	defer m.Resume()

	if err := m.deleteAll(); err != nil {
		return 0, domain.New(domain.KindInternal, "searchindex.ReindexAll", err)
	}
	return m.BulkIndex()
}

func contentMatchQuery(queryText string) query.Query {
	q := bleve.NewMatchQuery(queryText)
	q.SetField(FieldContent)
	return q
}

func parseDateBounds(from, to string) (*time.Time, *time.Time, error) {
	f, err := parseDateBound(from, false)
	if err != nil {
		return nil, nil, err
	}
	t, err := parseDateBound(to, true)
	if err != nil {
		return nil, nil, err
	}
	return f, t, nil
}

func parseDateBound(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = t.UTC()
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	return nil, domain.ErrInvalidFilter
}

func withinDateBounds(ts time.Time, from, to *time.Time) bool {
	if from != nil && ts.Before(*from) {
		return false
	}
	if to != nil && ts.After(*to) {
		return false
	}
	return true
}
