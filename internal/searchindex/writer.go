package searchindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/convoidx/convoidx/internal/corpus"
	"github.com/convoidx/convoidx/internal/domain"
	dtypes "github.com/convoidx/convoidx/internal/domain/types"
)

// deleteBatchPageSize bounds how many hit ids are fetched per page while
// staging a delete-by-term; a session's message count is normally small,
// but pagination keeps this correct regardless.
const deleteBatchPageSize = 1000

// stageDeleteBySessionID finds every doc (session and message) carrying
// sessionId and stages a Delete for each into batch. It does not execute
// the batch; the caller adds the replacement documents first so the
// delete and the adds land in one atomic Batch call (I1, §4.6 step 3-5).
func stageDeleteBySessionID(idx bleve.Index, sessionID string, batch *bleve.Batch) error {
	term := bleve.NewTermQuery(sessionID)
	term.SetField(FieldSessionID)

	from := 0
	for {
		req := bleve.NewSearchRequestOptions(term, deleteBatchPageSize, from, false)
		req.Fields = nil
		result, err := idx.Search(req)
		if err != nil {
			return err
		}
		for _, hit := range result.Hits {
			batch.Delete(hit.ID)
		}
		if len(result.Hits) < deleteBatchPageSize {
			return nil
		}
		from += deleteBatchPageSize
	}
}

// reingestSession implements §4.5's create/modify handling: delete-by-term
// on sessionId, parse the file, add the new docs, commit as one batch.
func (m *Manager) reingestSession(path, projectRaw string, side *corpus.SidebandEntry) (dtypes.SessionListItem, error) {
	result, err := corpus.ParseFile(path, projectRaw, side)
	if err != nil {
		return dtypes.SessionListItem{}, domain.New(domain.KindIO, "searchindex.reingestSession", err)
	}
	if result.Session.SessionID == "" {
		return dtypes.SessionListItem{}, domain.New(domain.KindParse, "searchindex.reingestSession", domain.ErrInvalidFilter)
	}

	_, sd, messages := buildDocuments(result)

	err = m.withWriter(func(idx bleve.Index) error {
		batch := idx.NewBatch()
		if err := stageDeleteBySessionID(idx, result.Session.SessionID, batch); err != nil {
			return err
		}
		batch.Index(sessionDocID(result.Session.SessionID), sd)
		for _, msg := range messages {
			batch.Index(msg.ID, msg.Doc)
		}
		return idx.Batch(batch)
	})
	if err != nil {
		return dtypes.SessionListItem{}, domain.New(domain.KindInternal, "searchindex.reingestSession", err)
	}

	return sessionListItemFromDoc(sd), nil
}

// archiveSession implements §4.6: copy the existing session doc's fields,
// flip archived/fileExists, drop all message docs, commit atomically.
// found is false if no session doc exists for sessionID (archive of an
// already-gone session is a silent no-op, matching P4's idempotence).
func (m *Manager) archiveSession(sessionID string) (item dtypes.SessionListItem, found bool, err error) {
	existing, ok, err := m.fetchSessionDoc(sessionID)
	if err != nil {
		return dtypes.SessionListItem{}, false, err
	}
	if !ok {
		return dtypes.SessionListItem{}, false, nil
	}

	existing.Archived = true
	existing.FileExists = false

	err = m.withWriter(func(idx bleve.Index) error {
		batch := idx.NewBatch()
		if err := stageDeleteBySessionID(idx, sessionID, batch); err != nil {
			return err
		}
		batch.Index(sessionDocID(sessionID), existing)
		return idx.Batch(batch)
	})
	if err != nil {
		return dtypes.SessionListItem{}, true, domain.New(domain.KindInternal, "searchindex.archiveSession", err)
	}
	return sessionListItemFromDoc(existing), true, nil
}

// deleteAll removes every document in the index, used by reindexAll
// before invoking the bulk indexer.
func (m *Manager) deleteAll() error {
	return m.withWriter(func(idx bleve.Index) error {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), deleteBatchPageSize, 0, false)
		req.Fields = nil
		for {
			result, err := idx.Search(req)
			if err != nil {
				return err
			}
			if len(result.Hits) == 0 {
				return nil
			}
			batch := idx.NewBatch()
			for _, hit := range result.Hits {
				batch.Delete(hit.ID)
			}
			if err := idx.Batch(batch); err != nil {
				return err
			}
			if len(result.Hits) < deleteBatchPageSize {
				return nil
			}
		}
	})
}

// fetchSessionDoc retrieves the current session doc's full stored field
// set for sessionID.
func (m *Manager) fetchSessionDoc(sessionID string) (sessionDocument, bool, error) {
	must := bleve.NewConjunctionQuery(
		termFieldQuery(FieldDocType, string(DocTypeSession)),
		termFieldQuery(FieldSessionID, sessionID),
	)
	req := bleve.NewSearchRequestOptions(must, 1, 0, false)
	req.Fields = []string{"*"}

	result, err := m.idx.Search(req)
	if err != nil {
		return sessionDocument{}, false, domain.New(domain.KindInternal, "searchindex.fetchSessionDoc", err)
	}
	if len(result.Hits) == 0 {
		return sessionDocument{}, false, nil
	}

	f := fieldsOf(result.Hits[0])
	return sessionDocFromFields(f), true, nil
}

func termFieldQuery(field, value string) query.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

// sessionDocFromFields reconstructs a sessionDocument from a retrieved
// hit's stored fields, used by archive (which must preserve every field
// except archived/fileExists) and by the query layer's detail mapping.
func sessionDocFromFields(f fields) sessionDocument {
	sd := sessionDocument{DocType: string(DocTypeSession)}
	sd.SessionID, _ = f.str(FieldSessionID)
	sd.ProjectPath, _ = f.str(FieldProjectPath)
	sd.ProjectRaw, _ = f.str(FieldProjectRaw)
	sd.Summary, _ = f.str(FieldSummary)
	sd.FirstPrompt, _ = f.str(FieldFirstPrompt)
	sd.GitBranch, _ = f.str(FieldGitBranch)
	sd.Model, _ = f.str(FieldModel)
	sd.Status, _ = f.str(FieldStatus)
	sd.LogPath, _ = f.str(FieldLogPath)
	if v, ok := f.u64(FieldMessageCount); ok {
		sd.MessageCount = int(v)
	}
	if v, ok := f.u64(FieldInputTokens); ok {
		sd.InputTokens = int(v)
	}
	if v, ok := f.u64(FieldOutputTokens); ok {
		sd.OutputTokens = int(v)
	}
	if v, ok := f.u64(FieldTotalTokens); ok {
		sd.TotalTokens = int(v)
	}
	if v, ok := f.u64(FieldTurnDepth); ok {
		sd.TurnDepth = int(v)
	}
	if t, ok := f.date(FieldCreatedAt); ok {
		sd.CreatedAt = &t
	}
	if t, ok := f.date(FieldModifiedAt); ok {
		sd.ModifiedAt = &t
	}
	sd.Archived, _ = f.boolean(FieldArchived)
	sd.FileExists, _ = f.boolean(FieldFileExists)
	sd.HasToolUse, _ = f.boolean(FieldHasToolUse)
	return sd
}

func sessionListItemFromDoc(sd sessionDocument) dtypes.SessionListItem {
	item := dtypes.SessionListItem{
		SessionID:    sd.SessionID,
		ProjectPath:  sd.ProjectPath,
		Summary:      sd.Summary,
		FirstPrompt:  sd.FirstPrompt,
		GitBranch:    sd.GitBranch,
		Model:        sd.Model,
		Status:       sd.Status,
		MessageCount: sd.MessageCount,
		TotalTokens:  sd.TotalTokens,
		HasToolUse:   sd.HasToolUse,
		FileExists:   sd.FileExists,
		Archived:     sd.Archived,
	}
	if sd.CreatedAt != nil {
		t := *sd.CreatedAt
		item.CreatedAt = &t
	}
	if sd.ModifiedAt != nil {
		t := *sd.ModifiedAt
		item.ModifiedAt = &t
	}
	return item
}
