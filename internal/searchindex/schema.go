// Package searchindex owns the Bleve-backed inverted index: the
// dual-document schema, bulk and incremental ingestion, the lifecycle
// manager, and the query layer served to callers.
package searchindex

import (
	"github.com/blevesearch/bleve/v2/mapping"
	index "github.com/blevesearch/bleve_index_api"
)

// SchemaVersion gates index reuse across process restarts. Any change to
// a field's type, analyzer, store/index/docvalues flags, or to the set of
// fields itself, requires bumping this constant; a mismatch against the
// sidecar causes the whole index directory to be deleted and rebuilt.
const SchemaVersion = 1

// DocType discriminates the two document kinds sharing the index.
type DocType string

const (
	DocTypeSession DocType = "session"
	DocTypeMessage DocType = "message"
)

// Field names, exported once here so every other package references the
// same cached handle instead of re-typing string literals.
const (
	FieldSessionID = "sessionId"
	FieldDocType   = "docType"

	FieldProjectPath = "projectPath"
	FieldProjectRaw  = "projectRaw"
	FieldSummary     = "summary"
	FieldFirstPrompt = "firstPrompt"
	FieldGitBranch   = "gitBranch"
	FieldModel       = "model"
	FieldStatus      = "status"
	FieldLogPath     = "logPath"

	FieldMessageCount = "messageCount"
	FieldInputTokens  = "inputTokens"
	FieldOutputTokens = "outputTokens"
	FieldTotalTokens  = "totalTokens"
	FieldTurnDepth    = "turnDepth"

	FieldCreatedAt  = "createdAt"
	FieldModifiedAt = "modifiedAt"

	FieldArchived   = "archived"
	FieldFileExists = "fileExists"
	FieldHasToolUse = "hasToolUse"

	FieldRole           = "role"
	FieldContent        = "content"
	FieldContentPreview = "contentPreview"
	FieldContentType    = "contentType"
	FieldTimestamp      = "timestamp"
	FieldTurnIndex      = "turnIndex"
	FieldBlockIndex     = "blockIndex"
	FieldMsgProject     = "msgProject"
)

// exactField returns a field mapping for an untokenized, exact-match
// value: no analysis, stored as a single term, fast-column accessible.
func exactField(store bool) *mapping.FieldMapping {
	fm := mapping.NewTextFieldMapping()
	fm.Analyzer = "keyword"
	fm.Store = store
	fm.Index = true
	fm.IncludeInAll = false
	fm.DocValues = true
	return fm
}

// tokenizedField returns a field mapping for full-text search: English
// ("en") analysis, term positions retained for phrase queries.
func tokenizedField(store bool) *mapping.FieldMapping {
	fm := mapping.NewTextFieldMapping()
	fm.Analyzer = "en"
	fm.Store = store
	fm.Index = true
	fm.IncludeInAll = false
	fm.IncludeTermVectors = true
	fm.DocValues = false
	return fm
}

// storedOnlyField is returned-but-not-searchable: no analysis, no index
// postings, just a stored value.
func storedOnlyField() *mapping.FieldMapping {
	fm := mapping.NewTextFieldMapping()
	fm.Store = true
	fm.Index = false
	fm.IncludeInAll = false
	fm.DocValues = false
	return fm
}

func fastNumericField(store bool) *mapping.FieldMapping {
	fm := mapping.NewNumericFieldMapping()
	fm.Store = store
	fm.Index = true
	fm.IncludeInAll = false
	fm.DocValues = true
	return fm
}

func fastDateField(store bool) *mapping.FieldMapping {
	fm := mapping.NewDateTimeFieldMapping()
	fm.Store = store
	fm.Index = true
	fm.IncludeInAll = false
	fm.DocValues = true
	return fm
}

// fastOnlyBooleanField is a fast column read during post-collection
// filtering (I7, §4.7.1) rather than queried via a boolean must clause.
func fastOnlyBooleanField(store bool) *mapping.FieldMapping {
	fm := mapping.NewBooleanFieldMapping()
	fm.Store = store
	fm.Index = false
	fm.IncludeInAll = false
	fm.DocValues = true
	return fm
}

// BuildMapping constructs the fixed, 28-field index mapping. Field order
// within each document mapping matches the order fields are added here so
// builds are deterministic across runs.
func BuildMapping() *mapping.IndexMappingImpl {
	im := mapping.NewIndexMapping()
	im.DefaultAnalyzer = "en"
	im.TypeField = FieldDocType
	im.DefaultMapping.Enabled = false
	// §4.1/§4.7.2 require BM25 ranking; bleve defaults to TF-IDF otherwise.
	im.ScoringModel = index.BM25Scoring

	session := mapping.NewDocumentMapping()
	session.AddFieldMappingsAt(FieldSessionID, exactField(true))
	session.AddFieldMappingsAt(FieldDocType, exactField(true))
	session.AddFieldMappingsAt(FieldProjectPath, tokenizedField(true))
	session.AddFieldMappingsAt(FieldProjectRaw, exactField(true))
	session.AddFieldMappingsAt(FieldSummary, tokenizedField(true))
	session.AddFieldMappingsAt(FieldFirstPrompt, tokenizedField(true))
	session.AddFieldMappingsAt(FieldGitBranch, exactField(true))
	session.AddFieldMappingsAt(FieldModel, exactField(true))
	session.AddFieldMappingsAt(FieldStatus, exactField(true))
	session.AddFieldMappingsAt(FieldLogPath, storedOnlyField())
	session.AddFieldMappingsAt(FieldMessageCount, fastNumericField(true))
	session.AddFieldMappingsAt(FieldInputTokens, fastNumericField(true))
	session.AddFieldMappingsAt(FieldOutputTokens, fastNumericField(true))
	session.AddFieldMappingsAt(FieldTotalTokens, fastNumericField(true))
	session.AddFieldMappingsAt(FieldTurnDepth, fastNumericField(true))
	session.AddFieldMappingsAt(FieldCreatedAt, fastDateField(true))
	session.AddFieldMappingsAt(FieldModifiedAt, fastDateField(true))
	session.AddFieldMappingsAt(FieldArchived, fastOnlyBooleanField(true))
	session.AddFieldMappingsAt(FieldFileExists, fastOnlyBooleanField(true))
	session.AddFieldMappingsAt(FieldHasToolUse, fastOnlyBooleanField(true))
	im.AddDocumentMapping(string(DocTypeSession), session)

	message := mapping.NewDocumentMapping()
	message.AddFieldMappingsAt(FieldSessionID, exactField(true))
	message.AddFieldMappingsAt(FieldDocType, exactField(true))
	message.AddFieldMappingsAt(FieldRole, exactField(true))
	message.AddFieldMappingsAt(FieldContent, tokenizedField(false))
	message.AddFieldMappingsAt(FieldContentPreview, storedOnlyField())
	message.AddFieldMappingsAt(FieldContentType, exactField(true))
	message.AddFieldMappingsAt(FieldTimestamp, fastDateField(true))
	message.AddFieldMappingsAt(FieldTurnIndex, fastNumericField(true))
	message.AddFieldMappingsAt(FieldBlockIndex, fastNumericField(true))
	message.AddFieldMappingsAt(FieldMsgProject, exactField(false))
	im.AddDocumentMapping(string(DocTypeMessage), message)

	return im
}
