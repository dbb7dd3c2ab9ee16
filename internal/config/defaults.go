package config

// DefaultIndexSubdir is the directory name the search index lives under
// within the resolved data directory; postProcess joins it onto the data
// directory when no index directory is configured.
const DefaultIndexSubdir = "bleve"
