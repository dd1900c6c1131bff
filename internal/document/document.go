package document

// Document is a single uploaded file after text extraction. It is immutable
// once extracted and lives until the index is reset.
type Document struct {
	ID     string // assigned at upload
	Name   string // source filename
	Format string // lowercased extension without the dot, e.g. "pdf"
	Text   string // extracted plain text
	Pages  int    // page/sheet/row-group count where the format has one, else 0
}

// Chunk is a bounded substring of a document's text, the unit of embedding
// and retrieval.
type Chunk struct {
	DocumentID   string
	DocumentName string
	Index        int // zero-based position within the document, stable ordering
	Text         string
}
