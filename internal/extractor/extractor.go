package extractor

import "fund-report-rag/internal/models"

// Page is one page of a source document.
type Page interface {
	// Text returns the page's plain text, empty when the page has none.
	Text() (string, error)
	// Tables returns the raw cell grids detected on the page. Grids may be
	// ragged; absence of tables is not an error.
	Tables() ([]models.RawTable, error)
}

// Document is an open source file. Pages are visited sequentially and the
// caller must Close when done.
type Document interface {
	PageCount() int
	Page(i int) (Page, error)
	Close() error
}

// Extractor opens source documents. A structural failure on the whole file
// is reported as models.ErrMalformedPDF (wrapped).
type Extractor interface {
	Open(path string) (Document, error)
}
