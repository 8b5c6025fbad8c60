package models

import "errors"

// Domain errors
var (
	// ErrMalformedPDF marks a structural failure opening a document; the
	// whole ingestion run aborts with no partial output.
	ErrMalformedPDF = errors.New("malformed pdf")

	ErrFundNotFound         = errors.New("fund not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrConversationNotFound = errors.New("conversation not found")
)
