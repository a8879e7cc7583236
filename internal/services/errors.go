package services

import "fmt"

// DownloadError reports that the source document could not be retrieved.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download document %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ConversionError reports that a PDF could not be parsed or rendered.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s to page images: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ExtractionError reports a failed model call or a response that does not
// match the page schema. It is scoped to a single page.
type ExtractionError struct {
	PageNumber int
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed on page %d: %v", e.PageNumber, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ParseError reports model output that is not JSON at all.
type ParseError struct {
	PageNumber int
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model output for page %d: %v", e.PageNumber, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AggregationError wraps any other failure raised while assembling the response.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("failed to aggregate extraction results: %v", e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
