package models

// RawRow is one spreadsheet row keyed by column header. Values are whatever
// the decoder produced: strings, float64 numbers, json.Number, time.Time or nil.
type RawRow map[string]any

// ImportRowError reports why a single row was not committed.
// Row is the zero-based index of the row in the submitted batch.
type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult is the outcome of one import batch
type ImportResult struct {
	BatchID   string             `json:"batchId"`
	Committed []*ApplicationForm `json:"-"`
	Errors    []ImportRowError   `json:"errors"`
}

// ImportResponse is the body of the import endpoints
type ImportResponse struct {
	Success   bool             `json:"success"`
	Count     int              `json:"count"`
	Errors    []ImportRowError `json:"errors"`
	BatchID   string           `json:"batchId,omitempty"`
	ArchiveID string           `json:"archiveKey,omitempty"`
}

// ImportRequest is the object form of the POST /forms/import body. A bare
// JSON array of rows is accepted as well.
type ImportRequest struct {
	Rows []RawRow `json:"rows"`
}
