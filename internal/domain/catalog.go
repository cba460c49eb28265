package domain

import "time"

// Entry is one exam answer key offered by the provider.
type Entry struct {
	ID       string `json:"id"`
	ExamName string `json:"exam_name"`
	ExamType string `json:"exam_type"`
	Period   string `json:"period"`
}

// Criteria narrows the catalog. An empty field matches every entry.
type Criteria struct {
	ExamName string
	ExamType string
	Period   string
}

func (c Criteria) IsEmpty() bool {
	return c.ExamName == "" && c.ExamType == "" && c.Period == ""
}

// CatalogSnapshot is the persisted form of the last synced catalog.
type CatalogSnapshot struct {
	Entries  []Entry   `json:"entries"`
	SyncedAt time.Time `json:"synced_at"`
}
