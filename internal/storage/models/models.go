package models

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Keyword struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Document struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	Link       string  `json:"link"`
	CategoryID int64   `json:"category_id"`
	KeywordIDs []int64 `json:"keyword_ids,omitempty"`
}

// DuplicateLink groups documents sharing one link. IDs are ascending.
type DuplicateLink struct {
	Link  string  `json:"link"`
	Count int     `json:"count"`
	IDs   []int64 `json:"ids"`
}
