package domain

const PageSize = 10

// Session is a user's current filtered result and page position.
type Session struct {
	UserID    string
	Result    []Entry
	PageIndex int
}

// Page is one window of a session's result.
type Page struct {
	Items      []Entry
	Index      int
	TotalPages int
	Total      int
	HasPrev    bool
	HasNext    bool
}

type Direction int

const (
	DirectionPrev Direction = iota
	DirectionNext
)

type ActionKind int

const (
	ActionPrev ActionKind = iota
	ActionNext
	ActionSelect
)

// Action is a decoded button press. EntryID is set only for ActionSelect.
type Action struct {
	Kind    ActionKind
	EntryID string
}
