package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ItemKind string

const (
	ItemKindFound ItemKind = "found"
	ItemKindLost  ItemKind = "lost"
)

// ParseItemKind accepts a kind in any letter case.
func ParseItemKind(s string) (ItemKind, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, string(ItemKindFound)):
		return ItemKindFound, true
	case strings.EqualFold(s, string(ItemKindLost)):
		return ItemKindLost, true
	}
	return "", false
}

// Label is the capitalised form the admin panel shows and compares against.
func (k ItemKind) Label() string {
	switch k {
	case ItemKindFound:
		return "Found"
	case ItemKindLost:
		return "Lost"
	}
	return string(k)
}

// ItemRef names one row in either item table. Resolve it once and pass it
// around instead of probing both tables again.
type ItemRef struct {
	Kind ItemKind
	ID   int64
}

func (r ItemRef) String() string {
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}

// ItemStatus is the shared status vocabulary of both item tables.
type ItemStatus string

const (
	StatusAvailable ItemStatus = "available"
	StatusClaimed   ItemStatus = "claimed"
	StatusMissing   ItemStatus = "missing"
	StatusFound     ItemStatus = "found"
	StatusExpired   ItemStatus = "expired"
)

// transitions lists, per kind, every status change the state machine allows.
// Claimed, found and expired are terminal.
var transitions = map[ItemKind]map[ItemStatus][]ItemStatus{
	ItemKindFound: {
		StatusAvailable: {StatusClaimed, StatusExpired},
	},
	ItemKindLost: {
		StatusMissing: {StatusFound, StatusExpired},
	},
}

// LiveStatus is the searchable status new items of the kind start in.
func LiveStatus(kind ItemKind) ItemStatus {
	if kind == ItemKindLost {
		return StatusMissing
	}
	return StatusAvailable
}

// ArchivedStatuses are the terminal statuses of the kind.
func ArchivedStatuses(kind ItemKind) []ItemStatus {
	if kind == ItemKindLost {
		return []ItemStatus{StatusFound, StatusExpired}
	}
	return []ItemStatus{StatusClaimed, StatusExpired}
}

// CanTransition reports whether kind items may move from -> to.
func CanTransition(kind ItemKind, from, to ItemStatus) bool {
	for _, allowed := range transitions[kind][from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition explains why a transition is refused, or returns nil.
func ValidateTransition(kind ItemKind, from, to ItemStatus) error {
	if CanTransition(kind, from, to) {
		return nil
	}
	if from == to {
		return fmt.Errorf("%s item is already %s", kind, from)
	}
	return fmt.Errorf("%s item cannot move from %s to %s", kind, from, to)
}

func IsArchived(kind ItemKind, status ItemStatus) bool {
	for _, s := range ArchivedStatuses(kind) {
		if s == status {
			return true
		}
	}
	return false
}

type FoundItem struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	Location       string     `json:"location"`
	Contact        string     `json:"contact"`
	DateFound      string     `json:"date_found"`
	Status         ItemStatus `json:"status"`
	SourceReportID *int64     `json:"report_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (f FoundItem) Ref() ItemRef { return ItemRef{Kind: ItemKindFound, ID: f.ID} }

type LostItem struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	Location       string     `json:"location"`
	Contact        string     `json:"contact"`
	Owner          *string    `json:"owner"`
	DateLost       string     `json:"date_lost"`
	Status         ItemStatus `json:"status"`
	SourceReportID *int64     `json:"report_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (l LostItem) Ref() ItemRef { return ItemRef{Kind: ItemKindLost, ID: l.ID} }

// NewItem seeds a row in either table. Date is date_found or date_lost.
type NewItem struct {
	Name           string
	Description    *string
	Location       string
	Contact        string
	Owner          *string
	Date           string
	SourceReportID *int64
}

// ItemView is the kind-tagged projection used by mixed listings such as the
// archive, where found and lost rows share one response array. ItemType
// carries the Label of Kind.
type ItemView struct {
	ID          int64      `json:"id"`
	Kind        ItemKind   `json:"-"`
	ItemType    string     `json:"itemType"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Location    string     `json:"location"`
	Contact     string     `json:"contact"`
	Status      ItemStatus `json:"status"`
	Owner       *string    `json:"owner,omitempty"`
	DateFound   string     `json:"date_found,omitempty"`
	DateLost    string     `json:"date_lost,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (f FoundItem) View() ItemView {
	return ItemView{
		ID:          f.ID,
		Kind:        ItemKindFound,
		ItemType:    ItemKindFound.Label(),
		Name:        f.Name,
		Description: f.Description,
		Location:    f.Location,
		Contact:     f.Contact,
		Status:      f.Status,
		DateFound:   f.DateFound,
		UpdatedAt:   f.UpdatedAt,
	}
}

func (l LostItem) View() ItemView {
	return ItemView{
		ID:          l.ID,
		Kind:        ItemKindLost,
		ItemType:    ItemKindLost.Label(),
		Name:        l.Name,
		Description: l.Description,
		Location:    l.Location,
		Contact:     l.Contact,
		Status:      l.Status,
		Owner:       l.Owner,
		DateLost:    l.DateLost,
		UpdatedAt:   l.UpdatedAt,
	}
}
