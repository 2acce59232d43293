package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/apperr"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/realtime"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
)

// Archive filters accepted by ListArchive.
const (
	ArchiveClaimed  = "claimed"
	ArchiveReunited = "reunited"
	ArchiveExpired  = "expired"
)

type ItemService struct {
	store    repository.Store
	notifier realtime.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewItemService(store repository.Store, notifier realtime.Notifier, log zerolog.Logger) *ItemService {
	return &ItemService{store: store, notifier: notifier, log: log, now: time.Now}
}

func (s *ItemService) WithClock(now func() time.Time) *ItemService {
	s.now = now
	return s
}

type CreateItemInput struct {
	Name        string
	Description *string
	Location    string
	Contact     string
	// Date is date_found for found items and date_lost for lost ones.
	Date string
}

func (in CreateItemInput) seed(dateField string) (models.NewItem, error) {
	item := models.NewItem{
		Name:        strings.TrimSpace(in.Name),
		Description: trimOptional(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Contact:     strings.TrimSpace(in.Contact),
		Date:        strings.TrimSpace(in.Date),
	}
	if item.Name == "" || item.Location == "" || item.Contact == "" || item.Date == "" {
		return models.NewItem{}, apperr.Validation("missing_fields", "name, location, contact and "+dateField+" are required")
	}
	if !validDate(item.Date) {
		return models.NewItem{}, apperr.Validation("invalid_date", dateField+" must be formatted YYYY-MM-DD")
	}
	return item, nil
}

func (s *ItemService) CreateFoundItem(ctx context.Context, input CreateItemInput) (models.FoundItem, error) {
	seed, err := input.seed("date_found")
	if err != nil {
		return models.FoundItem{}, err
	}
	item, err := s.store.Items().CreateFound(ctx, seed, s.now())
	if err != nil {
		return models.FoundItem{}, apperr.Internal(err)
	}

	s.log.Info().Int64("item_id", item.ID).Msg("found item created")
	s.notifier.BroadcastAll(realtime.Event{
		Type:    realtime.EventNewFoundItem,
		Payload: map[string]any{"item": item, "itemType": models.ItemKindFound},
	})
	return item, nil
}

// CreateLostItem records a lost item directly, without an owner.
func (s *ItemService) CreateLostItem(ctx context.Context, input CreateItemInput) (models.LostItem, error) {
	seed, err := input.seed("date_lost")
	if err != nil {
		return models.LostItem{}, err
	}
	item, err := s.store.Items().CreateLost(ctx, seed, s.now())
	if err != nil {
		return models.LostItem{}, apperr.Internal(err)
	}

	s.log.Info().Int64("item_id", item.ID).Msg("lost item created")
	s.notifier.BroadcastAll(realtime.Event{
		Type:    realtime.EventNewLostItem,
		Payload: map[string]any{"item": item, "itemType": models.ItemKindLost},
	})
	return item, nil
}

func (s *ItemService) ListFoundLive(ctx context.Context) ([]models.FoundItem, error) {
	items, err := s.store.Items().ListFound(ctx, models.LiveStatus(models.ItemKindFound))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *ItemService) ListLostLive(ctx context.Context) ([]models.LostItem, error) {
	items, err := s.store.Items().ListLost(ctx, models.LiveStatus(models.ItemKindLost))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// ListArchive merges archived rows of both tables, most recently updated
// first. filter is one of the Archive* constants or empty for everything.
func (s *ItemService) ListArchive(ctx context.Context, filter string) ([]models.ItemView, error) {
	var foundStatuses, lostStatuses []models.ItemStatus
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "":
		foundStatuses = models.ArchivedStatuses(models.ItemKindFound)
		lostStatuses = models.ArchivedStatuses(models.ItemKindLost)
	case ArchiveClaimed:
		foundStatuses = []models.ItemStatus{models.StatusClaimed}
	case ArchiveReunited:
		lostStatuses = []models.ItemStatus{models.StatusFound}
	case ArchiveExpired:
		foundStatuses = []models.ItemStatus{models.StatusExpired}
		lostStatuses = []models.ItemStatus{models.StatusExpired}
	default:
		return nil, apperr.Validation("invalid_archive_type", "type must be claimed, reunited or expired")
	}

	views := make([]models.ItemView, 0)
	if len(foundStatuses) > 0 {
		found, err := s.store.Items().ListFound(ctx, foundStatuses...)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, item := range found {
			views = append(views, item.View())
		}
	}
	if len(lostStatuses) > 0 {
		lost, err := s.store.Items().ListLost(ctx, lostStatuses...)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, item := range lost {
			views = append(views, item.View())
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].UpdatedAt.After(views[j].UpdatedAt)
	})
	return views, nil
}

func (s *ItemService) MarkClaimed(ctx context.Context, id int64) (models.FoundItem, error) {
	item, err := s.transition(ctx, models.ItemRef{Kind: models.ItemKindFound, ID: id}, models.StatusClaimed)
	if err != nil {
		return models.FoundItem{}, err
	}
	return item.(models.FoundItem), nil
}

func (s *ItemService) MarkFound(ctx context.Context, id int64) (models.LostItem, error) {
	item, err := s.transition(ctx, models.ItemRef{Kind: models.ItemKindLost, ID: id}, models.StatusFound)
	if err != nil {
		return models.LostItem{}, err
	}
	return item.(models.LostItem), nil
}

// TransitionResult is the updated row of a polymorphic operation.
type TransitionResult struct {
	Item     any
	ItemType models.ItemKind
}

// MarkExpired expires the item with id. Without a hint the found table is
// searched before the lost one.
func (s *ItemService) MarkExpired(ctx context.Context, id int64, hint *models.ItemKind) (TransitionResult, error) {
	ref, _, err := s.resolve(ctx, id, hint)
	if err != nil {
		return TransitionResult{}, err
	}
	item, err := s.transition(ctx, ref, models.StatusExpired)
	if err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Item: item, ItemType: ref.Kind}, nil
}

// Delete removes an archived item. Live items must be claimed, found or
// expired first, so nothing searchable disappears without a recorded outcome.
func (s *ItemService) Delete(ctx context.Context, id int64, hint *models.ItemKind) (models.ItemRef, error) {
	ref, status, err := s.resolve(ctx, id, hint)
	if err != nil {
		return models.ItemRef{}, err
	}
	if !models.IsArchived(ref.Kind, status) {
		return models.ItemRef{}, errNotArchived
	}

	err = s.store.Items().Delete(ctx, ref, models.ArchivedStatuses(ref.Kind)...)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.ItemRef{}, itemNotFound(ref.Kind)
	case errors.Is(err, repository.ErrStatusConflict):
		return models.ItemRef{}, errNotArchived
	case err != nil:
		return models.ItemRef{}, apperr.Internal(err)
	}

	s.log.Info().Stringer("item", ref).Msg("item deleted")

	event := realtime.EventFoundItemDeleted
	if ref.Kind == models.ItemKindLost {
		event = realtime.EventLostItemDeleted
	}
	s.notifier.BroadcastAll(realtime.Event{
		Type:    event,
		Payload: map[string]any{"id": ref.ID, "itemType": ref.Kind},
	})
	return ref, nil
}

var errNotArchived = apperr.Conflict("item_not_archived", "item must be archived before it can be deleted")

func itemNotFound(kind models.ItemKind) error {
	return apperr.NotFound("item_not_found", string(kind)+" item not found")
}

// resolve finds which table holds id and the row's current status.
func (s *ItemService) resolve(ctx context.Context, id int64, hint *models.ItemKind) (models.ItemRef, models.ItemStatus, error) {
	kinds := []models.ItemKind{models.ItemKindFound, models.ItemKindLost}
	if hint != nil {
		kinds = []models.ItemKind{*hint}
	}
	for _, kind := range kinds {
		ref := models.ItemRef{Kind: kind, ID: id}
		_, status, err := s.load(ctx, ref)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return models.ItemRef{}, "", apperr.Internal(err)
		}
		return ref, status, nil
	}
	return models.ItemRef{}, "", apperr.NotFound("item_not_found", "item not found")
}

func (s *ItemService) load(ctx context.Context, ref models.ItemRef) (any, models.ItemStatus, error) {
	if ref.Kind == models.ItemKindLost {
		item, err := s.store.Items().GetLost(ctx, ref.ID)
		return item, item.Status, err
	}
	item, err := s.store.Items().GetFound(ctx, ref.ID)
	return item, item.Status, err
}

// transition moves ref to status to with a conditional write and returns
// the updated row. A lost race is reported against the winner's status.
func (s *ItemService) transition(ctx context.Context, ref models.ItemRef, to models.ItemStatus) (any, error) {
	_, from, err := s.load(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, itemNotFound(ref.Kind)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := models.ValidateTransition(ref.Kind, from, to); err != nil {
		return nil, apperr.Conflict("item_status_conflict", err.Error())
	}

	err = s.store.Items().Transition(ctx, ref, from, to, s.now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, itemNotFound(ref.Kind)
	case errors.Is(err, repository.ErrStatusConflict):
		_, current, loadErr := s.load(ctx, ref)
		if loadErr != nil {
			return nil, apperr.Internal(loadErr)
		}
		msg := string(ref.Kind) + " item status changed concurrently"
		if verr := models.ValidateTransition(ref.Kind, current, to); verr != nil {
			msg = verr.Error()
		}
		return nil, apperr.Conflict("item_status_conflict", msg)
	case err != nil:
		return nil, apperr.Internal(err)
	}

	item, _, err := s.load(ctx, ref)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.log.Info().Stringer("item", ref).Str("from", string(from)).Str("to", string(to)).Msg("item status changed")

	event := realtime.EventFoundItemStatusUpdated
	if ref.Kind == models.ItemKindLost {
		event = realtime.EventLostItemStatusUpdated
	}
	s.notifier.BroadcastAll(realtime.Event{
		Type:    event,
		Payload: map[string]any{"item": item, "itemType": ref.Kind},
	})
	return item, nil
}
