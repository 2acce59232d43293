package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/apperr"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/realtime"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
)

type ReportService struct {
	store    repository.Store
	notifier realtime.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewReportService(store repository.Store, notifier realtime.Notifier, log zerolog.Logger) *ReportService {
	return &ReportService{store: store, notifier: notifier, log: log, now: time.Now}
}

func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

type SubmitReportInput struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Location     string  `json:"location"`
	Contact      string  `json:"contact"`
	DateReported string  `json:"date_reported"`
	Type         string  `json:"type"`
}

func (s *ReportService) SubmitReport(ctx context.Context, submitter models.Identity, input SubmitReportInput) (models.Report, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Location = strings.TrimSpace(input.Location)
	input.Contact = strings.TrimSpace(input.Contact)
	input.DateReported = strings.TrimSpace(input.DateReported)

	if input.Name == "" || input.Location == "" || input.Contact == "" || input.DateReported == "" || input.Type == "" {
		return models.Report{}, apperr.Validation("missing_fields", "name, location, contact, date_reported and type are required")
	}
	if !validDate(input.DateReported) {
		return models.Report{}, apperr.Validation("invalid_date", "date_reported must be formatted YYYY-MM-DD")
	}
	typ := models.ReportType(strings.ToLower(strings.TrimSpace(input.Type)))
	if !typ.Valid() {
		return models.Report{}, apperr.Validation("invalid_report_type", "type must be lost or found")
	}

	report, err := s.store.Reports().Create(ctx, models.NewReport{
		Name:           input.Name,
		Description:    trimOptional(input.Description),
		Location:       input.Location,
		Contact:        input.Contact,
		DateReported:   input.DateReported,
		Type:           typ,
		SubmitterEmail: submitter.Email,
		SubmitterID:    submitter.UserID,
	}, s.now())
	if err != nil {
		return models.Report{}, apperr.Internal(err)
	}

	s.log.Info().
		Int64("report_id", report.ID).
		Str("type", string(report.Type)).
		Str("submitter", report.SubmitterEmail).
		Msg("report submitted")

	s.notifier.BroadcastToAdmins(realtime.Event{Type: realtime.EventNewPendingReport, Payload: report})
	return report, nil
}

func (s *ReportService) ListMyReports(ctx context.Context, submitter models.Identity) ([]models.Report, error) {
	reports, err := s.store.Reports().ListBySubmitter(ctx, submitter.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return reports, nil
}

// ListReports returns every report, or only those in status when it is not empty.
func (s *ReportService) ListReports(ctx context.Context, status string) ([]models.Report, error) {
	st := models.ReportStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, apperr.Validation("invalid_status", "status must be pending, approved or rejected")
	}
	reports, err := s.store.Reports().List(ctx, st)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return reports, nil
}

// ApproveResult carries the resolved report and the item it produced.
// Item is a models.FoundItem or models.LostItem.
type ApproveResult struct {
	Report   models.Report
	Item     any
	ItemType models.ItemKind
}

func (s *ReportService) Approve(ctx context.Context, reportID int64) (ApproveResult, error) {
	var result ApproveResult

	err := s.store.InTx(ctx, func(tx repository.Repos) error {
		now := s.now()
		report, err := tx.Reports().Resolve(ctx, reportID, models.ReportStatusApproved, now)
		if err != nil {
			return resolveError(report, err)
		}

		seed := models.NewItem{
			Name:           report.Name,
			Description:    report.Description,
			Location:       report.Location,
			Contact:        report.Contact,
			Date:           report.DateReported,
			SourceReportID: &report.ID,
		}

		switch report.Type {
		case models.ReportTypeFound:
			item, err := tx.Items().CreateFound(ctx, seed, now)
			if err != nil {
				return err
			}
			result.Item, result.ItemType = item, models.ItemKindFound
		case models.ReportTypeLost:
			owner := report.SubmitterEmail
			seed.Owner = &owner
			item, err := tx.Items().CreateLost(ctx, seed, now)
			if err != nil {
				return err
			}
			result.Item, result.ItemType = item, models.ItemKindLost
		default:
			return apperr.Validation("invalid_report_type", fmt.Sprintf("report has unknown type %q", report.Type))
		}

		result.Report = report
		return nil
	})
	if err != nil {
		return ApproveResult{}, toAppError(err)
	}

	s.log.Info().
		Int64("report_id", reportID).
		Str("item_type", string(result.ItemType)).
		Msg("report approved")

	s.notifier.SendToUser(result.Report.SubmitterEmail, realtime.Event{
		Type: realtime.EventYourReportStatusUpdate,
		Payload: map[string]any{
			"reportId": result.Report.ID,
			"status":   result.Report.Status,
			"report":   result.Report,
			"item":     result.Item,
			"itemType": result.ItemType,
		},
	})
	s.notifier.BroadcastAll(realtime.Event{
		Type:    realtime.EventNewItemApproved,
		Payload: map[string]any{"item": result.Item, "itemType": result.ItemType},
	})
	s.notifier.BroadcastToAdmins(realtime.Event{
		Type:    realtime.EventReportApproved,
		Payload: map[string]any{"report": result.Report, "item": result.Item},
	})

	return result, nil
}

func (s *ReportService) Reject(ctx context.Context, reportID int64) (models.Report, error) {
	report, err := s.store.Reports().Resolve(ctx, reportID, models.ReportStatusRejected, s.now())
	if err != nil {
		return models.Report{}, toAppError(resolveError(report, err))
	}

	s.log.Info().Int64("report_id", reportID).Msg("report rejected")

	s.notifier.SendToUser(report.SubmitterEmail, realtime.Event{
		Type: realtime.EventYourReportStatusUpdate,
		Payload: map[string]any{
			"reportId": report.ID,
			"status":   report.Status,
			"report":   report,
		},
	})
	s.notifier.BroadcastToAdmins(realtime.Event{
		Type:    realtime.EventReportRejected,
		Payload: map[string]any{"report": report},
	})
	return report, nil
}

func resolveError(current models.Report, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("report_not_found", "report not found")
	case errors.Is(err, repository.ErrStatusConflict):
		return apperr.Conflict("report_already_processed", fmt.Sprintf("report was already %s", current.Status))
	}
	return err
}

// toAppError keeps *apperr.Error values and wraps everything else as Internal.
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	return apperr.From(err)
}
