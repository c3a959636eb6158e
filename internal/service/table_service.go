package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/timeslot"
)

// TableInput creates a table.
type TableInput struct {
	TableNumber string
	Capacity    int
	Description *string
	ImageURL    *string
}

// TableUpdate changes a table.  Nil fields keep their current value.
type TableUpdate struct {
	TableNumber *string
	Capacity    *int
	Description *string
	ImageURL    *string
	IsActive    *bool
}

type TableService struct {
	tables TableStore
	slots  *timeslot.Catalog
	loc    *time.Location
	log    *logrus.Logger
	now    func() time.Time
}

func NewTableService(tables TableStore, slots *timeslot.Catalog, loc *time.Location, log *logrus.Logger) *TableService {
	if loc == nil {
		loc = time.UTC
	}
	return &TableService{tables: tables, slots: slots, loc: loc, log: log, now: time.Now}
}

// List returns all tables ordered by table number.
func (s *TableService) List(ctx context.Context) ([]model.Table, error) {
	out, err := s.tables.List(ctx)
	if err != nil {
		return nil, apperr.InternalErr(err)
	}
	return out, nil
}

func (s *TableService) Get(ctx context.Context, id uint64) (*model.Table, error) {
	t, err := s.tables.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return nil, apperr.New(apperr.NotFound, "Table not found")
		}
		return nil, apperr.InternalErr(err)
	}
	return t, nil
}

// Slots lists the bookable time slot labels.
func (s *TableService) Slots() []string { return s.slots.Labels() }

// AvailableFor returns tables with no confirmed booking at date and slot.
// Inputs are validated the same way booking creation validates them.
func (s *TableService) AvailableFor(ctx context.Context, date, slot string) ([]model.Table, error) {
	if strings.TrimSpace(date) == "" {
		return nil, apperr.New(apperr.InvalidInput, "Date parameter is required")
	}
	if strings.TrimSpace(slot) == "" {
		return nil, apperr.New(apperr.InvalidInput, "TimeSlot parameter is required")
	}
	sl, d, err := validateWhen(s.slots, s.loc, s.now(), slot, date)
	if err != nil {
		return nil, err
	}
	out, err := s.tables.ListAvailable(ctx, d.Format(model.DateLayout), sl.Label)
	if err != nil {
		return nil, apperr.InternalErr(err)
	}
	return out, nil
}

func (s *TableService) Create(ctx context.Context, in TableInput) (*model.Table, error) {
	t := &model.Table{
		TableNumber: strings.TrimSpace(in.TableNumber),
		Capacity:    in.Capacity,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		IsActive:    true,
	}
	if err := validateTable(t); err != nil {
		return nil, err
	}
	if err := s.ensureNumberFree(ctx, t.TableNumber, 0); err != nil {
		return nil, err
	}
	if err := s.tables.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrTableNumberExists) {
			return nil, errNumberTaken(t.TableNumber)
		}
		return nil, apperr.InternalErr(err)
	}
	s.log.WithFields(logrus.Fields{"table_id": t.ID, "table_number": t.TableNumber}).Info("table created")
	return t, nil
}

// Update applies the non-nil fields of in to table id.
func (s *TableService) Update(ctx context.Context, id uint64, in TableUpdate) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if in.TableNumber != nil {
		t.TableNumber = strings.TrimSpace(*in.TableNumber)
	}
	if in.Capacity != nil {
		t.Capacity = *in.Capacity
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.ImageURL != nil {
		t.ImageURL = in.ImageURL
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	if err := validateTable(t); err != nil {
		return err
	}
	if in.TableNumber != nil {
		if err := s.ensureNumberFree(ctx, t.TableNumber, id); err != nil {
			return err
		}
	}
	if err := s.tables.Update(ctx, t); err != nil {
		switch {
		case errors.Is(err, repository.ErrTableNumberExists):
			return errNumberTaken(t.TableNumber)
		case errors.Is(err, repository.ErrTableNotFound):
			return apperr.New(apperr.NotFound, "Table not found")
		}
		return apperr.InternalErr(err)
	}
	return nil
}

// Delete removes a table that has no confirmed bookings.
func (s *TableService) Delete(ctx context.Context, id uint64) error {
	if err := s.tables.SoftDelete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTableNotFound):
			return apperr.New(apperr.NotFound, "Table not found")
		case errors.Is(err, repository.ErrTableInUse):
			return apperr.New(apperr.Conflict, "Cannot delete table with active bookings")
		}
		return apperr.InternalErr(err)
	}
	s.log.WithField("table_id", id).Info("table deleted")
	return nil
}

func (s *TableService) ensureNumberFree(ctx context.Context, number string, excludeID uint64) error {
	taken, err := s.tables.ExistsByNumber(ctx, number, excludeID)
	if err != nil {
		return apperr.InternalErr(err)
	}
	if taken {
		return errNumberTaken(number)
	}
	return nil
}

func errNumberTaken(number string) error {
	return apperr.New(apperr.Conflict, fmt.Sprintf("Table number '%s' already exists", number))
}

func validateTable(t *model.Table) error {
	switch {
	case t.TableNumber == "":
		return apperr.New(apperr.InvalidInput, "Table number is required")
	case len([]rune(t.TableNumber)) > model.TableNumberMaxLen:
		return apperr.New(apperr.InvalidInput, fmt.Sprintf("Table number must be at most %d characters", model.TableNumberMaxLen))
	case t.Capacity < model.MinCapacity || t.Capacity > model.MaxCapacity:
		return apperr.New(apperr.InvalidInput, fmt.Sprintf("Capacity must be between %d and %d", model.MinCapacity, model.MaxCapacity))
	case t.Description != nil && len([]rune(*t.Description)) > model.DescriptionMaxLen:
		return apperr.New(apperr.InvalidInput, fmt.Sprintf("Description must be at most %d characters", model.DescriptionMaxLen))
	case t.ImageURL != nil && len(*t.ImageURL) > model.ImageURLMaxLen:
		return apperr.New(apperr.InvalidInput, fmt.Sprintf("Image URL must be at most %d characters", model.ImageURLMaxLen))
	}
	return nil
}
