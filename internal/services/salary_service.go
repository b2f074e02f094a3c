package services

import (
	"context"
	"fmt"
	"log/slog"

	"cartera/internal/core"
	"cartera/internal/events"
	"cartera/internal/salary"
)

// SalaryService applies salary mutations and announces them once persisted.
type SalaryService struct {
	calc      *salary.Calculator
	publisher events.Publisher
}

func NewSalaryService(calc *salary.Calculator, publisher events.Publisher) *SalaryService {
	return &SalaryService{calc: calc, publisher: publisher}
}

func (s *SalaryService) Calculator() *salary.Calculator {
	return s.calc
}

func (s *SalaryService) SetMonthlySalary(ctx context.Context, v float64) error {
	if err := s.calc.SetMonthlySalary(ctx, v); err != nil {
		return fmt.Errorf("set monthly salary: %w", err)
	}
	s.publish(ctx, "set_salary", "")
	return nil
}

// AddExtra appends a deduction and applies any initial field values. Fields
// with empty values are left at their defaults.
func (s *SalaryService) AddExtra(ctx context.Context, name, amount string) (core.ExtraDeduction, error) {
	extra, err := s.calc.AddExtra(ctx)
	if err != nil {
		return extra, fmt.Errorf("add extra: %w", err)
	}
	if name != "" {
		if _, err := s.calc.UpdateExtra(ctx, extra.ID, salary.FieldName, name); err != nil {
			return extra, fmt.Errorf("add extra: %w", err)
		}
		extra.Name = name
	}
	if amount != "" {
		if _, err := s.calc.UpdateExtra(ctx, extra.ID, salary.FieldAmount, amount); err != nil {
			return extra, fmt.Errorf("add extra: %w", err)
		}
		extra.Amount = core.ParseLooseAmount(amount)
	}
	s.publish(ctx, "add_extra", extra.ID)
	return extra, nil
}

func (s *SalaryService) UpdateExtra(ctx context.Context, id, field, value string) (bool, error) {
	changed, err := s.calc.UpdateExtra(ctx, id, field, value)
	if err != nil {
		return false, fmt.Errorf("update extra: %w", err)
	}
	if changed {
		s.publish(ctx, "update_extra", id)
	}
	return changed, nil
}

func (s *SalaryService) RemoveExtra(ctx context.Context, id string) (bool, error) {
	changed, err := s.calc.RemoveExtra(ctx, id)
	if err != nil {
		return false, fmt.Errorf("remove extra: %w", err)
	}
	if changed {
		s.publish(ctx, "remove_extra", id)
	}
	return changed, nil
}

func (s *SalaryService) publish(ctx context.Context, op, id string) {
	if s.publisher == nil {
		return
	}
	msg := events.NewStateChanged(s.calc.Key(), events.ComponentSalary, op, s.calc.Revision())
	msg.ID = id
	if err := s.publisher.PublishStateChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish state changed message",
			"operation", op,
			"error", err)
	}
}
