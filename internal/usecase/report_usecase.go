package usecase

import (
	"context"
	"errors"

	"github.com/alertavivo/relay/internal/domain"
)

// ReportLimit is the number of alerts shown by the admin report.
const ReportLimit = 100

var ErrAlertNotFound = errors.New("alert not found")

type ReportUsecase struct {
	alerts domain.AlertRepository
}

func NewReportUsecase(alerts domain.AlertRepository) *ReportUsecase {
	return &ReportUsecase{alerts: alerts}
}

func (u *ReportUsecase) Recent(ctx context.Context) ([]domain.Alert, error) {
	return u.alerts.ListRecent(ctx, ReportLimit)
}

func (u *ReportUsecase) Get(ctx context.Context, id uint) (*domain.Alert, error) {
	alert, err := u.alerts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}
