package db

import (
	"context"
	"errors"
	"time"

	"github.com/alertavivo/relay/internal/domain"
	"gorm.io/gorm"
)

// MaxRecentAlerts caps ListRecent.
const MaxRecentAlerts = 100

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	model := mapAlertToModel(*alert)
	if model.Status == "" {
		model.Status = domain.StatusActive
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	alert.ID = model.ID
	alert.Status = model.Status
	alert.CreatedAt = model.CreatedAt
	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id uint) (*domain.Alert, error) {
	var model alertModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	alert := mapAlertToDomain(model)
	return &alert, nil
}

func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 || limit > MaxRecentAlerts {
		limit = MaxRecentAlerts
	}
	var models []alertModel
	if err := r.db.WithContext(ctx).
		Order("criado_em DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return mapAlertsToDomain(models), nil
}

func (r *AlertRepository) CountBySenderSince(ctx context.Context, sender string, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&alertModel{}).
		Where("telefone = ? AND criado_em >= ?", sender, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func mapAlertsToDomain(models []alertModel) []domain.Alert {
	alerts := make([]domain.Alert, 0, len(models))
	for _, model := range models {
		alerts = append(alerts, mapAlertToDomain(model))
	}
	return alerts
}

func mapAlertToDomain(model alertModel) domain.Alert {
	return domain.Alert{
		ID:        model.ID,
		Sender:    model.Sender,
		Message:   model.Message,
		Status:    model.Status,
		CreatedAt: model.CreatedAt,
	}
}

func mapAlertToModel(alert domain.Alert) alertModel {
	return alertModel{
		ID:        alert.ID,
		Sender:    alert.Sender,
		Message:   alert.Message,
		Status:    alert.Status,
		CreatedAt: alert.CreatedAt,
	}
}
