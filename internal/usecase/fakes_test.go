package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/alertavivo/relay/internal/domain"
)

type fakeAlertRepo struct {
	mu        sync.Mutex
	alerts    []domain.Alert
	createErr error
	listErr   error
	countErr  error
}

func (r *fakeAlertRepo) Create(_ context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	alert.ID = uint(len(r.alerts) + 1)
	if alert.Status == "" {
		alert.Status = domain.StatusActive
	}
	alert.CreatedAt = time.Now().UTC()
	r.alerts = append(r.alerts, *alert)
	return nil
}

func (r *fakeAlertRepo) GetByID(_ context.Context, id uint) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, alert := range r.alerts {
		if alert.ID == id {
			found := alert
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAlertRepo) ListRecent(_ context.Context, limit int) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Alert, 0, limit)
	for i := len(r.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.alerts[i])
	}
	return out, nil
}

func (r *fakeAlertRepo) CountBySenderSince(_ context.Context, sender string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	var count int64
	for _, alert := range r.alerts {
		if alert.Sender == sender && !alert.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeAlertRepo) All() []domain.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Alert(nil), r.alerts...)
}

type sentMessage struct {
	To   string
	Body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) SendText(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{To: to, Body: body})
	return s.err
}

func (s *fakeSender) Sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type fakeEscalator struct {
	mu    sync.Mutex
	texts []string
	err   error

	// block makes Escalate wait for the context like a hung chat API.
	block      bool
	onEscalate func()
}

func (e *fakeEscalator) Escalate(ctx context.Context, text string) error {
	if e.onEscalate != nil {
		e.onEscalate()
	}
	e.mu.Lock()
	e.texts = append(e.texts, text)
	block, err := e.block, e.err
	e.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

type fakePublisher struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (p *fakePublisher) PublishAlert(alert domain.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
}
