// Package services contains the server-side business logic: the todo
// resource operations, the aging callback and the user profile.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/cursor"
	"github.com/dmitrijs2005/gophtodo/internal/server/metrics"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/todos"
	"github.com/dmitrijs2005/gophtodo/internal/server/scheduler"
)

const (
	DefaultListLimit  = 20
	MaxListLimit      = 100
	DefaultAgingDelay = time.Minute
)

// ListPage is one page of a listing. NextCursor is nil when exhausted.
type ListPage struct {
	Items      []*models.Todo `json:"items"`
	NextCursor *string        `json:"nextCursor"`
}

// CreateInput is a validated create request.
type CreateInput struct {
	Title   string
	DueDate *models.Date
}

// TodoService implements the todo operations over a store and registers the
// aging task of each created todo.
type TodoService struct {
	repo       todos.Repository
	scheduler  scheduler.Scheduler
	logger     logging.Logger
	metrics    *metrics.Metrics
	agingDelay time.Duration
	now        func() time.Time
	newID      func() string
}

type TodoOption func(*TodoService)

func WithAgingDelay(d time.Duration) TodoOption {
	return func(s *TodoService) { s.agingDelay = d }
}

func WithClock(now func() time.Time) TodoOption {
	return func(s *TodoService) { s.now = now }
}

func WithIDGenerator(newID func() string) TodoOption {
	return func(s *TodoService) { s.newID = newID }
}

func WithMetrics(m *metrics.Metrics) TodoOption {
	return func(s *TodoService) { s.metrics = m }
}

func NewTodoService(repo todos.Repository, sched scheduler.Scheduler, logger logging.Logger, opts ...TodoOption) *TodoService {
	s := &TodoService{
		repo:       repo,
		scheduler:  sched,
		logger:     logger.With("module", "todos"),
		agingDelay: DefaultAgingDelay,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func (s *TodoService) List(ctx context.Context, limit int, rawCursor string) (*ListPage, error) {
	after, err := cursor.Decode(rawCursor)
	if err != nil {
		return nil, err
	}

	items, next, err := s.repo.List(ctx, clampLimit(limit), after)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Todo{}
	}

	page := &ListPage{Items: items}
	if next != nil {
		encoded, err := cursor.Encode(next)
		if err != nil {
			return nil, err
		}
		page.NextCursor = &encoded
	}
	return page, nil
}

func (s *TodoService) Get(ctx context.Context, id string) (*models.Todo, error) {
	return s.repo.Get(ctx, id)
}

// Create persists a new todo and then registers its aging task. The
// registration is advisory: its failure is logged and counted, never returned.
func (s *TodoService) Create(ctx context.Context, in CreateInput) (*models.Todo, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, common.NewValidationError("title is required")
	}

	now := s.now()
	todo := models.NewTodo(s.newID(), in.Title, in.DueDate, now)
	if err := s.repo.Put(ctx, todo); err != nil {
		return nil, err
	}

	if err := s.scheduleAging(ctx, todo.ID, now.Add(s.agingDelay)); err != nil {
		s.metrics.SchedulingFailed()
		s.logger.Error(ctx, "aging task not registered", "id", todo.ID, "error", err)
	}
	return todo, nil
}

func (s *TodoService) scheduleAging(ctx context.Context, id string, fireAt time.Time) error {
	taskID := common.AgingTaskPrefix + id

	payload, err := json.Marshal(models.AgingTask{TaskID: id})
	if err != nil {
		return &common.SchedulingError{TaskID: taskID, Err: err}
	}
	if err := s.scheduler.ScheduleOnce(ctx, taskID, fireAt, payload); err != nil {
		return &common.SchedulingError{TaskID: taskID, Err: err}
	}
	return nil
}

// Update applies a client patch and stamps updatedAt in the same store call.
func (s *TodoService) Update(ctx context.Context, id string, patch models.Patch) (*models.Todo, error) {
	if patch.Len() == 0 {
		return nil, common.NewValidationError("no updatable fields")
	}
	return s.repo.UpdateFields(ctx, id, patch, s.now())
}

// Delete is not idempotent: deleting a missing id returns common.ErrorNotFound.
func (s *TodoService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// MarkAged is the aging callback. Every failure, including a todo deleted
// before its timer fired, comes back as *common.AgingError so the queue
// redelivers the message.
func (s *TodoService) MarkAged(ctx context.Context, id string) (*models.Todo, error) {
	if id == "" {
		return nil, &common.AgingError{Err: errors.New("empty task id")}
	}

	patch := models.NewPatch()
	if err := patch.Set(models.FieldAged, true); err != nil {
		return nil, &common.AgingError{ResourceID: id, Err: err}
	}

	todo, err := s.repo.UpdateFields(ctx, id, patch, s.now())
	if err != nil {
		return nil, &common.AgingError{ResourceID: id, Err: err}
	}
	s.logger.Info(ctx, "todo aged", "id", id)
	return todo, nil
}

// DecodeCreate validates a create body. A title that is missing, not a
// string or blank is rejected; the stored title is not trimmed.
func DecodeCreate(body map[string]json.RawMessage) (CreateInput, error) {
	var in CreateInput

	raw, ok := body[string(models.FieldTitle)]
	if !ok || json.Unmarshal(raw, &in.Title) != nil || strings.TrimSpace(in.Title) == "" {
		return CreateInput{}, common.NewValidationError("title is required")
	}

	if raw, ok := body[string(models.FieldDueDate)]; ok {
		d, err := decodeDate(raw)
		if err != nil {
			return CreateInput{}, err
		}
		in.DueDate = d
	}
	return in, nil
}

// DecodePatch keeps the client-updatable fields of body and type-checks
// them. Unknown fields are ignored.
func DecodePatch(body map[string]json.RawMessage) (models.Patch, error) {
	patch := models.NewPatch()

	for _, f := range models.ClientFields {
		raw, ok := body[string(f)]
		if !ok {
			continue
		}

		var v any
		switch f {
		case models.FieldTitle:
			var title *string
			if err := json.Unmarshal(raw, &title); err != nil || title == nil {
				return models.Patch{}, common.NewValidationError("title must be a string")
			}
			if strings.TrimSpace(*title) == "" {
				return models.Patch{}, common.NewValidationError("title must not be empty")
			}
			v = *title
		case models.FieldCompleted:
			var completed *bool
			if err := json.Unmarshal(raw, &completed); err != nil || completed == nil {
				return models.Patch{}, common.NewValidationError("completed must be a boolean")
			}
			v = *completed
		case models.FieldDueDate:
			d, err := decodeDate(raw)
			if err != nil {
				return models.Patch{}, err
			}
			v = d
		}

		if err := patch.Set(f, v); err != nil {
			return models.Patch{}, common.NewValidationError(err.Error())
		}
	}
	return patch, nil
}

// decodeDate accepts null or a date string; null yields a nil date.
func decodeDate(raw json.RawMessage) (*models.Date, error) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, common.NewValidationError("dueDate must be a string or null")
	}
	if s == nil {
		return nil, nil
	}
	d, err := models.ParseDate(*s)
	if err != nil {
		return nil, common.NewValidationError(err.Error())
	}
	return &d, nil
}

// ParseLimit reads the limit query parameter: absent or non-numeric values
// give DefaultListLimit, anything else is clamped to [1, MaxListLimit].
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultListLimit
	}
	return clampLimit(n)
}
