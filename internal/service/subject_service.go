package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
)

// SubjectStore is the subject persistence the catalog depends on.
type SubjectStore interface {
	List(ctx context.Context) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
}

// SubjectService serves the subject catalog.
type SubjectService struct {
	subjects SubjectStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSubjectService constructs the service.
func NewSubjectService(subjects SubjectStore, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{subjects: subjects, validate: validate, logger: logger}
}

// List returns all subjects in display order.
func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Grouped returns subjects bucketed by category for the booking form.
func (s *SubjectService) Grouped(ctx context.Context) ([]models.SubjectGroup, error) {
	subjects, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return models.GroupSubjects(subjects), nil
}

// Create adds a subject to the catalog. Names are unique.
func (s *SubjectService) Create(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject request")
	}

	exists, err := s.subjects.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a subject with that name already exists")
	}

	subject := &models.Subject{
		Name:      req.Name,
		Category:  req.Category,
		SortOrder: req.SortOrder,
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	s.logger.Info("subject created", zap.String("subject_id", subject.ID), zap.String("name", subject.Name))
	return subject, nil
}
