package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
)

// TutorRepository provides persistence for tutors and their subject links.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository creates a new tutor repository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// List returns tutors with optional filtering and pagination.
func (r *TutorRepository) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	base := "FROM tutors t WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(t.name ILIKE $%d OR t.phone LIKE $%d)", len(args)+1, len(args)+2))
		args = append(args, "%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("t.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM tutor_subjects ts WHERE ts.tutor_id = t.id AND ts.subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT t.id, t.name, t.phone, t.pin_hash, t.active, t.created_at, t.updated_at %s ORDER BY t.name ASC LIMIT %d OFFSET %d", base, size, offset)
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tutors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tutors: %w", err)
	}

	return tutors, total, nil
}

// FindByID loads a tutor by id.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	const query = `SELECT id, name, phone, pin_hash, active, created_at, updated_at FROM tutors WHERE id = $1`
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// FindByPhone loads a tutor by normalised phone number.
func (r *TutorRepository) FindByPhone(ctx context.Context, phone string) (*models.Tutor, error) {
	const query = `SELECT id, name, phone, pin_hash, active, created_at, updated_at FROM tutors WHERE phone = $1`
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, phone); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// ListActiveBySubject returns active tutors qualified to teach a subject.
func (r *TutorRepository) ListActiveBySubject(ctx context.Context, subjectID string) ([]models.Tutor, error) {
	const query = `SELECT t.id, t.name, t.phone, t.pin_hash, t.active, t.created_at, t.updated_at
		FROM tutors t
		JOIN tutor_subjects ts ON ts.tutor_id = t.id
		WHERE ts.subject_id = $1 AND t.active = TRUE
		ORDER BY t.id ASC`
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query, subjectID); err != nil {
		return nil, fmt.Errorf("list tutors by subject: %w", err)
	}
	return tutors, nil
}

// SubjectIDs returns the subject ids a tutor covers.
func (r *TutorRepository) SubjectIDs(ctx context.Context, tutorID string) ([]string, error) {
	const query = `SELECT ts.subject_id
		FROM tutor_subjects ts
		JOIN subjects s ON s.id = ts.subject_id
		WHERE ts.tutor_id = $1
		ORDER BY s.sort_order ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor subjects: %w", err)
	}
	return ids, nil
}

// Create stores a tutor and their subject links in one transaction.
func (r *TutorRepository) Create(ctx context.Context, tutor *models.Tutor, subjectIDs []string) error {
	if tutor.ID == "" {
		tutor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tutor.CreatedAt.IsZero() {
		tutor.CreatedAt = now
	}
	tutor.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tutor: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertTutor = `INSERT INTO tutors (id, name, phone, pin_hash, active, created_at, updated_at) VALUES (:id, :name, :phone, :pin_hash, :active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertTutor, tutor); err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}

	if err = replaceSubjectLinks(ctx, tx, tutor.ID, subjectIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create tutor: %w", err)
	}
	return nil
}

// Update modifies a tutor's profile fields.
func (r *TutorRepository) Update(ctx context.Context, tutor *models.Tutor) error {
	tutor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tutors SET name = :name, phone = :phone, pin_hash = :pin_hash, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tutor); err != nil {
		return fmt.Errorf("update tutor: %w", err)
	}
	return nil
}

// ReplaceSubjects swaps the tutor's subject set atomically.
func (r *TutorRepository) ReplaceSubjects(ctx context.Context, tutorID string, subjectIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace subjects: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM tutor_subjects WHERE tutor_id = $1`, tutorID); err != nil {
		return fmt.Errorf("clear tutor subjects: %w", err)
	}
	if err = replaceSubjectLinks(ctx, tx, tutorID, subjectIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace subjects: %w", err)
	}
	return nil
}

// Deactivate soft-disables a tutor. Future availability stops resolving while
// existing confirmed bookings survive.
func (r *TutorRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tutors SET active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate tutor: %w", err)
	}
	return nil
}

func replaceSubjectLinks(ctx context.Context, tx *sqlx.Tx, tutorID string, subjectIDs []string) error {
	for _, subjectID := range subjectIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tutor_subjects (id, tutor_id, subject_id) VALUES ($1, $2, $3)`, uuid.NewString(), tutorID, subjectID); err != nil {
			return fmt.Errorf("link tutor subject: %w", err)
		}
	}
	return nil
}

// anyIDs adapts a string slice for Postgres ANY comparisons.
func anyIDs(ids []string) interface{} {
	return pq.Array(ids)
}
