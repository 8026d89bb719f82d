package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// QuizRecord: one published quiz
type QuizRecord struct {
	ID          string         `gorm:"column:id;primaryKey;size:64"`
	Title       string         `gorm:"column:title;size:255"`
	Domain      string         `gorm:"column:domain;size:128;index"`
	Difficulty  string         `gorm:"column:difficulty;size:32"`
	Points      int            `gorm:"column:points"`
	Payload     datatypes.JSON `gorm:"column:payload"`
	Targets     int            `gorm:"column:targets"`
	PublishedAt time.Time      `gorm:"column:published_at;index"`
	RevealedAt  *time.Time     `gorm:"column:revealed_at"`
	Revealed    int            `gorm:"column:revealed"`
}

// TableName implements gorm.Tabler.
func (QuizRecord) TableName() string { return "quiz_archive" }

// RunRecord: one campaign job run
type RunRecord struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Job        string    `gorm:"column:job;size:32;index"`
	Status     string    `gorm:"column:status;size:16"`
	Error      string    `gorm:"column:error;type:text"`
	StartedAt  time.Time `gorm:"column:started_at;index"`
	DurationMs int64     `gorm:"column:duration_ms"`
}

// TableName implements gorm.Tabler.
func (RunRecord) TableName() string { return "campaign_runs" }

// Repository reads and writes the archive tables.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewRepository creates a Repository.
func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger, now: time.Now}
}

// AutoMigrate creates or updates the archive tables.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&QuizRecord{}, &RunRecord{}); err != nil {
		return fmt.Errorf("archive migrate: %w", err)
	}
	return nil
}

// QuizPublished archives a freshly published quiz.
func (r *Repository) QuizPublished(ctx context.Context, quiz *domain.Quiz, targets int) error {
	payload, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	record := QuizRecord{
		ID:          quiz.ID,
		Title:       quiz.Titre,
		Domain:      quiz.Domaine,
		Difficulty:  string(quiz.Difficulte),
		Points:      quiz.Points,
		Payload:     datatypes.JSON(payload),
		Targets:     targets,
		PublishedAt: r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.NewServiceError("archive", "quiz published", err)
	}
	return nil
}

// QuizRevealed marks quizID revealed in revealed chats.
func (r *Repository) QuizRevealed(ctx context.Context, quizID string, revealed int) error {
	now := r.now()
	result := r.db.WithContext(ctx).Model(&QuizRecord{}).
		Where("id = ?", quizID).
		Updates(map[string]any{"revealed_at": now, "revealed": revealed})
	if result.Error != nil {
		return errors.NewServiceError("archive", "quiz revealed", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewServiceError("archive", "quiz revealed", fmt.Errorf("quiz %s: %w", quizID, errors.ErrNotFound))
	}
	return nil
}

// RecordRun stores the outcome of a job run.
func (r *Repository) RecordRun(ctx context.Context, job, status string, startedAt time.Time, elapsed time.Duration, runErr error) error {
	record := RunRecord{
		Job:        job,
		Status:     status,
		StartedAt:  startedAt,
		DurationMs: elapsed.Milliseconds(),
	}
	if runErr != nil {
		record.Error = runErr.Error()
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.NewServiceError("archive", "record run", err)
	}
	return nil
}

// RecentQuizzes returns the last limit archived quizzes, newest first.
func (r *Repository) RecentQuizzes(ctx context.Context, limit int) ([]QuizRecord, error) {
	var records []QuizRecord
	err := r.db.WithContext(ctx).Order("published_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, errors.NewServiceError("archive", "recent quizzes", err)
	}
	return records, nil
}

// RecentRuns returns the last limit runs of job (all jobs when job is empty), newest first.
func (r *Repository) RecentRuns(ctx context.Context, job string, limit int) ([]RunRecord, error) {
	query := r.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit)
	if job != "" {
		query = query.Where("job = ?", job)
	}
	var records []RunRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, errors.NewServiceError("archive", "recent runs", err)
	}
	return records, nil
}

// Quiz decodes the archived payload of record.
func (q QuizRecord) Quiz() (*domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(q.Payload, &quiz); err != nil {
		return nil, fmt.Errorf("decode archived quiz %s: %w", q.ID, err)
	}
	return &quiz, nil
}
