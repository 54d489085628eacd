package repository

import (
	"context"
	"errors"
	"fmt"

	"compliance/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionFilter narrows a submission listing. Zero values match everything.
type SubmissionFilter struct {
	VendorID *uuid.UUID
	Year     int
	Month    int
}

// SubmissionRepository persists submissions, their documents and their files.
// Writes are expected to run inside TransactionManager.RunInTx.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	LoadSubmission(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	LockSubmission(ctx context.Context, id uuid.UUID) error
	ListSubmissions(ctx context.Context, filter SubmissionFilter, page, limit int) ([]model.Submission, int64, error)
	UpdateSubmissionStatus(ctx context.Context, id uuid.UUID, status model.Status) error

	FindDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	FindReplacement(ctx context.Context, originalID uuid.UUID) (*model.Document, error)
	CreateDocument(ctx context.Context, doc *model.Document) error
	SaveDocument(ctx context.Context, doc *model.Document) error

	FindFile(ctx context.Context, id uuid.UUID) (*model.File, error)
	SaveFile(ctx context.Context, file *model.File) error
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *submissionRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *submissionRepository) LoadSubmission(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	var sub model.Submission
	err := GetDB(ctx, r.db).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Documents.Files", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&sub, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

// LockSubmission takes a row lock on the submission for the rest of the transaction.
// Every decision on a file of the submission serializes on this lock.
func (r *submissionRepository) LockSubmission(ctx context.Context, id uuid.UUID) error {
	var sub model.Submission
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&sub, "id = ?", id).Error
	return notFound(err)
}

func applySubmissionFilter(query *gorm.DB, filter SubmissionFilter) *gorm.DB {
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Year != 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Month != 0 {
		query = query.Where("month = ?", filter.Month)
	}
	return query
}

func (r *submissionRepository) ListSubmissions(ctx context.Context, filter SubmissionFilter, page, limit int) ([]model.Submission, int64, error) {
	var subs []model.Submission
	var total int64

	db := GetDB(ctx, r.db)
	if err := applySubmissionFilter(db.Model(&model.Submission{}), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	offset := (page - 1) * limit
	if err := applySubmissionFilter(db, filter).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch submissions: %w", err)
	}

	return subs, total, nil
}

func (r *submissionRepository) UpdateSubmissionStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	return GetDB(ctx, r.db).Model(&model.Submission{}).Where("id = ?", id).Update("status", status).Error
}

func (r *submissionRepository) FindDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := GetDB(ctx, r.db).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (r *submissionRepository) FindReplacement(ctx context.Context, originalID uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := GetDB(ctx, r.db).
		Preload("Files").
		First(&doc, "original_document_id = ?", originalID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (r *submissionRepository) CreateDocument(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

// SaveDocument writes the document row only. Files are saved one by one through SaveFile.
func (r *submissionRepository) SaveDocument(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(doc).Error
}

func (r *submissionRepository) FindFile(ctx context.Context, id uuid.UUID) (*model.File, error) {
	var file model.File
	if err := GetDB(ctx, r.db).First(&file, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

func (r *submissionRepository) SaveFile(ctx context.Context, file *model.File) error {
	return GetDB(ctx, r.db).Save(file).Error
}
