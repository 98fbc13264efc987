package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
	"gorm.io/gorm"
)

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *questionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, question *domain.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	var question domain.Question
	err := r.db.WithContext(ctx).First(&question, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) ListForUser(ctx context.Context, userID uuid.UUID, descending bool) ([]*domain.Question, error) {
	order := "created_at asc"
	if descending {
		order = "created_at desc"
	}

	var questions []*domain.Question
	err := r.db.WithContext(ctx).
		Where("to_user_id = ?", userID).
		Order(order).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) Update(ctx context.Context, question *domain.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Question{}, "id = ?", id).Error
}
