package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/repository"
	"gorm.io/gorm"
)

type NoteService struct {
	noteRepo repository.NoteRepository
	broker   *realtime.Broker
}

func NewNoteService(noteRepo repository.NoteRepository, broker *realtime.Broker) *NoteService {
	return &NoteService{
		noteRepo: noteRepo,
		broker:   broker,
	}
}

func (s *NoteService) Create(ctx context.Context, userID uuid.UUID, contentText string) (*domain.Note, error) {
	text := strings.TrimSpace(contentText)
	if text == "" || utf8.RuneCountInString(text) > domain.MaxNoteLength {
		return nil, domain.ErrNoteTooLong
	}

	note := &domain.Note{
		ID:          uuid.New(),
		UserID:      userID,
		ContentText: text,
		CreatedAt:   time.Now(),
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}

	s.broker.Publish(realtime.NotesPath(userID), realtime.NotePath(userID, note.ID))
	return note, nil
}

func (s *NoteService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Note, error) {
	return s.noteRepo.ListForUser(ctx, userID)
}

func (s *NoteService) Delete(ctx context.Context, userID, noteID uuid.UUID) error {
	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNoteNotFound
		}
		return err
	}
	if note.UserID != userID {
		return domain.ErrNotNoteOwner
	}

	if err := s.noteRepo.Delete(ctx, noteID); err != nil {
		return err
	}

	s.broker.Publish(realtime.NotesPath(userID), realtime.NotePath(userID, noteID))
	return nil
}
