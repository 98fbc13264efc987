package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/repository"
	"gorm.io/gorm"
)

// StoreBackend resolves subscription paths against the repositories. It is
// the only Backend the server ships; the subscription layer itself never
// learns what is behind the interface.
type StoreBackend struct {
	repos *repository.Repositories
}

func NewStoreBackend(repos *repository.Repositories) *StoreBackend {
	return &StoreBackend{repos: repos}
}

func (s *StoreBackend) GetDocument(ctx context.Context, path string) (Document, error) {
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 2 && parts[0] == UsersPath:
		id, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, &Error{Op: "get", Path: path, Err: err}
		}
		user, err := s.repos.User.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, &Error{Op: "get", Path: path, Err: err}
		}
		return EncodeUser(user), nil

	case len(parts) == 2 && parts[0] == QuestionsPath:
		id, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, &Error{Op: "get", Path: path, Err: err}
		}
		question, err := s.repos.Question.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, &Error{Op: "get", Path: path, Err: err}
		}
		// an unanswered question exists only for its recipient
		if viewer, _ := ViewerFrom(ctx); !question.IsAnswered && viewer != question.ToUserID {
			return nil, nil
		}
		return EncodeQuestion(question), nil

	case len(parts) == 4 && parts[0] == UsersPath && parts[2] == "notes":
		userID, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, &Error{Op: "get", Path: path, Err: err}
		}
		noteID, err := uuid.Parse(parts[3])
		if err != nil {
			return nil, &Error{Op: "get", Path: path, Err: err}
		}
		note, err := s.repos.Note.GetByID(ctx, noteID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, &Error{Op: "get", Path: path, Err: err}
		}
		// a note addressed through the wrong owner, or read by anyone
		// but its owner, does not exist
		if note.UserID != userID {
			return nil, nil
		}
		if viewer, _ := ViewerFrom(ctx); viewer != note.UserID {
			return nil, nil
		}
		return EncodeNote(note), nil

	default:
		return nil, &Error{Op: "get", Path: path, Err: ErrUnsupportedPath}
	}
}

func (s *StoreBackend) GetCollection(ctx context.Context, path string, query Query) ([]Document, error) {
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && parts[0] == QuestionsPath:
		return s.questionCollection(ctx, path, query)

	case len(parts) == 1 && parts[0] == UsersPath:
		return s.userCollection(ctx, path, query)

	case len(parts) == 3 && parts[0] == UsersPath && parts[2] == "notes":
		return s.noteCollection(ctx, path, parts[1], query)

	default:
		return nil, &Error{Op: "list", Path: path, Err: ErrUnsupportedPath}
	}
}

func (s *StoreBackend) questionCollection(ctx context.Context, path string, query Query) ([]Document, error) {
	if query.Equals == nil || query.Equals.Field != "toUserId" {
		return nil, &Error{Op: "list", Path: path, Err: fmt.Errorf("%w: questions require a toUserId filter", ErrUnsupportedQuery)}
	}
	userID, err := uuid.Parse(query.Equals.Value)
	if err != nil {
		return nil, &Error{Op: "list", Path: path, Err: err}
	}

	descending := false
	if query.OrderBy != nil {
		if query.OrderBy.Field != "createdAt" {
			return nil, &Error{Op: "list", Path: path, Err: fmt.Errorf("%w: questions sort by createdAt only", ErrUnsupportedQuery)}
		}
		descending = query.OrderBy.Descending
	}

	questions, err := s.repos.Question.ListForUser(ctx, userID, descending)
	if err != nil {
		return nil, &Error{Op: "list", Path: path, Err: err}
	}

	// only the inbox owner sees the unanswered subset
	viewer, _ := ViewerFrom(ctx)
	docs := make([]Document, 0, len(questions))
	for _, q := range questions {
		if !q.IsAnswered && viewer != userID {
			continue
		}
		docs = append(docs, EncodeQuestion(q))
	}
	return docs, nil
}

// userCollection supports the two lookups the app performs: by username and
// by email. An unfiltered scan over all users is deliberately not an
// operation.
func (s *StoreBackend) userCollection(ctx context.Context, path string, query Query) ([]Document, error) {
	if query.Equals == nil {
		return nil, &Error{Op: "list", Path: path, Err: fmt.Errorf("%w: users require an equality filter", ErrUnsupportedQuery)}
	}

	switch query.Equals.Field {
	case "username":
		user, err := s.repos.User.GetByUsername(ctx, query.Equals.Value)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Document{}, nil
		}
		if err != nil {
			return nil, &Error{Op: "list", Path: path, Err: err}
		}
		return []Document{EncodeUser(user)}, nil
	case "email":
		user, err := s.repos.User.GetByEmail(ctx, query.Equals.Value)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Document{}, nil
		}
		if err != nil {
			return nil, &Error{Op: "list", Path: path, Err: err}
		}
		return []Document{EncodeUser(user)}, nil
	default:
		return nil, &Error{Op: "list", Path: path, Err: fmt.Errorf("%w: users filter by username or email", ErrUnsupportedQuery)}
	}
}

func (s *StoreBackend) noteCollection(ctx context.Context, path, rawUserID string, query Query) ([]Document, error) {
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, &Error{Op: "list", Path: path, Err: err}
	}
	// notes belong to their author alone
	if viewer, _ := ViewerFrom(ctx); viewer != userID {
		return []Document{}, nil
	}

	ascending := false
	if query.OrderBy != nil {
		if query.OrderBy.Field != "createdAt" {
			return nil, &Error{Op: "list", Path: path, Err: fmt.Errorf("%w: notes sort by createdAt only", ErrUnsupportedQuery)}
		}
		ascending = !query.OrderBy.Descending
	}

	notes, err := s.repos.Note.ListForUser(ctx, userID)
	if err != nil {
		return nil, &Error{Op: "list", Path: path, Err: err}
	}

	docs := make([]Document, 0, len(notes))
	for _, n := range notes {
		docs = append(docs, EncodeNote(n))
	}
	// the repository returns newest first
	if ascending {
		for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
			docs[i], docs[j] = docs[j], docs[i]
		}
	}
	return docs, nil
}
