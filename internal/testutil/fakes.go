package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/moderation"
	"github.com/nward/askbox/internal/repository"
	"gorm.io/gorm"
)

// In-memory repository fakes for tests that do not need a real database.
// They return the same gorm sentinel errors the postgres implementations
// surface, and the user fake enforces the unique indexes the real schema
// carries, so the signup race resolves the same way in both.

func NewFakeRepositories() *repository.Repositories {
	return &repository.Repositories{
		User:     NewFakeUserRepo(),
		Question: NewFakeQuestionRepo(),
		Note:     NewFakeNoteRepo(),
		Session:  NewFakeSessionRepo(),
	}
}

type FakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *FakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}

	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *FakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *FakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *FakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *FakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

type FakeQuestionRepo struct {
	mu        sync.Mutex
	questions map[uuid.UUID]*domain.Question
}

func NewFakeQuestionRepo() *FakeQuestionRepo {
	return &FakeQuestionRepo{questions: make(map[uuid.UUID]*domain.Question)}
}

func (r *FakeQuestionRepo) Create(ctx context.Context, question *domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *question
	r.questions[question.ID] = &copied
	return nil
}

func (r *FakeQuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q, ok := r.questions[id]; ok {
		copied := *q
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *FakeQuestionRepo) ListForUser(ctx context.Context, userID uuid.UUID, descending bool) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.Question
	for _, q := range r.questions {
		if q.ToUserID == userID {
			copied := *q
			result = append(result, &copied)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if descending {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *FakeQuestionRepo) Update(ctx context.Context, question *domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *question
	r.questions[question.ID] = &copied
	return nil
}

func (r *FakeQuestionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.questions, id)
	return nil
}

type FakeNoteRepo struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*domain.Note
}

func NewFakeNoteRepo() *FakeNoteRepo {
	return &FakeNoteRepo{notes: make(map[uuid.UUID]*domain.Note)}
}

func (r *FakeNoteRepo) Create(ctx context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *note
	r.notes[note.ID] = &copied
	return nil
}

func (r *FakeNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.notes[id]; ok {
		copied := *n
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *FakeNoteRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.Note
	for _, n := range r.notes {
		if n.UserID == userID {
			copied := *n
			result = append(result, &copied)
		}
	}

	// newest first, like the postgres implementation
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *FakeNoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.notes, id)
	return nil
}

type FakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.UserSession
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{sessions: make(map[uuid.UUID]*domain.UserSession)}
}

func (r *FakeSessionRepo) Create(ctx context.Context, session *domain.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *FakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *FakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *FakeSessionRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *FakeSessionRepo) DeleteExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.sessions, id)
		}
	}
	return nil
}

// Count reports stored sessions; test-only.
func (r *FakeSessionRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// FakeModerator returns canned verdicts and can simulate an outage.
type FakeModerator struct {
	mu       sync.Mutex
	verdict  moderation.Verdict
	err      error
	Calls    int
	LastText string
}

func NewFakeModerator() *FakeModerator {
	return &FakeModerator{verdict: moderation.Verdict{IsAppropriate: true}}
}

func (m *FakeModerator) Reject(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdict = moderation.Verdict{IsAppropriate: false, Reason: reason}
	m.err = nil
}

func (m *FakeModerator) Approve() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdict = moderation.Verdict{IsAppropriate: true}
	m.err = nil
}

func (m *FakeModerator) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *FakeModerator) Moderate(ctx context.Context, questionText string) (*moderation.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastText = questionText
	if m.err != nil {
		return nil, m.err
	}
	verdict := m.verdict
	return &verdict, nil
}
