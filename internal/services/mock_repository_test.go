package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// memoryRepository is an in-memory Repository. Transactions are serialized
// but not rolled back.
type memoryRepository struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextID     uint
	subjects   map[uint]*models.Subject
	questions  map[uint]*models.Question
	candidates map[uint]*models.Candidate
	sessions   map[uint]*models.ExamSession
	answers    map[uint]map[uint]models.AnswerSymbol

	failCreateBatch error
	claims          int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		subjects:   make(map[uint]*models.Subject),
		questions:  make(map[uint]*models.Question),
		candidates: make(map[uint]*models.Candidate),
		sessions:   make(map[uint]*models.ExamSession),
		answers:    make(map[uint]map[uint]models.AnswerSymbol),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (r *memoryRepository) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memoryRepository) Subject() repositories.SubjectRepository     { return memorySubjects{r} }
func (r *memoryRepository) Question() repositories.QuestionRepository   { return memoryQuestions{r} }
func (r *memoryRepository) Candidate() repositories.CandidateRepository { return memoryCandidates{r} }
func (r *memoryRepository) Session() repositories.SessionRepository     { return memorySessions{r} }
func (r *memoryRepository) Answer() repositories.AnswerRepository       { return memoryAnswers{r} }

func (r *memoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r)
}

func (r *memoryRepository) Ping(ctx context.Context) error { return nil }
func (r *memoryRepository) Close() error                   { return nil }

// ===== FIXTURES =====

func (r *memoryRepository) addSubject(minYear, maxYear int) *models.Subject {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &models.Subject{ID: r.id(), MinCourseYear: minYear, MaxCourseYear: maxYear, IsActive: true}
	r.subjects[s.ID] = s
	return s
}

func (r *memoryRepository) addQuestion(subjectID uint, answer models.AnswerSymbol, docs map[models.Language]string) *models.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := &models.Question{ID: r.id(), SubjectID: subjectID, CorrectAnswer: answer, IsActive: true}
	for lang, key := range docs {
		q.SetDocumentKey(lang, key)
	}
	r.questions[q.ID] = q
	return q
}

func (r *memoryRepository) addCandidate(telegramID int64, name string, year int) *models.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &models.Candidate{
		ID:         r.id(),
		TelegramID: telegramID,
		FullName:   name,
		Language:   models.LanguageUz,
		CohortKind: models.CohortStandard,
		CourseYear: &year,
		IsActive:   true,
	}
	r.candidates[c.ID] = c
	return c
}

func (r *memoryRepository) session(token string) *models.ExamSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Token == token {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (r *memoryRepository) claimCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claims
}

// ===== SUBJECTS =====

type memorySubjects struct{ r *memoryRepository }

func (m memorySubjects) Create(ctx context.Context, tx *gorm.DB, subject *models.Subject) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	subject.ID = m.r.id()
	cp := *subject
	m.r.subjects[subject.ID] = &cp
	return nil
}

func (m memorySubjects) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Subject, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.subjects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m memorySubjects) ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Subject, error) {
	all, _ := m.List(ctx, tx)
	var out []*models.Subject
	for _, s := range all {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

// ===== QUESTIONS =====

type memoryQuestions struct{ r *memoryRepository }

func (m memoryQuestions) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.failCreateBatch != nil {
		return m.r.failCreateBatch
	}
	for _, q := range questions {
		q.ID = m.r.id()
		cp := *q
		m.r.questions[q.ID] = &cp
	}
	return nil
}

func (m memoryQuestions) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *q
	return &cp, nil
}

func (m memoryQuestions) ActiveIDs(ctx context.Context, tx *gorm.DB, subjectID uint, lang models.Language) ([]uint, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []uint
	for _, q := range m.r.questions {
		if _, ok := q.DocumentKey(lang); ok && q.SubjectID == subjectID && q.IsActive {
			out = append(out, q.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m memoryQuestions) AnswerKey(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]models.AnswerSymbol, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	out := make(map[uint]models.AnswerSymbol, len(ids))
	for _, id := range ids {
		if q, ok := m.r.questions[id]; ok {
			out[id] = q.CorrectAnswer
		}
	}
	return out, nil
}

func (m memoryQuestions) SetActive(ctx context.Context, tx *gorm.DB, id uint, active bool) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	q, ok := m.r.questions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	q.IsActive = active
	return nil
}

func (r *memoryRepository) questionCount(subjectID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, q := range r.questions {
		if q.SubjectID == subjectID {
			n++
		}
	}
	return n
}

// ===== CANDIDATES =====

type memoryCandidates struct{ r *memoryRepository }

func (m memoryCandidates) Create(ctx context.Context, tx *gorm.DB, candidate *models.Candidate) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, c := range m.r.candidates {
		if c.TelegramID == candidate.TelegramID || samePhone(c.Phone, candidate.Phone) {
			return gorm.ErrDuplicatedKey
		}
	}
	candidate.ID = m.r.id()
	cp := *candidate
	m.r.candidates[candidate.ID] = &cp
	return nil
}

func (m memoryCandidates) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Candidate, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	c, ok := m.r.candidates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memoryCandidates) GetByTelegramID(ctx context.Context, tx *gorm.DB, telegramID int64) (*models.Candidate, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, c := range m.r.candidates {
		if c.TelegramID == telegramID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memoryCandidates) UpdateLanguage(ctx context.Context, tx *gorm.DB, id uint, lang models.Language) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	c, ok := m.r.candidates[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Language = lang
	return nil
}

func (m memoryCandidates) UpdatePhone(ctx context.Context, tx *gorm.DB, id uint, phone string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, c := range m.r.candidates {
		if c.ID != id && samePhone(c.Phone, &phone) {
			return gorm.ErrDuplicatedKey
		}
	}
	c, ok := m.r.candidates[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Phone = &phone
	return nil
}

func samePhone(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// ===== SESSIONS =====

type memorySessions struct{ r *memoryRepository }

func (m memorySessions) Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	session.ID = m.r.id()
	cp := *session
	m.r.sessions[session.ID] = &cp
	return nil
}

// copyOf returns a detached session with the candidate and answers attached
func (m memorySessions) copyOf(s *models.ExamSession, withAnswers bool) *models.ExamSession {
	cp := *s
	if c, ok := m.r.candidates[s.CandidateID]; ok {
		cp.Candidate = *c
	}
	cp.Answers = nil
	if withAnswers {
		for qid, symbol := range m.r.answers[s.ID] {
			cp.Answers = append(cp.Answers, models.SessionAnswer{SessionID: s.ID, QuestionID: qid, Answer: symbol})
		}
	}
	return &cp
}

func (m memorySessions) find(token string, withAnswers bool) (*models.ExamSession, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, s := range m.r.sessions {
		if s.Token == token {
			return m.copyOf(s, withAnswers), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memorySessions) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*models.ExamSession, error) {
	return m.find(token, false)
}

func (m memorySessions) GetByTokenWithAnswers(ctx context.Context, tx *gorm.DB, token string) (*models.ExamSession, error) {
	return m.find(token, true)
}

func (m memorySessions) HasGraded(ctx context.Context, tx *gorm.DB, candidateID uint) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, s := range m.r.sessions {
		if s.CandidateID == candidateID && s.Status == models.SessionGraded {
			return true, nil
		}
	}
	return false, nil
}

func (m memorySessions) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.copyOf(s, false), nil
}

func (m memorySessions) UpdatePosition(ctx context.Context, tx *gorm.DB, id uint, position int) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.sessions[id]
	if !ok || s.Status != models.SessionInProgress {
		return repositories.ErrConflict
	}
	s.Position = position
	return nil
}

func (m memorySessions) ClaimSubmission(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.sessions[id]
	if !ok || s.Status != models.SessionInProgress {
		return false, nil
	}
	s.Status = models.SessionSubmitted
	m.r.claims++
	return true, nil
}

func (m memorySessions) SaveGrade(ctx context.Context, tx *gorm.DB, id uint, grade *repositories.SessionGrade) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	s, ok := m.r.sessions[id]
	if !ok || s.Status != models.SessionSubmitted {
		return repositories.ErrConflict
	}
	score, percentage, tier, token := grade.Score, grade.Percentage, grade.Tier, grade.GradingToken
	completed := grade.CompletedAt
	s.Status = models.SessionGraded
	s.Score = &score
	s.TotalQuestions = grade.TotalQuestions
	s.Percentage = &percentage
	s.Tier = &tier
	s.GradingToken = &token
	s.ElapsedSeconds = grade.ElapsedSeconds
	s.CompletedAt = &completed
	s.Position = s.Total()
	return nil
}

func (m memorySessions) MarkCertificateSent(ctx context.Context, tx *gorm.DB, id uint) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if s, ok := m.r.sessions[id]; ok {
		s.CertificateSent = true
	}
	return nil
}

func (m memorySessions) ListForExport(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.ExamSession, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.ExamSession
	for _, s := range m.r.sessions {
		if filters.Status != nil && s.Status != *filters.Status {
			continue
		}
		out = append(out, m.copyOf(s, false))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== ANSWERS =====

type memoryAnswers struct{ r *memoryRepository }

func (m memoryAnswers) Upsert(ctx context.Context, tx *gorm.DB, answer *models.SessionAnswer) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if m.r.answers[answer.SessionID] == nil {
		m.r.answers[answer.SessionID] = make(map[uint]models.AnswerSymbol)
	}
	m.r.answers[answer.SessionID][answer.QuestionID] = answer.Answer
	return nil
}

func (m memoryAnswers) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*models.SessionAnswer, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.SessionAnswer
	for qid, symbol := range m.r.answers[sessionID] {
		out = append(out, &models.SessionAnswer{SessionID: sessionID, QuestionID: qid, Answer: symbol})
	}
	return out, nil
}

// fixedClock returns the same instant on every call
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
