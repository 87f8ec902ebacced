package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/certificate"
	"github.com/SAP-F-2025/exam-service/internal/docx/docxtest"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/i18n"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/rendering"
	"github.com/SAP-F-2025/exam-service/internal/storage"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type recordingIssuer struct {
	mu       sync.Mutex
	requests []certificate.Request
}

func (r *recordingIssuer) Issue(ctx context.Context, req certificate.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return nil
}

func (r *recordingIssuer) issued() []certificate.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]certificate.Request(nil), r.requests...)
}

type sessionFixture struct {
	repo         *memoryRepository
	store        *storage.MemoryProvider
	publisher    *events.MockEventPublisher
	notifier     *events.AsyncPublisher
	issuer       *recordingIssuer
	certificates *certificate.Dispatcher
	svc          SessionService
	candidate    *models.Candidate
	subject      *models.Subject
}

var fixtureNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// newSessionFixture seeds one subject for years 1-11 with n questions whose
// correct answer is always A.
func newSessionFixture(t *testing.T, n int) *sessionFixture {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()

	f := &sessionFixture{
		repo:      newMemoryRepository(),
		store:     storage.NewMemoryProvider(),
		publisher: events.NewMockEventPublisher(logger),
		issuer:    &recordingIssuer{},
	}
	f.certificates = certificate.NewDispatcher(f.issuer, time.Second, logger)
	f.notifier = events.NewAsyncPublisher(f.publisher, time.Second, logger)
	f.subject = f.repo.addSubject(1, 11)
	for i := 1; i <= n; i++ {
		key := fmt.Sprintf("questions/%d/batch/q_uz_%d_%d.docx", f.subject.ID, f.subject.ID, i)
		if err := f.store.Put(ctx, key, docxtest.Build(docxtest.Paragraph(fmt.Sprintf("Question %d", i))), storage.DocxContentType); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		f.repo.addQuestion(f.subject.ID, models.AnswerA, map[models.Language]string{models.LanguageUz: key})
	}
	f.candidate = f.repo.addCandidate(1001, "Karimov Aziz Bahodirovich", 9)

	translator, err := i18n.New("uz", logger)
	if err != nil {
		t.Fatalf("i18n.New() error: %v", err)
	}

	cfg := DefaultServiceManagerConfig().Exam
	cfg.ContactPhone = "+998901234567"
	cfg.Location = time.UTC

	f.svc = NewSessionService(f.repo, nil, logger, validator.New(), Dependencies{
		Storage:      f.store,
		Renderer:     rendering.NewCached(rendering.NewDocxRenderer(), nil, 0, logger),
		Translator:   translator,
		Publisher:    f.publisher,
		Notifier:     f.notifier,
		Certificates: f.certificates,
		Rand:         rand.New(rand.NewPCG(1, 2)),
		Now:          fixedClock(fixtureNow),
	}, cfg)
	return f
}

func (f *sessionFixture) start(t *testing.T) string {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), &CreateSessionRequest{CandidateID: f.candidate.ID})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return resp.SessionID
}

// answerAll answers the first correct questions with A and the rest with B
func (f *sessionFixture) answerAll(t *testing.T, token string, correct int) {
	t.Helper()
	for i, id := range f.repo.session(token).QuestionIDs {
		symbol := models.AnswerB
		if i < correct {
			symbol = models.AnswerA
		}
		if err := f.svc.RecordAnswer(context.Background(), token, id, symbol); err != nil {
			t.Fatalf("RecordAnswer(%d) error: %v", id, err)
		}
	}
}

// settle waits for the background side effects of grading
func (f *sessionFixture) settle() {
	f.notifier.Wait()
	f.certificates.Wait()
}

func (f *sessionFixture) gradedEvents() int {
	n := 0
	for _, e := range f.publisher.GetPublishedEvents() {
		if e.Type == events.TypeExamGraded {
			n++
		}
	}
	return n
}

// ===== CREATION =====

func TestSessionService_Create(t *testing.T) {
	f := newSessionFixture(t, 5)
	ctx := context.Background()

	resp, err := f.svc.Create(ctx, &CreateSessionRequest{CandidateID: f.candidate.ID})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if resp.TotalQuestions != 5 {
		t.Errorf("TotalQuestions = %d, want 5", resp.TotalQuestions)
	}

	session := f.repo.session(resp.SessionID)
	if session.Status != models.SessionInProgress || session.Position != 0 {
		t.Errorf("new session = %s at %d, want in_progress at 0", session.Status, session.Position)
	}
	if !session.StartedAt.Equal(fixtureNow) {
		t.Errorf("StartedAt = %v, want %v", session.StartedAt, fixtureNow)
	}
	seen := map[uint]bool{}
	for _, id := range session.QuestionIDs {
		if seen[id] {
			t.Errorf("question %d assigned twice", id)
		}
		seen[id] = true
	}
}

func TestSessionService_CreateErrors(t *testing.T) {
	t.Run("unknown candidate", func(t *testing.T) {
		f := newSessionFixture(t, 3)
		_, err := f.svc.Create(context.Background(), &CreateSessionRequest{CandidateID: 999})
		if !errors.Is(err, ErrCandidateNotFound) {
			t.Errorf("error = %v, want ErrCandidateNotFound", err)
		}
	})

	t.Run("no eligible content", func(t *testing.T) {
		f := newSessionFixture(t, 3)
		outsider := f.repo.addCandidate(2002, "Outside Range", 12)
		_, err := f.svc.Create(context.Background(), &CreateSessionRequest{CandidateID: outsider.ID})
		if !errors.Is(err, ErrNoEligibleContent) {
			t.Errorf("error = %v, want ErrNoEligibleContent", err)
		}
	})

	t.Run("already completed unless forced", func(t *testing.T) {
		f := newSessionFixture(t, 3)
		ctx := context.Background()
		token := f.start(t)
		if _, err := f.svc.Submit(ctx, token, nil); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}

		_, err := f.svc.Create(ctx, &CreateSessionRequest{CandidateID: f.candidate.ID})
		if !errors.Is(err, ErrAlreadyCompleted) {
			t.Errorf("error = %v, want ErrAlreadyCompleted", err)
		}
		if _, err := f.svc.Create(ctx, &CreateSessionRequest{CandidateID: f.candidate.ID, Force: true}); err != nil {
			t.Errorf("forced Create() error: %v", err)
		}
	})

	t.Run("missing candidate id", func(t *testing.T) {
		f := newSessionFixture(t, 1)
		var verrs validator.ValidationErrors
		_, err := f.svc.Create(context.Background(), &CreateSessionRequest{})
		if !errors.As(err, &verrs) {
			t.Errorf("error = %v, want validation errors", err)
		}
	})
}

// ===== NAVIGATION =====

func TestSessionService_Navigation(t *testing.T) {
	f := newSessionFixture(t, 3)
	ctx := context.Background()
	token := f.start(t)
	assigned := f.repo.session(token).QuestionIDs

	state, err := f.svc.Current(ctx, token)
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if state.Finished || state.Question == nil {
		t.Fatalf("Current() = %+v, want a question", state)
	}
	if state.Question.QuestionID != assigned[0] || state.Question.Total != 3 {
		t.Errorf("question = %+v, want first of 3", state.Question)
	}
	if !state.Question.Rendered || !strings.Contains(state.Question.Content, "Question") {
		t.Errorf("content = %q, want rendered question", state.Question.Content)
	}

	// retreat at the first question is a no-op
	state, err = f.svc.Retreat(ctx, token)
	if err != nil {
		t.Fatalf("Retreat() error: %v", err)
	}
	if state.Question.Position != 0 {
		t.Errorf("Position = %d after retreat at start, want 0", state.Question.Position)
	}

	for i := 1; i < 3; i++ {
		state, err = f.svc.Advance(ctx, token)
		if err != nil {
			t.Fatalf("Advance() error: %v", err)
		}
		if state.Question == nil || state.Question.QuestionID != assigned[i] {
			t.Fatalf("after %d advances got %+v, want question %d", i, state.Question, assigned[i])
		}
	}

	// past the last question the session awaits submit
	for i := 0; i < 2; i++ {
		state, err = f.svc.Advance(ctx, token)
		if err != nil {
			t.Fatalf("Advance() error: %v", err)
		}
		if !state.Finished || !state.ReadyToSubmit || state.Result != nil {
			t.Errorf("state = %+v, want ready to submit without result", state)
		}
	}
	if p := f.repo.session(token).Position; p != 3 {
		t.Errorf("Position = %d, want clamped to 3", p)
	}

	state, err = f.svc.Retreat(ctx, token)
	if err != nil {
		t.Fatalf("Retreat() error: %v", err)
	}
	if state.Question == nil || state.Question.QuestionID != assigned[2] {
		t.Errorf("retreat from end = %+v, want last question", state.Question)
	}
}

func TestSessionService_MissingDocumentRendersPlaceholder(t *testing.T) {
	f := newSessionFixture(t, 0)
	f.repo.addQuestion(f.subject.ID, models.AnswerA, map[models.Language]string{models.LanguageUz: "questions/missing.docx"})
	token := f.start(t)

	state, err := f.svc.Current(context.Background(), token)
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if state.Question.Rendered || state.Question.Content != rendering.Placeholder {
		t.Errorf("question = %+v, want placeholder", state.Question)
	}
}

// ===== ANSWERS =====

func TestSessionService_RecordAnswer(t *testing.T) {
	f := newSessionFixture(t, 2)
	ctx := context.Background()
	token := f.start(t)
	first := f.repo.session(token).QuestionIDs[0]

	if err := f.svc.RecordAnswer(ctx, token, first, "c"); err != nil {
		t.Fatalf("RecordAnswer() error: %v", err)
	}
	// the latest answer wins
	if err := f.svc.RecordAnswer(ctx, token, first, models.AnswerD); err != nil {
		t.Fatalf("RecordAnswer() error: %v", err)
	}

	state, err := f.svc.Current(ctx, token)
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if state.Question.PreviousAnswer == nil || *state.Question.PreviousAnswer != models.AnswerD {
		t.Errorf("PreviousAnswer = %v, want D", state.Question.PreviousAnswer)
	}

	tests := []struct {
		name       string
		token      string
		questionID uint
		symbol     models.AnswerSymbol
		want       error
	}{
		{"foreign question", token, 9999, models.AnswerA, ErrAnswerForeignToSession},
		{"invalid symbol", token, first, "E", ErrValidationFailed},
		{"unknown session", "nope", first, models.AnswerA, ErrSessionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.RecordAnswer(ctx, tt.token, tt.questionID, tt.symbol)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSessionService_AnswerAction(t *testing.T) {
	f := newSessionFixture(t, 2)
	ctx := context.Background()
	token := f.start(t)
	assigned := f.repo.session(token).QuestionIDs

	state, err := f.svc.Answer(ctx, token, &AnswerRequest{QuestionID: assigned[0], Answer: "A", Action: validator.ActionNext})
	if err != nil {
		t.Fatalf("Answer(next) error: %v", err)
	}
	if state.Question == nil || state.Question.QuestionID != assigned[1] {
		t.Fatalf("state = %+v, want second question", state)
	}

	state, err = f.svc.Answer(ctx, token, &AnswerRequest{Action: validator.ActionPrev})
	if err != nil {
		t.Fatalf("Answer(prev) error: %v", err)
	}
	if state.Question.PreviousAnswer == nil || *state.Question.PreviousAnswer != models.AnswerA {
		t.Errorf("PreviousAnswer = %v, want A", state.Question.PreviousAnswer)
	}

	elapsed := 125
	state, err = f.svc.Answer(ctx, token, &AnswerRequest{QuestionID: assigned[1], Answer: "A", Action: validator.ActionSubmit, ElapsedSeconds: &elapsed})
	if err != nil {
		t.Fatalf("Answer(submit) error: %v", err)
	}
	if !state.Finished || state.Result == nil || state.Result.Score != 2 {
		t.Fatalf("state = %+v, want graded 2/2", state)
	}
	if got := f.repo.session(token).ElapsedSeconds; got == nil || *got != 125 {
		t.Errorf("ElapsedSeconds = %v, want 125", got)
	}

	// a repeated submit carrying an answer still returns the stored result
	again, err := f.svc.Answer(ctx, token, &AnswerRequest{QuestionID: assigned[1], Answer: "B", Action: validator.ActionSubmit})
	if err != nil {
		t.Fatalf("repeated Answer(submit) error: %v", err)
	}
	if again.Result.GradingToken != state.Result.GradingToken || again.Result.Score != 2 {
		t.Errorf("repeated submit = %+v, want %+v", again.Result, state.Result)
	}

	_, err = f.svc.Answer(ctx, token, &AnswerRequest{QuestionID: assigned[0], Answer: "B", Action: validator.ActionNext})
	if !errors.Is(err, ErrSessionAlreadyGraded) {
		t.Errorf("answer after grading error = %v, want ErrSessionAlreadyGraded", err)
	}

	var verrs validator.ValidationErrors
	if _, err := f.svc.Answer(ctx, token, &AnswerRequest{Action: "jump"}); !errors.As(err, &verrs) {
		t.Errorf("unknown action error = %v, want validation errors", err)
	}
}

// ===== SUBMISSION =====

func TestSessionService_SubmitTiers(t *testing.T) {
	tests := []struct {
		name      string
		correct   int
		wantTier  models.Tier
		wantScore float64
	}{
		{"all correct passes", 5, models.TierPass, 100},
		// the threshold itself does not pass
		{"exactly threshold fails", 4, models.TierFail, 80},
		{"nothing answered fails", 0, models.TierFail, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t, 5)
			ctx := context.Background()
			token := f.start(t)
			if tt.correct > 0 {
				f.answerAll(t, token, tt.correct)
			}

			result, err := f.svc.Submit(ctx, token, nil)
			if err != nil {
				t.Fatalf("Submit() error: %v", err)
			}
			f.settle()

			if result.Tier != tt.wantTier || result.Percentage != tt.wantScore || result.Total != 5 {
				t.Errorf("result = %+v, want %s at %v%%", result, tt.wantTier, tt.wantScore)
			}
			if len(result.GradingToken) == 0 {
				t.Error("missing grading token")
			}
			if result.Message == "" {
				t.Error("missing result message")
			}
			if !result.CompletedAt.Equal(fixtureNow) {
				t.Errorf("CompletedAt = %v", result.CompletedAt)
			}

			issued := f.issuer.issued()
			if tt.wantTier == models.TierPass {
				if len(issued) != 1 {
					t.Fatalf("certificates issued = %d, want 1", len(issued))
				}
				req := issued[0]
				if req.FullName != [3]string{"Karimov", "Aziz", "Bahodirovich"} || req.Date != "14.03.2025" {
					t.Errorf("certificate request = %+v", req)
				}
				if req.GradingToken != result.GradingToken {
					t.Errorf("certificate token = %q, want %q", req.GradingToken, result.GradingToken)
				}
				if !f.repo.session(token).CertificateSent {
					t.Error("certificate not recorded as sent")
				}
			} else if len(issued) != 0 {
				t.Errorf("certificates issued = %d for a failed session", len(issued))
			}

			if n := f.gradedEvents(); n != 1 {
				t.Errorf("graded events = %d, want 1", n)
			}
		})
	}
}

func TestSessionService_SubmitIsIdempotent(t *testing.T) {
	f := newSessionFixture(t, 4)
	ctx := context.Background()
	token := f.start(t)
	f.answerAll(t, token, 4)

	first, err := f.svc.Submit(ctx, token, nil)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	second, err := f.svc.Submit(ctx, token, nil)
	if err != nil {
		t.Fatalf("second Submit() error: %v", err)
	}
	f.settle()

	if first.GradingToken != second.GradingToken || first.Score != second.Score {
		t.Errorf("second submit = %+v, want %+v", second, first)
	}
	if n := len(f.issuer.issued()); n != 1 {
		t.Errorf("certificates issued = %d, want 1", n)
	}

	result, err := f.svc.Result(ctx, token)
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if result.GradingToken != first.GradingToken {
		t.Errorf("Result() token = %q, want %q", result.GradingToken, first.GradingToken)
	}

	state, err := f.svc.Advance(ctx, token)
	if err != nil {
		t.Fatalf("Advance() after grading error: %v", err)
	}
	if !state.Finished || state.Result == nil {
		t.Errorf("state after grading = %+v, want result", state)
	}
}

func TestSessionService_ConcurrentSubmit(t *testing.T) {
	f := newSessionFixture(t, 5)
	ctx := context.Background()
	token := f.start(t)
	f.answerAll(t, token, 5)

	const callers = 16
	var (
		wg      sync.WaitGroup
		results = make([]*ResultResponse, callers)
		errs    = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Submit(ctx, token, nil)
		}(i)
	}
	wg.Wait()
	f.settle()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d error: %v", i, errs[i])
		}
		if results[i].GradingToken != results[0].GradingToken {
			t.Errorf("caller %d token = %q, want %q", i, results[i].GradingToken, results[0].GradingToken)
		}
	}
	if n := f.repo.claimCount(); n != 1 {
		t.Errorf("claims = %d, want 1", n)
	}
	if n := f.gradedEvents(); n != 1 {
		t.Errorf("graded events = %d, want 1", n)
	}
	if n := len(f.issuer.issued()); n != 1 {
		t.Errorf("certificates issued = %d, want 1", n)
	}
}

func TestSessionService_ResultBeforeGrading(t *testing.T) {
	f := newSessionFixture(t, 1)
	token := f.start(t)

	if _, err := f.svc.Result(context.Background(), token); !errors.Is(err, ErrSessionNotGraded) {
		t.Errorf("error = %v, want ErrSessionNotGraded", err)
	}
}

func TestSessionService_PublishFailureKeepsGrade(t *testing.T) {
	f := newSessionFixture(t, 2)
	f.publisher.FailWith(errors.New("broker down"))
	token := f.start(t)

	result, err := f.svc.Submit(context.Background(), token, nil)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	f.settle()
	if result.GradingToken == "" || f.repo.session(token).Status != models.SessionGraded {
		t.Errorf("session not graded after publish failure: %+v", result)
	}
}

type stalledPublisher struct {
	release chan struct{}
}

func (p *stalledPublisher) Publish(ctx context.Context, topic string, event *events.Event) error {
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *stalledPublisher) Close() error { return nil }

func TestSessionService_SubmitDoesNotWaitForBroker(t *testing.T) {
	f := newSessionFixture(t, 5)
	stalled := &stalledPublisher{release: make(chan struct{})}
	f.notifier = events.NewAsyncPublisher(stalled, time.Minute, testLogger())

	cfg := DefaultServiceManagerConfig().Exam
	cfg.Location = time.UTC
	translator, err := i18n.New("uz", testLogger())
	if err != nil {
		t.Fatalf("i18n.New() error: %v", err)
	}
	f.svc = NewSessionService(f.repo, nil, testLogger(), validator.New(), Dependencies{
		Storage:      f.store,
		Translator:   translator,
		Notifier:     f.notifier,
		Certificates: f.certificates,
		Rand:         rand.New(rand.NewPCG(1, 2)),
		Now:          fixedClock(fixtureNow),
	}, cfg)

	token := f.start(t)
	f.answerAll(t, token, 5)

	done := make(chan *ResultResponse, 1)
	go func() {
		result, err := f.svc.Submit(context.Background(), token, nil)
		if err != nil {
			t.Errorf("Submit() error: %v", err)
		}
		done <- result
	}()

	select {
	case result := <-done:
		if result == nil || result.Tier != models.TierPass {
			t.Errorf("result = %+v, want pass", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit() waited on the event broker")
	}

	// certificates do not queue behind the stalled event
	f.certificates.Wait()
	if n := len(f.issuer.issued()); n != 1 {
		t.Errorf("certificates issued = %d, want 1", n)
	}

	close(stalled.release)
	f.notifier.Wait()
}
