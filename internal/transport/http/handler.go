package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
)

// userIDHeader carries the authenticated subject id, set by the external
// identity gateway in front of this service.
const userIDHeader = "X-User-ID"

// Handler exposes the quiz platform over REST plus a websocket rankings stream.
type Handler struct {
	service  *app.QuizService
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes wires every endpoint onto a ServeMux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/quizzes/active", h.listActiveQuizzes)
	mux.HandleFunc("GET /api/quizzes/{id}", h.getQuiz)
	mux.HandleFunc("POST /api/quizzes", h.createQuiz)
	mux.HandleFunc("POST /api/quizzes/{id}/attempts", h.submitAttempt)
	mux.HandleFunc("GET /api/quizzes/{id}/rankings", h.getRankings)
	mux.HandleFunc("GET /api/users/me/attempts", h.listMyAttempts)
	mux.HandleFunc("POST /api/users/sync", h.syncUser)
	mux.HandleFunc("GET /ws/rankings", h.serveRankingsWS)
	return mux
}

// questionView is a question as shown to a quiz taker: the correct answer
// never leaves the server before submission.
type questionView struct {
	ID       string              `json:"id"`
	Prompt   string              `json:"prompt"`
	Type     domain.QuestionType `json:"type"`
	Options  map[string]string   `json:"options,omitempty"`
	Points   int                 `json:"points"`
	Position int                 `json:"position"`
}

type quizDetailResponse struct {
	domain.Quiz
	Questions []questionView `json:"questions"`
}

func (h *Handler) listActiveQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListActive(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	quiz, questions, err := h.service.GetQuiz(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]questionView, len(questions))
	for i, q := range questions {
		views[i] = questionView{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Type:     q.Type,
			Options:  q.Options,
			Points:   q.PointValue(),
			Position: q.Position,
		}
	}
	writeJSON(w, http.StatusOK, quizDetailResponse{Quiz: quiz, Questions: views})
}

type submitAttemptRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req submitAttemptRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Submit(r.Context(), r.PathValue("id"), userID, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getRankings(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	leaderboard, err := h.service.Rankings(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if leaderboard.Entries == nil {
		leaderboard.Entries = []domain.RankingEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboard)
}

func (h *Handler) listMyAttempts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	attempts, err := h.service.UserAttempts(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if attempts == nil {
		attempts = []domain.AttemptSummary{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

type createQuestionRequest struct {
	Prompt        string            `json:"prompt" validate:"required"`
	Type          string            `json:"type" validate:"required"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer" validate:"required"`
	Points        int               `json:"points"`
}

type createQuizRequest struct {
	Title          string                  `json:"title" validate:"required"`
	Description    string                  `json:"description"`
	Duration       int                     `json:"duration" validate:"required,gt=0"`
	ScheduledStart *time.Time              `json:"scheduledStart"`
	ScheduledEnd   *time.Time              `json:"scheduledEnd"`
	Questions      []createQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req createQuizRequest
	if !h.decode(w, r, &req) {
		return
	}

	draft := domain.QuizDraft{
		Title:          req.Title,
		Description:    req.Description,
		Duration:       req.Duration,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		Questions:      make([]domain.QuestionDraft, len(req.Questions)),
	}
	for i, q := range req.Questions {
		draft.Questions[i] = domain.QuestionDraft{
			Prompt:        q.Prompt,
			Type:          domain.QuestionType(q.Type),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
		}
	}

	quiz, err := h.service.CreateQuiz(r.Context(), userID, draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

type syncUserRequest struct {
	ID        string `json:"id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *Handler) syncUser(w http.ResponseWriter, r *http.Request) {
	var req syncUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.SyncUser(r.Context(), domain.User{
		ID:        req.ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + userIDHeader + " header"})
		return "", false
	}
	return userID, true
}

// decode parses the JSON body and runs struct-tag validation; on failure it
// writes the response itself and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Error()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quiz", Fields: fields})
		return
	}

	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrQuizNotStarted),
		errors.Is(err, domain.ErrQuizExpired),
		errors.Is(err, domain.ErrAlreadyCompleted):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
