// Package study builds the prompts behind the study features and runs them
// through the AI gateway: topic notes, rule search, quiz generation and the
// instructor chat.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/ntsa-buddy/internal/ai"
	"github.com/p-n-ai/ntsa-buddy/internal/curriculum"
	"github.com/p-n-ai/ntsa-buddy/internal/platform/cache"
	"github.com/p-n-ai/ntsa-buddy/internal/quiz"
)

// ErrEmptyInput is returned when a required prompt input is blank.
var ErrEmptyInput = errors.New("empty input")

const (
	defaultQuestionCount = 5
	notesMaxTokens       = 2048
	searchMaxTokens      = 512
	quizMaxTokens        = 2048
	chatMaxTokens        = 1024
)

// Config holds dependencies for the study service.
type Config struct {
	AIRouter      *ai.Router
	Cache         cache.ContentStore // optional; generated notes and search answers
	Budget        ai.BudgetChecker   // optional; per-client daily token budget
	Curriculum    *curriculum.Loader // optional; curated notes win over generation
	QuestionCount int                // questions requested per quiz (default 5)
}

// Service runs study requests against the AI gateway.
type Service struct {
	aiRouter      *ai.Router
	cache         cache.ContentStore
	budget        ai.BudgetChecker
	curriculum    *curriculum.Loader
	questionCount int
}

// NewService creates a study service.
func NewService(cfg Config) *Service {
	store := cfg.Cache
	if store == nil {
		store = cache.NopStore{}
	}
	count := cfg.QuestionCount
	if count <= 0 {
		count = defaultQuestionCount
	}
	return &Service{
		aiRouter:      cfg.AIRouter,
		cache:         store,
		budget:        cfg.Budget,
		curriculum:    cfg.Curriculum,
		questionCount: count,
	}
}

// GenerateTopicNotes returns a Markdown study guide for a topic. Curated
// notes from the curriculum are returned as is; generated guides are cached.
func (s *Service) GenerateTopicNotes(ctx context.Context, clientID, topicTitle string) (string, error) {
	title := normalize(topicTitle)
	if title == "" {
		return "", fmt.Errorf("topic title: %w", ErrEmptyInput)
	}

	if s.curriculum != nil {
		if topic, ok := s.curriculum.FindByTitle(title); ok {
			if notes, ok := s.curriculum.GetNotes(topic.ID); ok {
				slog.Debug("serving curated notes", "topic", topic.ID)
				return notes, nil
			}
		}
	}

	key := cacheKey("notes", title)
	if content, ok := s.cached(ctx, key); ok {
		return content, nil
	}

	content, err := s.complete(ctx, clientID, ai.CompletionRequest{
		System:    notesSystemPrompt,
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: notesPrompt(title)}},
		MaxTokens: notesMaxTokens,
		Task:      ai.TaskStudyNotes,
	})
	if err != nil {
		return "", fmt.Errorf("generate notes for %q: %w", title, err)
	}
	if strings.TrimSpace(content) == "" {
		return FallbackNotes, nil
	}

	s.store(ctx, key, content)
	return content, nil
}

// Search answers a free-text question about Kenyan driving rules.
func (s *Service) Search(ctx context.Context, clientID, query string) (string, error) {
	q := normalize(query)
	if q == "" {
		return "", fmt.Errorf("search query: %w", ErrEmptyInput)
	}

	key := cacheKey("search", q)
	if content, ok := s.cached(ctx, key); ok {
		return content, nil
	}

	content, err := s.complete(ctx, clientID, ai.CompletionRequest{
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: searchPrompt(q)}},
		MaxTokens: searchMaxTokens,
		Task:      ai.TaskSearch,
	})
	if err != nil {
		return "", fmt.Errorf("search %q: %w", q, err)
	}
	if strings.TrimSpace(content) == "" {
		return FallbackSearch, nil
	}

	s.store(ctx, key, content)
	return content, nil
}

// GenerateQuiz asks the model for multiple-choice questions on a topic.
// Difficulty is "hard" or "easy"; anything else is treated as "easy". The
// returned questions have passed structural validation.
func (s *Service) GenerateQuiz(ctx context.Context, clientID, topic, difficulty string) ([]quiz.Question, error) {
	t := normalize(topic)
	if t == "" {
		return nil, fmt.Errorf("quiz topic: %w", ErrEmptyInput)
	}
	level := NormalizeDifficulty(difficulty)

	content, err := s.complete(ctx, clientID, ai.CompletionRequest{
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: quizPrompt(t, level, s.questionCount)}},
		MaxTokens: quizMaxTokens,
		Task:      ai.TaskQuiz,
		Schema:    quizSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s quiz on %q: %w", level, t, err)
	}
	if strings.TrimSpace(content) == "" {
		content = "[]"
	}

	questions, err := quiz.ParseQuestions([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("generate %s quiz on %q: %w", level, t, err)
	}
	return questions, nil
}

// Chat sends message to the instructor with the prior conversation.
func (s *Service) Chat(ctx context.Context, clientID, message string, history []HistoryEntry) (string, error) {
	req, err := chatRequest(message, history)
	if err != nil {
		return "", err
	}

	reply, err := s.complete(ctx, clientID, req)
	if err != nil {
		return "", fmt.Errorf("instructor chat: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return FallbackChat, nil
	}
	return reply, nil
}

// ChatStream is Chat with the reply delivered in chunks. The channel ends
// with a Done chunk, or a chunk carrying Error.
func (s *Service) ChatStream(ctx context.Context, clientID, message string, history []HistoryEntry) (<-chan ai.StreamChunk, error) {
	req, err := chatRequest(message, history)
	if err != nil {
		return nil, err
	}
	if err := s.checkBudget(clientID); err != nil {
		return nil, err
	}

	src, err := s.aiRouter.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("instructor chat stream: %w", err)
	}

	out := make(chan ai.StreamChunk)
	go func() {
		defer close(out)

		var reply strings.Builder
		for chunk := range src {
			if chunk.Error != nil {
				emit(ctx, out, ai.StreamChunk{Error: chunk.Error})
				return
			}
			if chunk.Content != "" {
				reply.WriteString(chunk.Content)
				if !emit(ctx, out, ai.StreamChunk{Content: chunk.Content}) {
					return
				}
			}
			if chunk.Done {
				break
			}
		}

		if strings.TrimSpace(reply.String()) == "" {
			if !emit(ctx, out, ai.StreamChunk{Content: FallbackChat}) {
				return
			}
		}
		s.recordUsage(clientID, estimateTokens(req)+len(reply.String())/4)
		emit(ctx, out, ai.StreamChunk{Done: true})
	}()
	return out, nil
}

func chatRequest(message string, history []HistoryEntry) (ai.CompletionRequest, error) {
	msg := strings.TrimSpace(norm.NFC.String(message))
	if msg == "" {
		return ai.CompletionRequest{}, fmt.Errorf("chat message: %w", ErrEmptyInput)
	}
	return ai.CompletionRequest{
		System:    instructorSystemPrompt,
		Messages:  historyMessages(history, msg),
		MaxTokens: chatMaxTokens,
		Task:      ai.TaskChat,
	}, nil
}

// complete runs one budgeted completion and returns the raw text.
func (s *Service) complete(ctx context.Context, clientID string, req ai.CompletionRequest) (string, error) {
	if err := s.checkBudget(clientID); err != nil {
		return "", err
	}

	resp, err := s.aiRouter.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	s.recordUsage(clientID, resp.TotalTokens())
	return resp.Content, nil
}

func (s *Service) checkBudget(clientID string) error {
	if s.budget == nil {
		return nil
	}
	ok, err := s.budget.Check(clientID)
	if err != nil {
		return fmt.Errorf("check budget: %w", err)
	}
	if !ok {
		return ai.ErrBudgetExceeded
	}
	return nil
}

func (s *Service) recordUsage(clientID string, tokens int) {
	if s.budget == nil {
		return
	}
	if err := s.budget.Record(clientID, tokens); err != nil {
		slog.Warn("failed to record token usage", "error", err)
	}
}

func (s *Service) cached(ctx context.Context, key string) (string, bool) {
	content, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("content cache read failed", "key", key, "error", err)
		return "", false
	}
	return content, ok
}

func (s *Service) store(ctx context.Context, key, content string) {
	if err := s.cache.Set(ctx, key, content); err != nil {
		slog.Warn("content cache write failed", "key", key, "error", err)
	}
}

// estimateTokens gives a rough token count for a request (1 token ≈ 4 chars).
func estimateTokens(req ai.CompletionRequest) int {
	total := len(req.System) / 4
	for _, m := range req.Messages {
		total += len(m.Content) / 4
	}
	return total
}

func emit(ctx context.Context, ch chan<- ai.StreamChunk, c ai.StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
