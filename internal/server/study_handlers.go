package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/p-n-ai/ntsa-buddy/internal/ai"
	"github.com/p-n-ai/ntsa-buddy/internal/curriculum"
	"github.com/p-n-ai/ntsa-buddy/internal/markdown"
	"github.com/p-n-ai/ntsa-buddy/internal/quiz"
	"github.com/p-n-ai/ntsa-buddy/internal/study"
)

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics := []curriculum.Topic{}
	if s.curriculum != nil {
		topics = s.curriculum.AllTopics()
	}
	writeData(w, http.StatusOK, map[string]any{"topics": topics})
}

func (s *Server) handleGenerateTopic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TopicTitle string `json:"topicTitle"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.TopicTitle) == "" {
		writeError(w, http.StatusBadRequest, "topicTitle is required")
		return
	}

	content, err := s.study.GenerateTopicNotes(r.Context(), clientID(r), body.TopicTitle)
	if err != nil {
		s.studyFailed(w, err, "Error generating topic content")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"content":  content,
		"document": markdown.Render(content),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := s.study.Search(r.Context(), clientID(r), body.Query)
	if err != nil {
		s.studyFailed(w, err, "Search unavailable")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"results":  results,
		"document": markdown.Render(results),
	})
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic      string `json:"topic"`
		Difficulty string `json:"difficulty"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	questions, err := s.study.GenerateQuiz(r.Context(), clientID(r), body.Topic, body.Difficulty)
	if err != nil {
		s.studyFailed(w, err, "Unable to generate quiz questions")
		return
	}
	writeData(w, http.StatusOK, map[string][]quiz.Question{"questions": questions})
}

func (s *Server) handleChatInstructor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string               `json:"message"`
		History []study.HistoryEntry `json:"history"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply, err := s.study.Chat(r.Context(), clientID(r), body.Message, body.History)
	if err != nil {
		s.studyFailed(w, err, msgChatFailed)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"reply":    reply,
		"document": markdown.Render(reply),
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	doc := markdown.Render(body.Content)
	writeData(w, http.StatusOK, map[string]any{
		"document": doc,
		"html":     doc.HTML(),
	})
}

// studyFailed logs err and writes the generic failure for a study call.
func (s *Server) studyFailed(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ai.ErrBudgetExceeded):
		writeError(w, http.StatusTooManyRequests, msgBudgetExceeded)
	default:
		slog.Error("study request failed", "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
