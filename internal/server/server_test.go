package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/ntsa-buddy/internal/ai"
	"github.com/p-n-ai/ntsa-buddy/internal/curriculum"
	"github.com/p-n-ai/ntsa-buddy/internal/quiz"
	"github.com/p-n-ai/ntsa-buddy/internal/server"
	"github.com/p-n-ai/ntsa-buddy/internal/study"
)

const twoQuestions = `[
  {"question":"What does a red octagon mean?","options":["Stop","Yield","Park"],"correctAnswerIndex":0,"explanation":"It is a stop sign."},
  {"question":"Who gives way at a roundabout?","options":["Traffic on it","Traffic entering"],"correctAnswerIndex":1,"explanation":"Entering traffic yields."}
]`

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type testEnv struct {
	handler  http.Handler
	mock     *ai.MockProvider
	events   *quiz.MemoryEventLogger
	attempts *quiz.MemoryAttemptStore
	budget   *ai.InMemoryBudget
}

func newTestEnv(t *testing.T, response string) *testEnv {
	t.Helper()

	mock := ai.NewMockProvider(response)
	router := ai.NewRouter()
	router.Register("mock", mock)

	loader, err := curriculum.NewLoader("")
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	budget := ai.NewInMemoryBudget(0)

	env := &testEnv{
		mock:     mock,
		events:   quiz.NewMemoryEventLogger(),
		attempts: quiz.NewMemoryAttemptStore(),
		budget:   budget,
	}
	srv := server.New(server.Config{
		Study: study.NewService(study.Config{
			AIRouter:   router,
			Budget:     budget,
			Curriculum: loader,
		}),
		Curriculum:     loader,
		Sessions:       quiz.NewRegistry(time.Hour),
		Attempts:       env.attempts,
		Events:         env.events,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8788"},
		BodyLimit:      1 << 10,
		Readiness:      map[string]server.HealthChecker{"ai": router},
	})
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")

	for _, path := range []string{"/api/health", "/healthz"} {
		rec, body := env.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
		if !body.Success || body.Message != "Backend running 🚀" {
			t.Errorf("%s body = %+v", path, body)
		}
	}
}

func TestReady(t *testing.T) {
	env := newTestEnv(t, "")
	rec, body := env.do(t, http.MethodGet, "/api/ready", "")
	if rec.Code != http.StatusOK || !body.Success {
		t.Errorf("ready = %d %+v", rec.Code, body)
	}

	env.mock.Err = errors.New("down")
	rec, body = env.do(t, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable || body.Success {
		t.Errorf("not ready = %d %+v", rec.Code, body)
	}
}

func TestTopics(t *testing.T) {
	env := newTestEnv(t, "")
	rec, body := env.do(t, http.MethodGet, "/api/topics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var data struct {
		Topics []curriculum.Topic `json:"topics"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Topics) == 0 || data.Topics[0].ID == "" || data.Topics[0].Icon == "" {
		t.Errorf("topics = %+v", data.Topics)
	}
}

func TestStudyEndpoints_Validation(t *testing.T) {
	env := newTestEnv(t, "unused")

	tests := []struct {
		path    string
		body    string
		wantErr string
	}{
		{"/api/generateTopic", `{}`, "topicTitle is required"},
		{"/api/generateTopic", `{"topicTitle":"   "}`, "topicTitle is required"},
		{"/api/generateTopic", ``, "topicTitle is required"},
		{"/api/search", `{"query":""}`, "query is required"},
		{"/api/generateQuiz", `{"difficulty":"hard"}`, "topic is required"},
		{"/api/chatInstructor", `{"message":" ","history":[]}`, "Message is required"},
		{"/api/search", `{"query":`, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			rec, body := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if body.Success || body.Error != tt.wantErr {
				t.Errorf("body = %+v, want error %q", body, tt.wantErr)
			}
		})
	}
	if env.mock.CallCount() != 0 {
		t.Errorf("provider called %d times on invalid input", env.mock.CallCount())
	}
}

func TestStudyEndpoints_Success(t *testing.T) {
	env := newTestEnv(t, "## Quick Summary\n- Stop at **red**")

	tests := []struct {
		path    string
		body    string
		textKey string
	}{
		{"/api/generateTopic", `{"topicTitle":"Overtaking"}`, "content"},
		{"/api/search", `{"query":"speed limit"}`, "results"},
		{"/api/chatInstructor", `{"message":"hi","history":[{"role":"user","parts":[{"text":"hi"}]}]}`, "reply"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusOK || !body.Success {
				t.Fatalf("status = %d, body = %+v", rec.Code, body)
			}
			var data map[string]json.RawMessage
			if err := json.Unmarshal(body.Data, &data); err != nil {
				t.Fatal(err)
			}
			var text string
			json.Unmarshal(data[tt.textKey], &text)
			if text != env.mock.Response {
				t.Errorf("%s = %q", tt.textKey, text)
			}
			if !bytes.Contains(data["document"], []byte(`"kind":"header"`)) {
				t.Errorf("document = %s", data["document"])
			}
		})
	}
}

func TestStudyEndpoints_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, "")
	env.mock.Err = errors.New("upstream exploded: secret detail")

	tests := []struct {
		path    string
		body    string
		wantErr string
	}{
		{"/api/generateTopic", `{"topicTitle":"Overtaking"}`, "Error generating topic content"},
		{"/api/search", `{"query":"speed limit"}`, "Search unavailable"},
		{"/api/generateQuiz", `{"topic":"Road Signs"}`, "Unable to generate quiz questions"},
		{"/api/chatInstructor", `{"message":"hi"}`, "Failed to reach the instructor. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rec.Code)
			}
			if body.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", body.Error, tt.wantErr)
			}
			if strings.Contains(rec.Body.String(), "secret detail") {
				t.Error("internal error text leaked to client")
			}
		})
	}
}

func TestGenerateQuiz(t *testing.T) {
	env := newTestEnv(t, twoQuestions)

	rec, body := env.do(t, http.MethodPost, "/api/generateQuiz", `{"topic":"Road Signs","difficulty":"hard"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Questions []quiz.Question `json:"questions"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Questions) != 2 || data.Questions[0].Explanation == "" {
		t.Errorf("questions = %+v", data.Questions)
	}
}

func TestGenerateQuiz_EmptyModelOutput(t *testing.T) {
	env := newTestEnv(t, "")
	rec, body := env.do(t, http.MethodPost, "/api/generateQuiz", `{"topic":"Road Signs"}`)
	if rec.Code != http.StatusInternalServerError || body.Error != "Unable to generate quiz questions" {
		t.Errorf("got %d %+v", rec.Code, body)
	}
}

func TestBudgetExceeded(t *testing.T) {
	env := newTestEnv(t, "answer")
	env.budget.SetBudget("learner-1", 1)

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"speed"}`))
		r.Header.Set(server.ClientIDHeader, "learner-1")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, r)
		return rec
	}
	if rec := req(); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := req(); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", rec.Code)
	}
}

func TestRender(t *testing.T) {
	env := newTestEnv(t, "")
	rec, body := env.do(t, http.MethodPost, "/api/render", `{"content":"## Title\n**bold** <b>"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var data struct {
		HTML string `json:"html"`
	}
	json.Unmarshal(body.Data, &data)
	if !strings.Contains(data.HTML, "<h2") || !strings.Contains(data.HTML, "&lt;b&gt;") {
		t.Errorf("html = %q", data.HTML)
	}
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		method  string
		path    string
		status  int
		wantErr string
	}{
		{http.MethodGet, "/api/search", http.StatusMethodNotAllowed, "Method not allowed"},
		{http.MethodPut, "/api/generateQuiz", http.StatusMethodNotAllowed, "Method not allowed"},
		{http.MethodPatch, "/api/quiz/sessions/abc", http.StatusMethodNotAllowed, "Method not allowed"},
		{http.MethodGet, "/api/unknown", http.StatusNotFound, "API route not found"},
		{http.MethodPost, "/api/topics/extra", http.StatusNotFound, "API route not found"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec, body := env.do(t, tt.method, tt.path, "")
			if rec.Code != tt.status || body.Error != tt.wantErr {
				t.Errorf("got %d %q, want %d %q", rec.Code, body.Error, tt.status, tt.wantErr)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unknown origin = %q", got)
	}
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t, "")
	big := `{"content":"` + strings.Repeat("a", 2<<10) + `"}`
	rec, body := env.do(t, http.MethodPost, "/api/render", big)
	if rec.Code != http.StatusRequestEntityTooLarge || body.Error != "Request body too large" {
		t.Errorf("got %d %+v", rec.Code, body)
	}
}

type sessionView struct {
	ID           string `json:"id"`
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	Phase        string `json:"phase"`
	CurrentIndex int    `json:"currentIndex"`
	Total        int    `json:"total"`
	Score        int    `json:"score"`
	Question     *struct {
		Question           string   `json:"question"`
		Options            []string `json:"options"`
		CorrectAnswerIndex *int     `json:"correctAnswerIndex"`
		Explanation        string   `json:"explanation"`
	} `json:"question"`
	SelectedOption *int  `json:"selectedOption"`
	IsCorrect      *bool `json:"isCorrect"`
	Result         *struct {
		Score   int     `json:"score"`
		Total   int     `json:"total"`
		Percent float64 `json:"percent"`
		Passed  bool    `json:"passed"`
		Message string  `json:"message"`
	} `json:"result"`
}

func decodeView(t *testing.T, body envelope) sessionView {
	t.Helper()
	var v sessionView
	if err := json.Unmarshal(body.Data, &v); err != nil {
		t.Fatalf("decode session view: %v (%s)", err, body.Data)
	}
	return v
}

func TestQuizSession_Flow(t *testing.T) {
	env := newTestEnv(t, twoQuestions)

	rec, body := env.do(t, http.MethodPost, "/api/quiz/sessions", `{}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	v := decodeView(t, body)
	if v.Topic != study.MockExamTopic || v.Difficulty != "easy" {
		t.Errorf("topic/difficulty = %q/%q", v.Topic, v.Difficulty)
	}
	if v.Phase != "unrevealed" || v.Total != 2 || v.Question == nil {
		t.Fatalf("view = %+v", v)
	}
	if v.Question.CorrectAnswerIndex != nil || v.Question.Explanation != "" {
		t.Error("answer visible before reveal")
	}
	base := "/api/quiz/sessions/" + v.ID

	// Advance before answering is ignored.
	_, body = env.do(t, http.MethodPost, base+"/advance", "")
	if v := decodeView(t, body); v.Phase != "unrevealed" || v.CurrentIndex != 0 {
		t.Errorf("advance before reveal changed state: %+v", v)
	}

	// Q1 answered correctly.
	_, body = env.do(t, http.MethodPost, base+"/answer", `{"optionIndex":0}`)
	v = decodeView(t, body)
	if v.Phase != "revealed" || v.Score != 1 || v.IsCorrect == nil || !*v.IsCorrect {
		t.Errorf("after correct answer: %+v", v)
	}
	if v.Question.CorrectAnswerIndex == nil || *v.Question.CorrectAnswerIndex != 0 || v.Question.Explanation == "" {
		t.Error("answer hidden after reveal")
	}

	// A second submit is a no-op.
	_, body = env.do(t, http.MethodPost, base+"/answer", `{"optionIndex":1}`)
	if v := decodeView(t, body); v.Score != 1 || *v.SelectedOption != 0 {
		t.Errorf("resubmit changed state: %+v", v)
	}

	env.do(t, http.MethodPost, base+"/advance", "")

	// Q2 answered wrongly.
	_, body = env.do(t, http.MethodPost, base+"/answer", `{"optionIndex":0}`)
	v = decodeView(t, body)
	if v.CurrentIndex != 1 || v.Score != 1 || *v.IsCorrect {
		t.Errorf("after wrong answer: %+v", v)
	}

	_, body = env.do(t, http.MethodPost, base+"/advance", "")
	v = decodeView(t, body)
	if v.Phase != "completed" || v.Result == nil {
		t.Fatalf("not completed: %+v", v)
	}
	if v.Result.Score != 1 || v.Result.Total != 2 || v.Result.Passed || v.Result.Message != "Keep studying, you can do better!" {
		t.Errorf("result = %+v", v.Result)
	}

	// Completed sessions are frozen and recorded once.
	env.do(t, http.MethodPost, base+"/advance", "")
	attempts, _ := env.attempts.RecentAttempts(context.Background(), 0)
	if len(attempts) != 1 || attempts[0].Score != 1 || attempts[0].SessionID != v.ID {
		t.Errorf("attempts = %+v", attempts)
	}

	var types []string
	for _, e := range env.events.Events() {
		types = append(types, e.EventType)
	}
	want := []string{quiz.EventStarted, quiz.EventAnswered, quiz.EventAnswered, quiz.EventCompleted}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", types, want)
	}
}

func TestQuizSession_ProvidedQuestions(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodPost, "/api/quiz/sessions",
		`{"topic":"Road Signs","difficulty":"hard","questions":`+twoQuestions+`}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if v := decodeView(t, body); v.Topic != "Road Signs" || v.Difficulty != "hard" {
		t.Errorf("view = %+v", v)
	}
	if env.mock.CallCount() != 0 {
		t.Error("provider called although questions were supplied")
	}
}

func TestQuizSession_Errors(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodPost, "/api/quiz/sessions", `{"questions":[]}`)
	if rec.Code != http.StatusBadRequest || body.Error != "Invalid quiz questions" {
		t.Errorf("empty questions: %d %+v", rec.Code, body)
	}

	rec, body = env.do(t, http.MethodPost, "/api/quiz/sessions",
		`{"questions":[{"question":"q","options":["a","b"],"correctAnswerIndex":5,"explanation":"e"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad index: %d %+v", rec.Code, body)
	}

	for _, path := range []string{"/api/quiz/sessions/missing", "/api/quiz/sessions/missing/advance"} {
		method := http.MethodGet
		if strings.HasSuffix(path, "advance") {
			method = http.MethodPost
		}
		rec, body = env.do(t, method, path, "")
		if rec.Code != http.StatusNotFound || body.Error != "Quiz session not found" {
			t.Errorf("%s: %d %+v", path, rec.Code, body)
		}
	}

	_, body = env.do(t, http.MethodPost, "/api/quiz/sessions", `{"questions":`+twoQuestions+`}`)
	base := "/api/quiz/sessions/" + decodeView(t, body).ID

	for _, answer := range []string{`{}`, `{"optionIndex":3}`, `{"optionIndex":-1}`} {
		rec, _ := env.do(t, http.MethodPost, base+"/answer", answer)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("answer %s status = %d, want 400", answer, rec.Code)
		}
	}

	rec, _ = env.do(t, http.MethodDelete, base, "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec, _ = env.do(t, http.MethodGet, base, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestAttempts(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	for i, score := range []int{3, 5} {
		env.attempts.SaveAttempt(ctx, quiz.Attempt{
			SessionID:   "s",
			Topic:       "Road Signs",
			Difficulty:  "easy",
			Score:       score,
			Total:       5,
			CompletedAt: time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}

	rec, body := env.do(t, http.MethodGet, "/api/quiz/attempts?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var data struct {
		Attempts []quiz.Attempt `json:"attempts"`
	}
	json.Unmarshal(body.Data, &data)
	if len(data.Attempts) != 1 || data.Attempts[0].Score != 5 {
		t.Errorf("attempts = %+v", data.Attempts)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/quiz/attempts.xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(quiz.AttemptsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("rows = %d, want header + 2", len(rows))
	}
}

func TestChatWebsocket(t *testing.T) {
	env := newTestEnv(t, "")
	env.mock.Chunks = []string{"Keep ", "left."}

	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/chat/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	type frame struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	readUntilDone := func() []frame {
		var frames []frame
		for {
			var f frame
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			frames = append(frames, f)
			if f.Type != "chunk" {
				return frames
			}
		}
	}

	if err := wsjson.Write(ctx, conn, map[string]string{"message": ""}); err != nil {
		t.Fatal(err)
	}
	if frames := readUntilDone(); frames[0].Type != "error" || frames[0].Text != "Message is required" {
		t.Errorf("blank message frames = %+v", frames)
	}

	if err := wsjson.Write(ctx, conn, map[string]string{"message": "Which side?"}); err != nil {
		t.Fatal(err)
	}
	frames := readUntilDone()
	if len(frames) != 3 || frames[2].Type != "done" || frames[2].Text != "Keep left." {
		t.Errorf("frames = %+v", frames)
	}

	if err := wsjson.Write(ctx, conn, map[string]string{"message": "Why?"}); err != nil {
		t.Fatal(err)
	}
	readUntilDone()
	req := env.mock.LastRequest
	if len(req.Messages) != 3 || req.Messages[1].Content != "Keep left." {
		t.Errorf("connection history not carried: %+v", req.Messages)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestChatWebsocket_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, "")
	env.mock.Err = errors.New("down")

	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/chat/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	wsjson.Write(ctx, conn, map[string]string{"message": "hello"})
	var f struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatal(err)
	}
	if f.Type != "error" || f.Text != "Failed to reach the instructor. Please try again." {
		t.Errorf("frame = %+v", f)
	}
}

func TestRateLimit(t *testing.T) {
	mock := ai.NewMockProvider("answer")
	router := ai.NewRouter()
	router.Register("mock", mock)
	h := server.New(server.Config{
		Study:     study.NewService(study.Config{AIRouter: router}),
		RateLimit: 2,
	}).Handler()

	search := func(client string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"speed"}`))
		r.Header.Set(server.ClientIDHeader, client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	for i := range 2 {
		if code := search("a"); code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, code)
		}
	}
	if code := search("a"); code != http.StatusTooManyRequests {
		t.Errorf("over-limit status = %d, want 429", code)
	}
	if code := search("b"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}
}
