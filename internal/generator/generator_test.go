package generator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cannedBackend struct {
	args     string
	err      error
	lastTool Tool
	prompts  []string
}

func (b *cannedBackend) Name() string { return "canned" }

func (b *cannedBackend) Complete(_ context.Context, _, prompt string) (string, error) {
	b.prompts = append(b.prompts, prompt)
	return b.args, b.err
}

func (b *cannedBackend) CallTool(_ context.Context, _, prompt string, tool Tool) (json.RawMessage, error) {
	b.prompts = append(b.prompts, prompt)
	b.lastTool = tool
	if b.err != nil {
		return nil, b.err
	}
	return json.RawMessage(b.args), nil
}

const validQuizArgs = `{
	"titre": "Les listes Python",
	"question": "Quelle méthode ajoute un élément à la fin d'une liste ?",
	"domaine": "Programmation Python",
	"difficulte": "debutant",
	"options": [
		{"id": "A", "text": "append()", "isCorrect": true},
		{"id": "B", "text": "push()", "isCorrect": false},
		{"id": "C", "text": "add()", "isCorrect": false},
		{"id": "D", "text": "insert_end()", "isCorrect": false}
	],
	"explication": "append() ajoute en fin de liste.",
	"points": 20
}`

func TestQuizGenerator(t *testing.T) {
	backend := &cannedBackend{args: validQuizArgs}
	gen := NewQuizGenerator(backend, testLogger())
	gen.now = func() time.Time { return time.UnixMilli(1700000000000) }
	gen.pick = func(int) int { return 0 }

	quiz, err := gen.CreateQuiz(context.Background())
	if err != nil {
		t.Fatalf("CreateQuiz failed: %v", err)
	}
	if !regexp.MustCompile(`^quiz_1700000000000_[0-9a-z]{9}$`).MatchString(quiz.ID) {
		t.Fatalf("unexpected quiz id %q", quiz.ID)
	}
	if quiz.Difficulte != domain.DifficultyBeginner || len(quiz.Options) != 4 {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}
	if answer, ok := quiz.CorrectOption(); !ok || answer.Text != "append()" {
		t.Fatalf("unexpected correct option: %+v", answer)
	}
	if backend.lastTool.Name != "create_quiz" {
		t.Fatalf("unexpected tool %q", backend.lastTool.Name)
	}
	if !strings.Contains(backend.prompts[0], "Programmation Python") || !strings.Contains(backend.prompts[0], "debutant") {
		t.Fatalf("prompt does not carry domain and difficulty: %q", backend.prompts[0])
	}
}

func TestQuizGeneratorRejectsInvalidQuiz(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"two correct answers", strings.Replace(validQuizArgs, `"isCorrect": false`, `"isCorrect": true`, 1)},
		{"no correct answer", strings.Replace(validQuizArgs, `"isCorrect": true`, `"isCorrect": false`, 1)},
		{"points out of range", strings.Replace(validQuizArgs, `"points": 20`, `"points": 500`, 1)},
		{"unknown difficulty", strings.Replace(validQuizArgs, `"debutant"`, `"expert"`, 1)},
		{"not json", `oops`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewQuizGenerator(&cannedBackend{args: tt.args}, testLogger())
			if _, err := gen.CreateQuiz(context.Background()); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestQuizGeneratorPropagatesBackendError(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen := NewQuizGenerator(&cannedBackend{err: boom}, testLogger())
	if _, err := gen.CreateQuiz(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestMemeGenerator(t *testing.T) {
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		form = map[string]string{}
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"url":"https://i.imgflip.com/x.jpg","page_url":"https://imgflip.com/i/x"}}`))
	}))
	defer server.Close()

	backend := &cannedBackend{args: `{"template":"181913649","text0":"Tester en local","text1":"Tester en production"}`}
	captioner := NewImgflipClient(server.Client(), server.URL, "user", "secret")
	gen := NewMemeGenerator(backend, captioner, testLogger())

	meme, err := gen.Generate(context.Background(), MemeTemplates[0], MemeTopics[0])
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if meme.URL != "https://i.imgflip.com/x.jpg" || meme.Template != "Drake Hotline Bling" {
		t.Fatalf("unexpected meme: %+v", meme)
	}
	if form["template_id"] != "181913649" || form["boxes[1][text]"] != "Tester en production" || form["username"] != "user" {
		t.Fatalf("unexpected form: %v", form)
	}

	required, _ := backend.lastTool.Parameters["required"].([]string)
	if strings.Join(required, ",") != "template,text0,text1" {
		t.Fatalf("unexpected required fields: %v", required)
	}
}

func TestImgflipFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error_message":"No texts specified."}`))
	}))
	defer server.Close()

	client := NewImgflipClient(server.Client(), server.URL, "user", "secret")
	if _, err := client.Caption(context.Background(), "61544", nil); err == nil || !strings.Contains(err.Error(), "No texts specified.") {
		t.Fatalf("expected imgflip error, got %v", err)
	}
}

func TestOpenAIBackendCallTool(t *testing.T) {
	var captured struct {
		Model      string `json:"model"`
		ToolChoice struct {
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tool_choice"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "create_quiz", "arguments": "{\"titre\":\"T\"}"}
					}]
				}
			}]
		}`))
	}))
	defer server.Close()

	backend, err := NewOpenAIBackend("test-key", server.URL, "gpt-4o")
	if err != nil {
		t.Fatalf("NewOpenAIBackend failed: %v", err)
	}
	raw, err := backend.CallTool(context.Background(), "system", "prompt", quizTool())
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if string(raw) != `{"titre":"T"}` {
		t.Fatalf("unexpected arguments %s", raw)
	}
	if captured.Model != "gpt-4o" || captured.ToolChoice.Function.Name != "create_quiz" {
		t.Fatalf("unexpected request: %+v", captured)
	}
}

func TestNewOpenAIBackendRequiresKey(t *testing.T) {
	if _, err := NewOpenAIBackend(" ", "", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
