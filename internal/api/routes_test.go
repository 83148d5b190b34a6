package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualoop/adapters/llm"
	"github.com/satriahrh/lingualoop/adapters/memory"
	"github.com/satriahrh/lingualoop/adapters/tts"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/internal/audio"
	"github.com/satriahrh/lingualoop/internal/auth"
	"github.com/satriahrh/lingualoop/internal/pattern"
	"github.com/satriahrh/lingualoop/usecase"
)

const (
	adminKey   = "admin-secret"
	lessonBody = "Good morning to you all\nWhere is the train station\nI would like some coffee\nThank you very much indeed\n"
)

type testServer struct {
	e       *echo.Echo
	enVoice *entities.Voice
	esVoice *entities.Voice
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	baseDir := t.TempDir()

	en := &entities.Language{Name: "English", Tag: "en"}
	es := &entities.Language{Name: "Spanish", Tag: "es"}
	for _, l := range []*entities.Language{en, es} {
		if err := store.Languages.Create(ctx, l); err != nil {
			t.Fatalf("create language: %v", err)
		}
	}
	ts := &testServer{
		enVoice: &entities.Voice{ShortName: "en-voice", LanguageID: en.ID},
		esVoice: &entities.Voice{ShortName: "es-voice", LanguageID: es.ID},
	}
	for _, v := range []*entities.Voice{ts.enVoice, ts.esVoice} {
		if err := store.Voices.Create(ctx, v); err != nil {
			t.Fatalf("create voice: %v", err)
		}
	}
	if _, err := audio.GeneratePauses(baseDir); err != nil {
		t.Fatalf("GeneratePauses: %v", err)
	}

	patterns, err := pattern.Default()
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}
	tokens, err := auth.NewTokenService("test-secret", 0, store.Tokens)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	translator := llm.NewMockTranslator("en", logger)
	languages := usecase.NewLanguageCache(store.Languages, 0)
	translations := usecase.NewTranslationService(store, translator, languages, logger)
	speech := usecase.NewSpeechService(tts.NewMockTextToSpeech(logger), baseDir, 4, logger)

	ts.e = echo.New()
	InitRoutes(ts.e, Services{
		Lessons:   usecase.NewLessonService(store, translator, languages, t.TempDir(), 100, logger),
		Audio:     usecase.NewAudioService(store, languages, translations, speech, patterns, baseDir, t.TempDir(), logger),
		Languages: languages,
		Tokens:    tokens,
		Store:     store,
		Patterns:  patterns,
		AdminKey:  adminKey,
	}, logger)
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if name != "" {
		if err := w.WriteField("name", name); err != nil {
			t.Fatal(err)
		}
	}
	part, err := w.CreateFormFile("file", "lesson.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func (ts *testServer) issueToken(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens", nil)
	req.Header.Set(adminKeyHeader, adminKey)
	rec := ts.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 issuing token, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return resp.Token
}

func (ts *testServer) createLesson(t *testing.T, name string) *entities.Lesson {
	t.Helper()
	rec := ts.do(uploadRequest(t, "/api/v1/lessons", name, lessonBody))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var lesson entities.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &lesson); err != nil {
		t.Fatalf("decode lesson: %v", err)
	}
	return &lesson
}

func audioRequest(t *testing.T, token string, body usecase.GenerateRequest) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/audio", bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestCatalog(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/languages", nil))
	var languages []entities.Language
	if err := json.Unmarshal(rec.Body.Bytes(), &languages); err != nil || len(languages) != 2 {
		t.Errorf("Expected 2 languages, got %s (%v)", rec.Body.String(), err)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/voices?language=es", nil))
	var voices []entities.Voice
	if err := json.Unmarshal(rec.Body.Bytes(), &voices); err != nil || len(voices) != 1 || voices[0].ShortName != "es-voice" {
		t.Errorf("Expected es-voice, got %s (%v)", rec.Body.String(), err)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/voices?language=fr", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown language, got %d", rec.Code)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/patterns", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "standard") {
		t.Errorf("Expected standard pattern, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateLesson(t *testing.T) {
	ts := newTestServer(t)
	lesson := ts.createLesson(t, "Travel")
	if lesson.NumPhrases != 4 {
		t.Errorf("Expected 4 phrases, got %d", lesson.NumPhrases)
	}

	rec := ts.do(uploadRequest(t, "/api/v1/lessons", "Travel", lessonBody))
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "duplicate_name" {
		t.Errorf("Expected duplicate_name, got %q", resp.Error)
	}

	rec = ts.do(uploadRequest(t, "/api/v1/lessons", "", lessonBody))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without name, got %d", rec.Code)
	}

	rec = ts.do(uploadRequest(t, "/api/v1/lessons", "Big", strings.Repeat("word ", 20000)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for oversized upload, got %d", rec.Code)
	}
}

func TestParse(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(uploadRequest(t, "/api/v1/parse", "", lessonBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "lesson.zip") {
		t.Errorf("Expected lesson.zip attachment, got %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("Expected a zip body")
	}
}

func TestIssueToken_RequiresAdminKey(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens", nil)
	req.Header.Set(adminKeyHeader, "wrong")
	if rec := ts.do(req); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func catalogRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/yaml")
	req.Header.Set(adminKeyHeader, key)
	return req
}

func TestApplyCatalog(t *testing.T) {
	ts := newTestServer(t)

	// fill the language cache, which never expires in tests
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/languages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	seed := "languages:\n  - name: French\n    tag: fr\n  - name: English\n    tag: en\nvoices:\n  - short_name: fr-FR-Denise\n    language: fr\n"

	if rec := ts.do(catalogRequest("wrong", seed)); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong admin key, got %d", rec.Code)
	}

	rec = ts.do(catalogRequest(adminKey, seed))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode catalog response: %v", err)
	}
	if resp.LanguagesCreated != 1 || resp.VoicesCreated != 1 || resp.Existing != 1 {
		t.Errorf("Unexpected catalog result %+v", resp)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/voices?language=fr", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "fr-FR-Denise") {
		t.Errorf("Expected new language to be served at once, got %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(catalogRequest(adminKey, "voices:\n  - language: fr\n  - short_name: x\n"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for invalid seed, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); len(resp.Errors) != 2 {
		t.Errorf("Expected 2 listed errors, got %v", resp.Errors)
	}
}

func TestGenerateAudio(t *testing.T) {
	ts := newTestServer(t)
	lesson := ts.createLesson(t, "Travel")
	body := usecase.GenerateRequest{
		LessonID:    lesson.ID,
		FromVoiceID: ts.enVoice.ID,
		ToVoiceID:   ts.esVoice.ID,
		Pattern:     "standard",
		Pause:       3,
	}

	if rec := ts.do(audioRequest(t, "", body)); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
	if rec := ts.do(audioRequest(t, "not-a-token", body)); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for forged token, got %d", rec.Code)
	}

	token := ts.issueToken(t)

	invalid := body
	invalid.Pause = 2
	invalid.Pattern = "missing"
	rec := ts.do(audioRequest(t, token, invalid))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); len(resp.Errors) != 2 {
		t.Errorf("Expected 2 listed errors, got %v", resp.Errors)
	}

	rec = ts.do(audioRequest(t, token, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(got, "Travel_en_es.zip") {
		t.Errorf("Unexpected attachment %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("Expected a zip body")
	}

	rec = ts.do(audioRequest(t, token, body))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for reused token, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "token_used" {
		t.Errorf("Expected token_used, got %q", resp.Error)
	}
}
