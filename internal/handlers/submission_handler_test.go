package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codecom/codecom-api/config"
	"github.com/codecom/codecom-api/internal/intake"
	"github.com/codecom/codecom-api/internal/middleware"
	"github.com/codecom/codecom-api/internal/models"
	"github.com/codecom/codecom-api/internal/render"
	"github.com/codecom/codecom-api/internal/services"
	"github.com/codecom/codecom-api/pkg/mailer"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures every message instead of dialing a relay
type recordingSender struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg *mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingSender) Verify(ctx context.Context) error {
	return r.err
}

func (r *recordingSender) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

var testLimits = intake.Limits{MaxFileBytes: 1024, MaxFieldBytes: 256}

func newTestRouter(t *testing.T, sender mailer.Sender, middlewares ...gin.HandlerFunc) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		Mail: config.MailConfig{
			Username:           "team@codecom.dev",
			Password:           "app-password",
			SendTimeoutSeconds: 5,
		},
	}
	renderer, err := render.NewRenderer(render.WithClock(func() time.Time {
		return time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)

	service := services.NewSubmissionService(sender, renderer, cfg, nil)
	handler := NewSubmissionHandler(service, testLimits)

	router := gin.New()
	for _, m := range middlewares {
		router.Use(m)
	}
	router.HandleMethodNotAllowed = true
	router.NoMethod(MethodNotAllowed)

	api := router.Group("/api")
	api.POST("/submit-application", handler.SubmitApplication)
	api.OPTIONS("/submit-application", handler.Preflight)
	api.POST("/submit-feedback", handler.SubmitFeedback)
	api.OPTIONS("/submit-feedback", handler.Preflight)
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) models.SubmissionResult {
	t.Helper()
	var result models.SubmissionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

type multipartFile struct {
	field, filename, contentType string
	content                      []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...multipartFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmitFeedback_Success(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/api/submit-feedback", map[string]any{
		"name": "Ada", "email": "a@x.com", "rating": 5, "feedback": "Great!",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	result := decodeResult(t, w)
	assert.True(t, result.Success)
	assert.Equal(t, FeedbackSuccessMessage, result.Message)

	require.Equal(t, 1, sender.calls())
	assert.Equal(t, "New Feedback: 5★ from Ada", sender.sent[0].Subject)
	assert.Equal(t, "a@x.com", sender.sent[0].ReplyTo)
}

func TestSubmitFeedback_MissingField(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/api/submit-feedback", map[string]any{
		"name": "Ada", "email": "a@x.com", "rating": 5,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Please fill in all required fields."}`, w.Body.String())
	assert.Zero(t, sender.calls())
}

func TestSubmitFeedback_MalformedJSONIsValidationFailure(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit-feedback", strings.NewReader(`{"name":"Ada",`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, sender.calls())
}

func TestSubmitFeedback_Urlencoded(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender)

	form := url.Values{
		"name":     {"Ada"},
		"email":    {"a@x.com"},
		"rating":   {"4"},
		"feedback": {"Solid work"},
		"company":  {"Analytical Engines Ltd"},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit-feedback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, sender.calls())
	assert.Contains(t, sender.sent[0].HTML, "Analytical Engines Ltd")
	assert.Contains(t, sender.sent[0].HTML, "4/5 Stars")
}

func TestSubmitApplication_MultipartWithCV(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender)

	cv := []byte{0x25, 0x50, 0x00}
	req := multipartRequest(t, "/api/submit-application", map[string]string{
		"name":       "Ada Lovelace",
		"email":      "ada@example.com",
		"position":   "Backend Engineer",
		"motivation": "Engines",
	}, multipartFile{field: "cv", filename: "cv.pdf", contentType: "application/pdf", content: cv})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ApplicationSuccessMessage, decodeResult(t, w).Message)

	require.Equal(t, 1, sender.calls())
	msg := sender.sent[0]
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "cv.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, cv, msg.Attachments[0].Content)
	assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
	assert.Equal(t, "New Application: Backend Engineer - Ada Lovelace", msg.Subject)
}

func TestSubmitApplication_IgnoresOtherFiles(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender)

	req := multipartRequest(t, "/api/submit-application", map[string]string{
		"name": "Ada", "email": "ada@example.com", "position": "QA", "motivation": "Yes",
	}, multipartFile{field: "portfolio_pdf", filename: "p.pdf", contentType: "application/pdf", content: []byte("x")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, sender.calls())
	assert.Empty(t, sender.sent[0].Attachments)
}

func TestSubmitApplication_FileTooLarge(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender)

	req := multipartRequest(t, "/api/submit-application", map[string]string{
		"name": "Ada", "email": "ada@example.com", "position": "QA", "motivation": "Yes",
	}, multipartFile{field: "cv", filename: "huge.pdf", contentType: "application/pdf", content: make([]byte, testLimits.MaxFileBytes+1)})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	result := decodeResult(t, w)
	assert.False(t, result.Success)
	assert.Equal(t, TooLargeMessage, result.Message)
	assert.Zero(t, sender.calls())
}

func TestSubmitApplication_MalformedMultipart(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit-application", strings.NewReader("--xyz\r\nbroken"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ApplicationFailedMessage, decodeResult(t, w).Message)
	assert.Zero(t, sender.calls())
}

func TestSubmitApplication_RelayFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("421 service not available")}
	router := newTestRouter(t, sender)

	w := postJSON(router, "/api/submit-application", map[string]any{
		"name": "Ada", "email": "ada@example.com", "position": "QA", "motivation": "Yes",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t,
		`{"success":false,"message":"Failed to submit application. Please try again or email us directly."}`,
		w.Body.String())
	assert.NotContains(t, w.Body.String(), "421")
	assert.Equal(t, 1, sender.calls())
}

func TestSubmit_NotConfigured(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/api/submit-application", "/api/submit-feedback"} {
		t.Run(path, func(t *testing.T) {
			w := postJSON(router, path, map[string]any{
				"name": "Ada", "email": "a@x.com", "rating": 5, "feedback": "Great!",
				"position": "QA", "motivation": "Yes",
			})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			result := decodeResult(t, w)
			assert.False(t, result.Success)
			assert.Equal(t, NotConfiguredMessage, result.Message)
		})
	}
}

func TestSubmit_MethodGuard(t *testing.T) {
	router := newTestRouter(t, &recordingSender{})

	for _, path := range []string{"/api/submit-application", "/api/submit-feedback"} {
		t.Run(path, func(t *testing.T) {
			for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
				w := httptest.NewRecorder()
				router.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))

				assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
				assert.JSONEq(t, `{"success":false,"message":"Method Not Allowed"}`, w.Body.String())
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, path, http.NoBody))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"ok":true}`, w.Body.String())
		})
	}
}

func TestSubmit_PreflightShapesBehindCORS(t *testing.T) {
	router := newTestRouter(t, &recordingSender{},
		middleware.CORSMiddleware(config.ServerConfig{AllowedOrigins: []string{"*"}}))

	for _, path := range []string{"/api/submit-application", "/api/submit-feedback"} {
		t.Run(path, func(t *testing.T) {
			// Browser preflight: answered by the CORS layer with an empty 200
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodOptions, path, http.NoBody)
			req.Header.Set("Origin", "https://codecom.dev")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Body.String())
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

			// Direct OPTIONS without Origin: reaches the handler
			w = httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, path, http.NoBody))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"ok":true}`, w.Body.String())
		})
	}
}

func TestSubmit_CrossOriginPostGetsCORSHeaders(t *testing.T) {
	sender := &recordingSender{}
	router := newTestRouter(t, sender,
		middleware.CORSMiddleware(config.ServerConfig{AllowedOrigins: []string{"*"}}))

	data, _ := json.Marshal(map[string]any{"name": "Ada", "email": "a@x.com", "rating": 5, "feedback": "Great!"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit-feedback", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://codecom.dev")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1, sender.calls())
}
