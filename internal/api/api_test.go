package api

import (
	"alcyxob/workout-tracker/internal/metrics"
	"alcyxob/workout-tracker/internal/repository/memory"
	"alcyxob/workout-tracker/internal/service"
	"alcyxob/workout-tracker/internal/storage"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testSecret = "test-secret"
	testIssuer = "https://identity.test"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type testAPI struct {
	router  *gin.Engine
	files   *storage.MemoryStorage
	metrics *metrics.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	repos := memory.NewStore().Repositories()
	files := storage.NewMemoryStorage("https://files.test")
	images := service.NewImageURLs(files, time.Hour)
	templateService := service.NewTemplateService(repos.Users, repos.Templates, repos.TemplateExercises, files, images)
	sessionService := service.NewSessionService(
		repos.Users, repos.Templates, repos.TemplateExercises,
		repos.Sessions, repos.SessionExercises, repos.Sets,
		images,
	)

	reg := prometheus.NewRegistry()
	metricsManager := metrics.NewManager("workout", "api_test", reg)

	router := gin.New()
	router.Use(RequestLogger())
	SetupRoutes(router, AuthSettings{JWTSecret: testSecret, Issuer: testIssuer}, templateService, sessionService, metricsManager, reg)

	return &testAPI{router: router, files: files, metrics: metricsManager}
}

func mintToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func tokenFor(t *testing.T, subject string) string {
	return mintToken(t, testSecret, identityClaims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
}

// do sends body (marshalled unless nil) and returns the recorder.
func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func createdID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp IDResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestPingAndMetricsArePublic(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "workout_api_test_requests_total")
}

func TestAuthMiddleware(t *testing.T) {
	a := newTestAPI(t)
	valid := tokenFor(t, "user_1")

	expired := mintToken(t, testSecret, identityClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user_1",
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	wrongSecret := mintToken(t, "other-secret", identityClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user_1", Issuer: testIssuer}})
	noSubject := mintToken(t, testSecret, identityClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: testIssuer}})
	wrongIssuer := mintToken(t, testSecret, identityClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://evil.test"}})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + wrongSecret, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + wrongIssuer, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			a.router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := a.do(t, http.MethodGet, "/api/v1/me", valid, nil)
	assert.JSONEq(t, `{"subject":"user_1","email":"user_1@example.com"}`, rec.Body.String())
}

func TestTemplateLifecycle(t *testing.T) {
	a := newTestAPI(t)
	token := tokenFor(t, "user_1")

	templateID := createdID(t, a.do(t, http.MethodPost, "/api/v1/templates", token, gin.H{"name": "Push"}))

	rec := a.do(t, http.MethodPost, "/api/v1/uploads/images", token, gin.H{"contentType": "image/png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var upload service.UploadDescriptor
	decode(t, rec, &upload)
	assert.Contains(t, upload.UploadURL, upload.ImageKey)

	benchID := createdID(t, a.do(t, http.MethodPost, "/api/v1/templates/"+templateID+"/exercises", token, gin.H{
		"name": "Bench", "defaultSets": 3, "defaultReps": 8, "imageKey": upload.ImageKey,
	}))
	createdID(t, a.do(t, http.MethodPost, "/api/v1/templates/"+templateID+"/exercises", token, gin.H{
		"name": "Dip", "defaultSets": 2, "defaultReps": 12,
	}))

	rec = a.do(t, http.MethodPatch, "/api/v1/template-exercises/"+benchID, token, gin.H{"defaultReps": 6})
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPatch, "/api/v1/templates/"+templateID, token, gin.H{"name": "Push A"})
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/templates/"+templateID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Exercises []struct {
			ID          string  `json:"id"`
			Name        string  `json:"name"`
			DefaultSets int     `json:"defaultSets"`
			DefaultReps int     `json:"defaultReps"`
			Order       int     `json:"order"`
			ImageURL    *string `json:"imageUrl"`
		} `json:"exercises"`
	}
	decode(t, rec, &details)
	assert.Equal(t, templateID, details.ID)
	assert.Equal(t, "Push A", details.Name)
	require.Len(t, details.Exercises, 2)
	assert.Equal(t, "Bench", details.Exercises[0].Name)
	assert.Equal(t, 6, details.Exercises[0].DefaultReps)
	assert.Equal(t, 3, details.Exercises[0].DefaultSets)
	require.NotNil(t, details.Exercises[0].ImageURL)
	assert.Nil(t, details.Exercises[1].ImageURL)
	assert.Equal(t, 1, details.Exercises[1].Order)

	rec = a.do(t, http.MethodGet, "/api/v1/templates", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	decode(t, rec, &list)
	assert.Len(t, list, 1)

	rec = a.do(t, http.MethodDelete, "/api/v1/templates/"+templateID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Contains(t, a.files.Deleted(), upload.ImageKey)

	rec = a.do(t, http.MethodGet, "/api/v1/templates/"+templateID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestTemplateErrors(t *testing.T) {
	a := newTestAPI(t)
	owner := tokenFor(t, "owner")
	other := tokenFor(t, "other")
	templateID := createdID(t, a.do(t, http.MethodPost, "/api/v1/templates", owner, gin.H{"name": "Mine"}))

	rec := a.do(t, http.MethodPost, "/api/v1/templates", owner, gin.H{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/templates", owner, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/templates/not-an-id", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/templates/"+templateID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/templates/"+templateID+"/exercises", owner, gin.H{"name": "Curl", "defaultSets": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/uploads/images", owner, gin.H{"contentType": "application/pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionFlow(t *testing.T) {
	a := newTestAPI(t)
	token := tokenFor(t, "athlete")

	templateID := createdID(t, a.do(t, http.MethodPost, "/api/v1/templates", token, gin.H{"name": "Legs"}))
	createdID(t, a.do(t, http.MethodPost, "/api/v1/templates/"+templateID+"/exercises", token, gin.H{"name": "Squat", "defaultSets": 3, "defaultReps": 5}))
	createdID(t, a.do(t, http.MethodPost, "/api/v1/templates/"+templateID+"/exercises", token, gin.H{"name": "Lunge", "defaultSets": 2, "defaultReps": 10}))

	sessionID := createdID(t, a.do(t, http.MethodPost, "/api/v1/sessions", token, gin.H{"templateId": templateID}))

	rec := a.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID+"/progress", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":5,"completed":0,"percentage":0}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details service.SessionDetails
	decode(t, rec, &details)
	assert.Equal(t, "Legs", details.TemplateName)
	require.Len(t, details.Exercises, 2)
	squat := details.Exercises[0]
	require.Len(t, squat.Sets, 3)

	rec = a.do(t, http.MethodPatch, "/api/v1/sets/"+squat.Sets[0].ID.Hex(), token, gin.H{"completed": true, "weight": 100})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/v1/sessions/active", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active service.ActiveSession
	decode(t, rec, &active)
	assert.Equal(t, sessionID, active.ID.Hex())
	require.NotNil(t, active.CurrentExercise)
	assert.Equal(t, "Squat", active.CurrentExercise.Name)
	assert.Equal(t, service.Progress{Total: 5, Completed: 1, Percentage: 20}, active.Progress)

	setID := createdID(t, a.do(t, http.MethodPost, "/api/v1/session-exercises/"+squat.ID.Hex()+"/sets", token, gin.H{"reps": 3, "weight": 110}))
	rec = a.do(t, http.MethodDelete, "/api/v1/sets/"+setID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/session-exercises/"+squat.ID.Hex()+"/sets", token, gin.H{"weight": 110})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reps are required")

	createdID(t, a.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/exercises", token, gin.H{"name": "Calf raise"}))

	rec = a.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/complete", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID+"/exercises", token, gin.H{"name": "Too late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/sessions/active", token, nil)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = a.do(t, http.MethodGet, "/api/v1/sessions/history/exercises", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var past []service.PastExercise
	decode(t, rec, &past)
	assert.Len(t, past, 3)

	rec = a.do(t, http.MethodGet, "/api/v1/sessions/recent?limit=5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recent []map[string]interface{}
	decode(t, rec, &recent)
	require.Len(t, recent, 1)
	assert.Equal(t, true, recent[0]["completed"])

	rec = a.do(t, http.MethodGet, "/api/v1/sessions/recent?limit=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/sessions/"+sessionID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID, token, nil)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestStartSession_QuickAndErrors(t *testing.T) {
	a := newTestAPI(t)
	token := tokenFor(t, "runner")

	createdID(t, a.do(t, http.MethodPost, "/api/v1/sessions", token, nil))
	createdID(t, a.do(t, http.MethodPost, "/api/v1/sessions", token, gin.H{"name": "Tempo"}))

	rec := a.do(t, http.MethodPost, "/api/v1/sessions", token, gin.H{"templateId": "zzz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/sessions", token, gin.H{"templateId": "65f000000000000000000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/sessions", tokenFor(t, "newcomer"), gin.H{"templateId": "65f000000000000000000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "a caller without a user record cannot start from a template")

	rec = a.do(t, http.MethodPatch, "/api/v1/sets/65f000000000000000000000", token, gin.H{"reps": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusForError(service.ErrSetNotFound))
	assert.Equal(t, http.StatusConflict, statusForError(service.ErrSessionCompleted))
	assert.Equal(t, http.StatusBadRequest, statusForError(service.ErrValidation))
	assert.Equal(t, http.StatusInternalServerError, statusForError(service.ErrUploadURLError))
}
