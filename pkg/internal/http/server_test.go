package http

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat/chattest"
	"git.solsynth.dev/hypernet/forms/pkg/internal/config"
	"git.solsynth.dev/hypernet/forms/pkg/internal/database/databasetest"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "s3cret"

type fixture struct {
	app      *App
	store    *services.Store
	platform *chattest.Platform
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "index.html"), []byte("<h1>Forms</h1>"), 0o600))

	platform := chattest.New()
	platform.AddUser(chat.User{ID: "creator", Name: "Creator"})
	store := services.NewStore(databasetest.Open(t))
	publisher := services.NewPublisher(store, platform)
	closer := services.NewCloser(store, platform, publisher, services.NewChartRenderer(1))

	app := NewServer(config.HTTPConfig{Docs: docs, AdminToken: token}, store, closer)
	return &fixture{app: app, store: store, platform: platform}
}

func (f *fixture) seed(t *testing.T, scope, name string) models.Form {
	t.Helper()
	form := models.Form{
		ID:         models.FormID(scope, name),
		Name:       name,
		ScopeID:    scope,
		ChannelID:  "entry",
		MessageID:  "1",
		CreatorID:  "creator",
		FinishesAt: time.Now().UTC().Add(time.Hour),
	}
	questions := []models.Question{models.NewQuestion(form.ID, 0, models.FreeText{Label: "Name"})}
	require.NoError(t, f.store.CreateForm(context.Background(), form, questions, nil))
	require.NoError(t, f.store.InsertResponses(context.Background(), []models.Response{
		{QuestionID: questions[0].ID, RespondedAt: time.Now().UTC().Truncate(time.Microsecond), Text: "Ana"},
	}))
	return form
}

func (f *fixture) do(t *testing.T, method, target, body string, authorized bool) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if authorized {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := f.app.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestServer_Docs(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, fiber.MethodGet, "/", "", false)
	assert.Equal(t, fiber.StatusFound, status)

	status, body := f.do(t, fiber.MethodGet, "/docs", "", false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "Forms")
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, fiber.MethodGet, "/metrics", "", false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "forms_live_forms")
}

func TestAdmin_RequiresToken(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, fiber.MethodGet, "/api/admin/forms", "", false)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdmin_Unmounted(t *testing.T) {
	store := services.NewStore(databasetest.Open(t))
	app := NewServer(config.HTTPConfig{Docs: t.TempDir()}, store, nil)

	resp, err := app.app.Test(httptest.NewRequest(fiber.MethodGet, "/api/admin/forms", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdmin_ListForms(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1001", "Feedback")
	f.seed(t, "2002", "Other")

	status, body := f.do(t, fiber.MethodGet, "/api/admin/forms?scope=1001", "", true)
	require.Equal(t, fiber.StatusOK, status)

	var out []map[string]any
	require.NoError(t, jsoniter.UnmarshalFromString(body, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "1001:Feedback", out[0]["id"])
	assert.EqualValues(t, 1, out[0]["question_count"])
	assert.EqualValues(t, 1, out[0]["submission_count"])

	status, body = f.do(t, fiber.MethodGet, "/api/admin/forms", "", true)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, jsoniter.UnmarshalFromString(body, &out))
	assert.Len(t, out, 2)

	status, _ = f.do(t, fiber.MethodGet, "/api/admin/forms?scope=abc", "", true)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAdmin_FinishForm(t *testing.T) {
	f := newFixture(t)
	form := f.seed(t, "1001", "Feedback")

	status, _ := f.do(t, fiber.MethodPost, "/api/admin/forms/finish", `{"form_id":"`+form.ID+`"}`, true)
	require.Equal(t, fiber.StatusOK, status)

	exists, err := f.store.FormExists(context.Background(), form.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Len(t, f.platform.DirectTo("creator"), 1)

	status, _ = f.do(t, fiber.MethodPost, "/api/admin/forms/finish", `{"form_id":"`+form.ID+`"}`, true)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = f.do(t, fiber.MethodPost, "/api/admin/forms/finish", `{}`, true)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
