package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptpix/api/internal/config"
	"promptpix/api/internal/generation"
	"promptpix/api/internal/models"
	"promptpix/api/internal/quota"
	"promptpix/api/internal/service"
)

type stubPipeline struct {
	outcome service.Outcome
	err     error
	lastReq models.GenerationRequest
	calls   int
}

func (p *stubPipeline) Run(_ context.Context, _ models.Identity, req models.GenerationRequest, _ service.StateListener) (service.Outcome, error) {
	p.calls++
	p.lastReq = req
	return p.outcome, p.err
}

func newImagesRouter(pipe *stubPipeline, identity models.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{}
	cfg.Gemini.Timeout = 5 * time.Second
	cfg.Quota = config.QuotaConfig{AnonymousLimit: 5, DailyLimit: 50}

	h := HandlerSet{
		log:      zerolog.Nop(),
		cfg:      cfg,
		pipeline: pipe,
		quota:    quota.NewTracker(quota.NewMemoryStore(), quota.NewMemoryStore(), cfg.Quota),
	}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("identity", identity)
	})
	router.POST("/v1/images/generate", h.GenerateImage)
	router.POST("/v1/images/edit", h.EditImage)
	router.GET("/v1/quota", h.QuotaState)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateImageSuccess(t *testing.T) {
	pipe := &stubPipeline{outcome: service.Outcome{
		State: service.StateDone,
		Result: &models.GenerationResult{
			ImageBytes: []byte{1, 2, 3},
			MIMEType:   "image/png",
			Caption:    "a red bicycle",
		},
		DataURI:  "data:image/png;base64,AQID",
		Artifact: &models.Artifact{ID: "art-1", StorageURL: "https://s.example.com/promptpix/user-1/a.png"},
		Quota:    models.QuotaState{Used: 3, Limit: 50, Window: models.QuotaWindowDaily},
	}}
	router := newImagesRouter(pipe, models.UserIdentity("user-1"))

	w := postJSON(router, "/v1/images/generate", `{"prompt":"a red bicycle"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Image   struct {
			Data     string `json:"data"`
			MIMEType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"image"`
		DataURI  string `json:"dataUri"`
		Artifact *struct {
			ID string `json:"id"`
		} `json:"artifact"`
		SaveError string `json:"saveError"`
		Quota     struct {
			Used      int `json:"used"`
			Remaining int `json:"remaining"`
		} `json:"quota"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), resp.Image.Data)
	assert.Equal(t, "image/png", resp.Image.MIMEType)
	assert.Equal(t, "a red bicycle", resp.Image.Text)
	assert.Equal(t, "data:image/png;base64,AQID", resp.DataURI)
	require.NotNil(t, resp.Artifact)
	assert.Equal(t, "art-1", resp.Artifact.ID)
	assert.Empty(t, resp.SaveError)
	assert.Equal(t, 3, resp.Quota.Used)
	assert.Equal(t, 47, resp.Quota.Remaining)

	assert.Equal(t, models.ModeGenerate, pipe.lastReq.Mode)
	assert.Equal(t, "a red bicycle", pipe.lastReq.Prompt)
}

func TestGenerateImageNoResult(t *testing.T) {
	pipe := &stubPipeline{outcome: service.Outcome{
		State: service.StateDone,
		Quota: models.QuotaState{Used: 2, Limit: 5, Window: models.QuotaWindowLifetime},
	}}
	router := newImagesRouter(pipe, models.AnonymousIdentity("device-1"))

	w := postJSON(router, "/v1/images/generate", `{"prompt":"something unimageable"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestGenerateImageSaveErrorSurfaced(t *testing.T) {
	pipe := &stubPipeline{outcome: service.Outcome{
		State:   service.StateDone,
		Result:  &models.GenerationResult{ImageBytes: []byte{1}, MIMEType: "image/png"},
		DataURI: "data:image/png;base64,AQ",
		SaveErr: &service.PartialFailureError{ObjectKey: "user-1/x.png", Err: errors.New("insert failed")},
	}}
	router := newImagesRouter(pipe, models.UserIdentity("user-1"))

	w := postJSON(router, "/v1/images/generate", `{"prompt":"a harbor"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Contains(t, resp, "saveError")
}

func TestGenerateImageAnonymousSaveSkipNotSurfaced(t *testing.T) {
	pipe := &stubPipeline{outcome: service.Outcome{
		State:   service.StateDone,
		Result:  &models.GenerationResult{ImageBytes: []byte{1}, MIMEType: "image/png"},
		DataURI: "data:image/png;base64,AQ",
		SaveErr: service.ErrNotAuthenticated,
	}}
	router := newImagesRouter(pipe, models.AnonymousIdentity("device-1"))

	w := postJSON(router, "/v1/images/generate", `{"prompt":"a harbor"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(t, resp, "saveError")
}

func TestGenerateImageErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation",
			err:        &service.ValidationError{Field: "prompt", Reason: "must not be empty"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "quota exceeded",
			err:        quota.ErrQuotaExceeded,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "generation failure",
			err:        &generation.GenerationError{Op: "generate", Err: errors.New("upstream 500")},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "missing api key",
			err:        generation.ErrMissingAPIKey,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newImagesRouter(&stubPipeline{err: tt.err}, models.AnonymousIdentity("device-1"))
			w := postJSON(router, "/v1/images/generate", `{"prompt":"anything"}`)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestGenerateImageRejectsMissingPrompt(t *testing.T) {
	pipe := &stubPipeline{}
	router := newImagesRouter(pipe, models.AnonymousIdentity("device-1"))

	w := postJSON(router, "/v1/images/generate", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, pipe.calls)
}

func TestEditImageDecodesAndSniffs(t *testing.T) {
	pipe := &stubPipeline{outcome: service.Outcome{
		State:   service.StateDone,
		Result:  &models.GenerationResult{ImageBytes: []byte{9}, MIMEType: "image/png"},
		DataURI: "data:image/png;base64,CQ",
	}}
	router := newImagesRouter(pipe, models.AnonymousIdentity("device-1"))

	// A JPEG payload declared as png: the sniffed type must win.
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	body, err := json.Marshal(map[string]string{
		"prompt":    "make it night",
		"imageData": "data:image/png;base64," + base64.StdEncoding.EncodeToString(jpeg),
	})
	require.NoError(t, err)

	w := postJSON(router, "/v1/images/edit", string(body))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ModeEdit, pipe.lastReq.Mode)
	assert.Equal(t, jpeg, pipe.lastReq.SourceImage)
	assert.Equal(t, "image/jpeg", pipe.lastReq.SourceMIME)
}

func TestEditImageRejectsUndecodableData(t *testing.T) {
	pipe := &stubPipeline{}
	router := newImagesRouter(pipe, models.AnonymousIdentity("device-1"))

	w := postJSON(router, "/v1/images/edit", `{"prompt":"p","imageData":"!!!!"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, pipe.calls)
}

func TestQuotaStateEndpoint(t *testing.T) {
	router := newImagesRouter(&stubPipeline{}, models.AnonymousIdentity("device-1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Quota struct {
			Used      int    `json:"used"`
			Limit     int    `json:"limit"`
			Remaining int    `json:"remaining"`
			Window    string `json:"window"`
		} `json:"quota"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Quota.Used)
	assert.Equal(t, 5, resp.Quota.Limit)
	assert.Equal(t, 5, resp.Quota.Remaining)
	assert.Equal(t, "lifetime", resp.Quota.Window)
}

func TestParseModalities(t *testing.T) {
	assert.Equal(t, []models.Modality{models.ModalityText, models.ModalityImage}, parseModalities(nil))
	assert.Equal(t, []models.Modality{models.ModalityImage}, parseModalities([]string{"IMAGE"}))
	assert.Equal(t, []models.Modality{models.ModalityText}, parseModalities([]string{"TEXT"}))
}
