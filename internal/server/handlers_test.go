package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	stdpng "image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/siroksgribogami/web-3/internal/artifacts"
	"github.com/siroksgribogami/web-3/internal/histogram"
	"github.com/siroksgribogami/web-3/internal/imaging"
	"github.com/siroksgribogami/web-3/internal/modulate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gray = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

type errorBody struct {
	Error apiError `json:"error"`
}

// artifactFiles lists the stored artifacts in dir, ignoring decorations.
func artifactFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestHandleIndex(t *testing.T) {
	s, dir := newTestServer(t)
	svgDir := filepath.Join(dir, decorationDir)
	require.NoError(t, os.MkdirAll(svgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(svgDir, "flower.svg"), []byte("<svg/>"), 0o644))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Periodic image modulation")
	assert.Contains(t, body, `name="period"`)
	assert.Contains(t, body, "/static/svg_elements/flower.svg")
}

func TestHandleProcess(t *testing.T) {
	s, dir := newTestServer(t)
	req := newUploadRequest(t, "/", map[string]string{
		"period":      "8",
		"func":        "cos",
		"orientation": "horizontal",
	}, createTestPNG(t, 32, 16, gray))

	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "period = 8")
	assert.Contains(t, body, "func = cosine")
	assert.Contains(t, body, "orientation = horizontal")
	assert.Contains(t, body, "32×16")
	assert.Contains(t, body, `src="/static/proc_`)
	assert.Contains(t, body, `src="/static/hist_orig_`)

	files := artifactFiles(t, dir)
	require.Len(t, files, 4)
	var prefixes []string
	for _, name := range files {
		prefixes = append(prefixes, name[:strings.LastIndex(name, "_")+1])
	}
	assert.ElementsMatch(t, []string{"hist_orig_", "hist_proc_", "orig_", "proc_"}, prefixes)
}

func TestHandleProcess_Defaults(t *testing.T) {
	s, _ := newTestServer(t)
	req := newUploadRequest(t, "/", map[string]string{"period": "10"}, createTestPNG(t, 8, 8, gray))

	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "func = sine")
	assert.Contains(t, rec.Body.String(), "orientation = vertical")
}

func TestHandleProcess_InvalidParameters(t *testing.T) {
	s, dir := newTestServer(t)
	req := newUploadRequest(t, "/", map[string]string{
		"period": "10",
		"func":   "tan",
	}, createTestPNG(t, 8, 8, gray))

	rec := serve(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "func must be sin or cos")
	assert.Empty(t, artifactFiles(t, dir))
}

func TestHandleAPIModulate(t *testing.T) {
	s, dir := newTestServer(t)
	req := newUploadRequest(t, "/api/v1/modulate", map[string]string{
		"period": "20",
		"func":   "sin",
	}, createTestPNG(t, 40, 30, gray))

	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp modulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 40, resp.Width)
	assert.Equal(t, 30, resp.Height)
	assert.Equal(t, "png", resp.Format)
	assert.Equal(t, 20.0, resp.Period)
	assert.Equal(t, "sine", resp.Func)
	assert.Equal(t, "vertical", resp.Orientation)
	assert.Nil(t, resp.Processed)

	for _, u := range []string{resp.OriginalURL, resp.ProcessedURL, resp.HistogramOriginalURL, resp.HistogramProcessedURL} {
		require.True(t, strings.HasPrefix(u, "/static/"), u)
		_, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(u, "/static/")))
		assert.NoError(t, err, u)
	}
	assert.True(t, strings.HasSuffix(resp.ProcessedURL, ".jpg"))
	assert.True(t, strings.HasSuffix(resp.HistogramProcessedURL, ".png"))

	stored := serve(s, httptest.NewRequest(http.MethodGet, resp.ProcessedURL, nil))
	require.Equal(t, http.StatusOK, stored.Code)
	img, err := jpeg.Decode(stored.Body)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestHandleAPIModulate_Inline(t *testing.T) {
	s, dir := newTestServer(t)
	req := newUploadRequest(t, "/api/v1/modulate?inline=true", map[string]string{
		"period":      "4",
		"func":        "cos",
		"orientation": "horizontal",
	}, createTestPNG(t, 16, 12, gray))

	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp modulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.ProcessedURL)
	require.NotNil(t, resp.Processed)
	require.NotNil(t, resp.HistogramOriginal)
	require.NotNil(t, resp.HistogramProcessed)

	assert.Equal(t, "image/jpeg", resp.Processed.MimeType)
	assert.Equal(t, 16, resp.Processed.Width)
	assert.Equal(t, 12, resp.Processed.Height)
	assert.Equal(t, "image/png", resp.HistogramProcessed.MimeType)
	assert.Equal(t, histogram.ChartWidth, resp.HistogramProcessed.Width)
	assert.Equal(t, histogram.ChartHeight, resp.HistogramProcessed.Height)

	data, err := base64.StdEncoding.DecodeString(resp.Processed.ImageBase64)
	require.NoError(t, err)
	dec, err := imaging.DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", dec.Info.Format)

	assert.Empty(t, artifactFiles(t, dir))
}

func TestHandleAPIModulate_Errors(t *testing.T) {
	png := createTestPNG(t, 8, 8, gray)

	// Compresses to a few KB but decodes past the test pixel limit.
	var huge bytes.Buffer
	require.NoError(t, stdpng.Encode(&huge, image.NewGray(image.Rect(0, 0, 2048, 1024))))

	tests := []struct {
		name   string
		fields map[string]string
		file   []byte
		status int
		code   string
		msg    string
	}{
		{
			name:   "unknown func",
			fields: map[string]string{"period": "10", "func": "tan"},
			file:   png,
			status: http.StatusBadRequest,
			code:   "invalid_parameter",
			msg:    `func must be sin or cos (got "tan")`,
		},
		{
			name:   "unknown orientation",
			fields: map[string]string{"period": "10", "orientation": "diagonal"},
			file:   png,
			status: http.StatusBadRequest,
			code:   "invalid_parameter",
			msg:    "orientation must be vertical or horizontal",
		},
		{
			name:   "zero period",
			fields: map[string]string{"period": "0"},
			file:   png,
			status: http.StatusBadRequest,
			code:   "invalid_parameter",
			msg:    "period must be > 0",
		},
		{
			name:   "non-numeric period",
			fields: map[string]string{"period": "abc"},
			file:   png,
			status: http.StatusBadRequest,
			code:   "invalid_parameter",
			msg:    "period must be",
		},
		{
			name:   "func checked before period",
			fields: map[string]string{"period": "-1", "func": "tan"},
			file:   png,
			status: http.StatusBadRequest,
			code:   "invalid_parameter",
			msg:    "func must be sin or cos",
		},
		{
			name:   "missing file",
			fields: map[string]string{"period": "10"},
			status: http.StatusBadRequest,
			code:   "missing_file",
			msg:    "file is required",
		},
		{
			name:   "not an image",
			fields: map[string]string{"period": "10"},
			file:   []byte("definitely not an image"),
			status: http.StatusBadRequest,
			code:   "invalid_image",
			msg:    "invalid image file: ",
		},
		{
			name:   "too many pixels",
			fields: map[string]string{"period": "10"},
			file:   huge.Bytes(),
			status: http.StatusBadRequest,
			code:   "invalid_image",
			msg:    "exceeds the limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dir := newTestServer(t)
			rec := serve(s, newUploadRequest(t, "/api/v1/modulate", tt.fields, tt.file))

			assert.Equal(t, tt.status, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Contains(t, body.Error.Message, tt.msg)
			assert.Empty(t, artifactFiles(t, dir))
		})
	}
}

func TestHandleAPIModulate_TooLarge(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.MaxUploadBytes = 1024
	store, err := artifacts.NewStore(dir, staticPrefix, cfg.JPEGQuality)
	require.NoError(t, err)
	s, err := New(cfg, store)
	require.NoError(t, err)

	req := newUploadRequest(t, "/api/v1/modulate", map[string]string{"period": "10"}, bytes.Repeat([]byte{0x42}, 4096))
	rec := serve(s, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "too_large", body.Error.Code)
}

func TestHandleAPIModulate_Canceled(t *testing.T) {
	s, dir := newTestServer(t)
	req := newUploadRequest(t, "/api/v1/modulate", map[string]string{"period": "10"}, createTestPNG(t, 8, 8, gray))
	ctx, cancel := context.WithCancel(req.Context())
	cancel()

	rec := serve(s, req.WithContext(ctx))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, artifactFiles(t, dir))
}

func TestHandleAPIModulate_WaitsForSlot(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, s.sem.Acquire(context.Background(), s.cfg.MaxConcurrent))

	req := newUploadRequest(t, "/api/v1/modulate", map[string]string{"period": "10"}, createTestPNG(t, 8, 8, gray))
	ctx, cancel := context.WithTimeout(req.Context(), 50*time.Millisecond)
	defer cancel()
	rec := serve(s, req.WithContext(ctx))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, artifactFiles(t, dir))
	s.sem.Release(s.cfg.MaxConcurrent)
}

func TestHandleAPIModulate_ReleasesSlot(t *testing.T) {
	s, _ := newTestServer(t)

	for _, target := range []string{"/api/v1/modulate", "/api/v1/modulate?inline=true"} {
		rec := serve(s, newUploadRequest(t, target, map[string]string{"period": "10"}, createTestPNG(t, 8, 8, gray)))
		require.Equal(t, http.StatusOK, rec.Code, target)
		require.True(t, s.sem.TryAcquire(s.cfg.MaxConcurrent), "slot still held after %s", target)
		s.sem.Release(s.cfg.MaxConcurrent)
	}
}

func TestHandleAPIModulate_StoreFailure(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.RemoveAll(dir))

	rec := serve(s, newUploadRequest(t, "/api/v1/modulate", map[string]string{"period": "10"}, createTestPNG(t, 8, 8, gray)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "io_failure", body.Error.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&modulate.ParamError{Field: "period", Value: "0", Reason: "> 0"}, http.StatusBadRequest, "invalid_parameter"},
		{&imaging.DecodeError{Err: errors.New("bad")}, http.StatusBadRequest, "invalid_image"},
		{errMissingFile, http.StatusBadRequest, "missing_file"},
		{errTooLarge, http.StatusRequestEntityTooLarge, "too_large"},
		{context.Canceled, http.StatusServiceUnavailable, "canceled"},
		{fmt.Errorf("acquire: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "canceled"},
		{&artifacts.WriteError{Name: "x", Err: errors.New("disk full")}, http.StatusInternalServerError, "io_failure"},
		{&histogram.IOError{Dest: "x", Err: errors.New("disk full")}, http.StatusInternalServerError, "io_failure"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code, message := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, message)
		})
	}
}

func TestClassify_HidesInternalDetails(t *testing.T) {
	_, _, message := classify(errors.New("open /secret/path: permission denied"))
	assert.NotContains(t, message, "/secret/path")
}
