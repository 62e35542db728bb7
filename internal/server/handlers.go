package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/siroksgribogami/web-3/internal/artifacts"
	"github.com/siroksgribogami/web-3/internal/histogram"
	"github.com/siroksgribogami/web-3/internal/imaging"
	"github.com/siroksgribogami/web-3/internal/metrics"
	"github.com/siroksgribogami/web-3/internal/modulate"
)

var (
	errMissingFile = errors.New("file is required")
	errTooLarge    = errors.New("upload too large")
)

// pageData feeds index.html and result.html.
type pageData struct {
	Decorations []Decoration
	Error       string

	Period      string
	Func        string
	Orientation string

	Info        imaging.Info
	OrigURL     string
	ProcURL     string
	HistOrigURL string
	HistProcURL string
}

// apiError is the error body of JSON responses.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// modulateResponse is the JSON body of a successful /api/v1/modulate call.
type modulateResponse struct {
	imaging.Info

	Period      float64 `json:"period"`
	Func        string  `json:"func"`
	Orientation string  `json:"orientation"`

	OriginalURL           string `json:"original_url,omitempty"`
	ProcessedURL          string `json:"processed_url,omitempty"`
	HistogramOriginalURL  string `json:"histogram_original_url,omitempty"`
	HistogramProcessedURL string `json:"histogram_processed_url,omitempty"`

	// Set instead of the URLs when the request asked for inline results.
	Processed          *imaging.EncodedImage `json:"processed,omitempty"`
	HistogramOriginal  *imaging.EncodedImage `json:"histogram_original,omitempty"`
	HistogramProcessed *imaging.EncodedImage `json:"histogram_processed,omitempty"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{
		Decorations: loadDecorations(s.store.Dir(), staticPrefix),
	})
}

func (s *Server) handleProcess(c *gin.Context) {
	page := pageData{
		Decorations: loadDecorations(s.store.Dir(), staticPrefix),
		Period:      c.PostForm("period"),
		Func:        c.PostForm("func"),
		Orientation: c.PostForm("orientation"),
	}
	if fn, err := modulate.ParseFunc(page.Func); err == nil {
		page.Func = fn.String()
	}
	if o, err := modulate.ParseOrientation(page.Orientation); err == nil {
		page.Orientation = o.String()
	}

	params, data, err := s.readRequest(c)
	if err == nil {
		var res *result
		res, err = s.process(c.Request.Context(), data, params)
		if err == nil {
			page.Period = formatPeriod(params.Period)
			page.Func = params.Func.String()
			page.Orientation = params.Orientation.String()
			page.Info = res.info
			page.OrigURL = s.store.URL(res.set.Original)
			page.ProcURL = s.store.URL(res.set.Processed)
			page.HistOrigURL = s.store.URL(res.set.HistOriginal)
			page.HistProcURL = s.store.URL(res.set.HistProcessed)
			c.HTML(http.StatusOK, "result.html", page)
			return
		}
	}

	status, _, message := classify(err)
	page.Error = message
	c.HTML(status, "index.html", page)
}

func (s *Server) handleAPIModulate(c *gin.Context) {
	params, data, err := s.readRequest(c)
	if err != nil {
		s.errorResponse(c, err)
		return
	}

	resp := modulateResponse{
		Period:      params.Period,
		Func:        params.Func.String(),
		Orientation: params.Orientation.String(),
	}

	if inline, _ := strconv.ParseBool(c.Query("inline")); inline {
		res, err := s.processInline(c.Request.Context(), data, params)
		if err != nil {
			s.errorResponse(c, err)
			return
		}
		resp.Info = res.info
		resp.Processed = res.processed
		resp.HistogramOriginal = res.histOriginal
		resp.HistogramProcessed = res.histProcessed
		c.JSON(http.StatusOK, resp)
		return
	}

	res, err := s.process(c.Request.Context(), data, params)
	if err != nil {
		s.errorResponse(c, err)
		return
	}
	resp.Info = res.info
	resp.OriginalURL = s.store.URL(res.set.Original)
	resp.ProcessedURL = s.store.URL(res.set.Processed)
	resp.HistogramOriginalURL = s.store.URL(res.set.HistOriginal)
	resp.HistogramProcessedURL = s.store.URL(res.set.HistProcessed)
	c.JSON(http.StatusOK, resp)
}

// errorResponse writes a JSON error for err.
func (s *Server) errorResponse(c *gin.Context, err error) {
	status, code, message := classify(err)
	c.JSON(status, gin.H{"error": apiError{Code: code, Message: message}})
}

// readRequest validates the form parameters and then reads the upload.
// Parameters are checked before the upload is opened.
func (s *Server) readRequest(c *gin.Context) (modulate.Params, []byte, error) {
	// A body cut off by limitBody leaves the form fields unusable.
	if _, err := c.MultipartForm(); isTooLarge(err) {
		return modulate.Params{}, nil, errTooLarge
	}

	params, err := parseParams(c)
	if err != nil {
		return modulate.Params{}, nil, err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			return modulate.Params{}, nil, errTooLarge
		}
		return modulate.Params{}, nil, errMissingFile
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return modulate.Params{}, nil, errTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return modulate.Params{}, nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return modulate.Params{}, nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return params, data, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// parseParams reads func, orientation and period from the form, in that
// order. Absent func and orientation fields take the form defaults; absent or
// malformed periods are rejected.
func parseParams(c *gin.Context) (modulate.Params, error) {
	fn, err := modulate.ParseFunc(c.DefaultPostForm("func", "sin"))
	if err != nil {
		return modulate.Params{}, err
	}
	orientation, err := modulate.ParseOrientation(c.DefaultPostForm("orientation", "vertical"))
	if err != nil {
		return modulate.Params{}, err
	}

	raw := strings.TrimSpace(c.PostForm("period"))
	period, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return modulate.Params{}, &modulate.ParamError{Field: "period", Value: raw, Reason: "a number > 0"}
	}

	p := modulate.Params{Period: period, Func: fn, Orientation: orientation}
	if err := p.Validate(); err != nil {
		return modulate.Params{}, err
	}
	return p, nil
}

// classify maps an error to an HTTP status, a machine-readable code and a
// message safe to show to the client.
func classify(err error) (int, string, string) {
	var (
		status  int
		code    string
		message string
	)
	switch {
	case errors.Is(err, modulate.ErrInvalidParameter):
		status, code, message = http.StatusBadRequest, "invalid_parameter", err.Error()
	case errors.Is(err, errMissingFile):
		status, code, message = http.StatusBadRequest, "missing_file", err.Error()
	case errors.Is(err, imaging.ErrDecode):
		status, code, message = http.StatusBadRequest, "invalid_image", err.Error()
	case errors.Is(err, errTooLarge):
		status, code, message = http.StatusRequestEntityTooLarge, "too_large", err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code, message = http.StatusServiceUnavailable, "canceled", "request canceled"
	case errors.Is(err, artifacts.ErrWrite), errors.Is(err, histogram.ErrIO):
		log.Printf("Artifact write failed: %v", err)
		status, code, message = http.StatusInternalServerError, "io_failure", "failed to store results"
	default:
		log.Printf("Request failed: %v", err)
		status, code, message = http.StatusInternalServerError, "internal", "internal error"
	}
	metrics.Failures.WithLabelValues(code).Inc()
	return status, code, message
}

func formatPeriod(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}

