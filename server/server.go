// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Lucas-MARIE/audio-viz/clients"
	"github.com/Lucas-MARIE/audio-viz/features"
	"github.com/Lucas-MARIE/audio-viz/orchestrator"
)

// ErrInvalidInput marks request validation failures (400).
var ErrInvalidInput = errors.New("invalid input")

var allowedExtensions = map[string]bool{
	"mp3": true, "wav": true, "ogg": true, "m4a": true, "flac": true, "aac": true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Server struct {
	pipeline  *orchestrator.Pipeline
	maxUpload int64
	tmpDir    string
}

func New(p *orchestrator.Pipeline, maxUploadMB int) *Server {
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &Server{pipeline: p, maxUpload: int64(maxUploadMB) << 20, tmpDir: os.TempDir()}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.analyzeAudio)
	mux.HandleFunc("POST /api/analyze/features", s.analyzeFeatures)
	mux.HandleFunc("POST /api/suggest-shader", s.suggestShader)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	return logRequests(mux)
}

type analyzeResponse struct {
	Success bool `json:"success"`
	*orchestrator.Result
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Success: false, Error: err.Error()})
}

// statusFor maps pipeline failures: upstream problems are 502, the rest 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, clients.ErrStatus), errors.Is(err, features.ErrInvalidFeatures):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func safeName(name string) string {
	name = unsafeChars.ReplaceAllString(filepath.Base(name), "_")
	return strings.Trim(name, "._")
}

func allowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return allowedExtensions[ext]
}

// analyzeAudio takes a multipart upload (field "audio"), runs the whole pipeline
// and removes the temporary copy afterwards.
func (s *Server) analyzeAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, hdr, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: no audio file provided", ErrInvalidInput))
		return
	}
	defer file.Close()

	name := safeName(hdr.Filename)
	if name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: empty file name", ErrInvalidInput))
		return
	}
	if !allowedFile(name) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: unsupported format, accepted: mp3, wav, ogg, m4a, flac, aac", ErrInvalidInput))
		return
	}

	tmp, err := os.CreateTemp(s.tmpDir, fmt.Sprintf("%d_*_%s", time.Now().Unix(), name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("path", tmp.Name()).Warn("temp file not removed")
		}
	}()
	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: upload: %v", ErrInvalidInput, err))
		return
	}

	res, err := s.pipeline.Run(r.Context(), tmp.Name())
	if err != nil {
		log.WithError(err).WithField("file", name).Error("analysis failed")
		writeError(w, statusFor(err), fmt.Errorf("analysis failed: %w", err))
		return
	}
	res.Filename = name
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Result: res})
}

// analyzeFeatures runs the engines over a FeatureSet posted as JSON.
func (s *Server) analyzeFeatures(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		return
	}
	fs, err := features.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.pipeline.Analyze(r.Context(), fs)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Result: res})
}

type suggestResponse struct {
	Success     bool    `json:"success"`
	ShaderIndex int     `json:"shader_index"`
	Energy      float64 `json:"energy"`
	Brightness  float64 `json:"brightness"`
}

// suggestShader validates {energy, brightness} before any computation runs.
func (s *Server) suggestShader(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: body must be a JSON object", ErrInvalidInput))
		return
	}
	energy, err := number(body, "energy")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	brightness, err := number(body, "brightness")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{
		Success:     true,
		ShaderIndex: s.pipeline.Suggest(energy, brightness),
		Energy:      energy,
		Brightness:  brightness,
	})
}

// number reads a numeric field, accepting numeric strings as well.
func number(body map[string]any, key string) (float64, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidInput, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidInput, key)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("request")
	})
}
