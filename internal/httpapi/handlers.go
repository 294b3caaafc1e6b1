// Package httpapi exposes the core engine's enroll/verify/delete
// operations over HTTP, in the same one-handler-struct-per-concern style
// the daemon's article/tag/job handlers use.
package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"voiceauth/internal/audio"
	"voiceauth/internal/core"
	"voiceauth/internal/corefail"
	"voiceauth/internal/ratelimit"
	"voiceauth/internal/validate"
)

const maxUploadBytes = 25 * 1024 * 1024

// Handler serves the voice-authentication API endpoints.
type Handler struct {
	engine         *core.Engine
	limiter        *ratelimit.Limiter
	allowedFormats []string
}

func NewHandler(engine *core.Engine, limiter *ratelimit.Limiter, allowedFormats []string) *Handler {
	return &Handler{engine: engine, limiter: limiter, allowedFormats: allowedFormats}
}

type enrollResponse struct {
	QualityScore float64  `json:"quality_score"`
	Warnings     []string `json:"warnings"`
}

type verifyResponse struct {
	Similarity float64 `json:"similarity"`
	Liveness   float64 `json:"liveness"`
	Decision   string  `json:"decision"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Enroll handles POST /users/:id/enroll. The request body is the raw
// audio bytes; the container format is given by the "format" query
// param.
func (h *Handler) Enroll(c echo.Context) error {
	userID := c.Param("id")
	if v := validate.Username(userID); !v.Valid() {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: v.Errors[0]})
	}

	if status := h.checkRateLimit(c, userID); status != nil {
		return status
	}

	data, format, err := h.readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	ctx := c.Request().Context()
	result, err := h.engine.Enroll(ctx, userID, data, format)
	if err != nil {
		h.limiter.Record(rateLimitKey(c, userID), false)
		return h.mapError(c, err)
	}
	h.limiter.Record(rateLimitKey(c, userID), true)

	return c.JSON(http.StatusCreated, enrollResponse{
		QualityScore: result.QualityScore,
		Warnings:     result.Warnings,
	})
}

// Reenroll handles PUT /users/:id/enroll, replacing the active record for
// an already-enrolled user atomically. Fails with NotEnrolled if the user
// has never enrolled; callers that don't know the user's state should use
// Enroll instead.
func (h *Handler) Reenroll(c echo.Context) error {
	userID := c.Param("id")
	if v := validate.Username(userID); !v.Valid() {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: v.Errors[0]})
	}

	if status := h.checkRateLimit(c, userID); status != nil {
		return status
	}

	data, format, err := h.readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	ctx := c.Request().Context()
	result, err := h.engine.Reenroll(ctx, userID, data, format)
	if err != nil {
		h.limiter.Record(rateLimitKey(c, userID), false)
		return h.mapError(c, err)
	}
	h.limiter.Record(rateLimitKey(c, userID), true)

	return c.JSON(http.StatusOK, enrollResponse{
		QualityScore: result.QualityScore,
		Warnings:     result.Warnings,
	})
}

// Verify handles POST /users/:id/verify.
func (h *Handler) Verify(c echo.Context) error {
	userID := c.Param("id")

	if status := h.checkRateLimit(c, userID); status != nil {
		return status
	}

	data, format, err := h.readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	ctx := c.Request().Context()
	result, err := h.engine.Verify(ctx, userID, data, format)
	if err != nil {
		h.limiter.Record(rateLimitKey(c, userID), false)
		return h.mapError(c, err)
	}
	h.limiter.Record(rateLimitKey(c, userID), result.Decision == core.Pass)

	return c.JSON(http.StatusOK, verifyResponse{
		Similarity: result.Similarity,
		Liveness:   result.Liveness,
		Decision:   string(result.Decision),
	})
}

// Delete handles DELETE /users/:id.
func (h *Handler) Delete(c echo.Context) error {
	userID := c.Param("id")
	ctx := c.Request().Context()

	if err := h.engine.Delete(ctx, userID); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type recordResponse struct {
	UserID             string    `json:"user_id"`
	SchemaVersion      string    `json:"schema_version"`
	Salt               string    `json:"salt"`
	IntegrityHash      string    `json:"integrity_hash"`
	QualityScore       float64   `json:"enrollment_quality"`
	EnrollmentDuration float64   `json:"enrollment_duration_s"`
	CreatedAt          time.Time `json:"created_at"`
}

// Record handles GET /users/:id/record, returning the persisted record's
// envelope metadata without decrypting the voiceprint it wraps.
func (h *Handler) Record(c echo.Context) error {
	userID := c.Param("id")
	ctx := c.Request().Context()

	rec, err := h.engine.Inspect(ctx, userID)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, recordResponse{
		UserID:             rec.UserID,
		SchemaVersion:      rec.SchemaVersion,
		Salt:               rec.Salt,
		IntegrityHash:      rec.IntegrityHash,
		QualityScore:       rec.QualityScore,
		EnrollmentDuration: rec.EnrollmentDuration,
		CreatedAt:          rec.CreatedAt,
	})
}

func (h *Handler) checkRateLimit(c echo.Context, userID string) error {
	status := h.limiter.Check(rateLimitKey(c, userID))
	if status.Limited {
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"error":     "rate limited",
			"unlock_at": status.UnlockAt,
		})
	}
	return nil
}

func rateLimitKey(c echo.Context, userID string) string {
	return c.RealIP() + "/" + userID
}

func (h *Handler) readUpload(c echo.Context) ([]byte, audio.Format, error) {
	format := audio.Format(c.QueryParam("format"))
	if format == "" {
		format = audio.FormatWAV
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(body) > maxUploadBytes {
		return nil, "", errors.New("upload exceeds maximum allowed size")
	}

	filename := c.QueryParam("filename")
	if filename == "" {
		filename = "upload." + string(format)
	}
	if v := validate.AudioUpload(body, filename, maxUploadBytes, h.allowedFormats); !v.Valid() {
		return nil, "", errors.New(v.Errors[0])
	}

	return body, format, nil
}

// mapError translates a corefail.Error into an HTTP status code without
// ever echoing the cause string for cryptographic failure kinds, so
// IntegrityViolation and CorruptVoiceprint responses carry no more detail
// than the kind itself.
func (h *Handler) mapError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	kind := "internal_error"

	var cfe *corefail.Error
	if errors.As(err, &cfe) {
		kind = string(cfe.Kind)
		switch cfe.Kind {
		case corefail.UnsupportedFormat, corefail.CorruptStream, corefail.EmptySignal,
			corefail.SilentSignal, corefail.DurationOutOfRange, corefail.FeatureNaN,
			corefail.QualityTooLow, corefail.SchemaMismatch:
			status = http.StatusUnprocessableEntity
		case corefail.NotEnrolled:
			status = http.StatusNotFound
		case corefail.AlreadyEnrolled:
			status = http.StatusConflict
		case corefail.IntegrityViolation, corefail.CorruptVoiceprint:
			status = http.StatusUnauthorized
		default:
			status = http.StatusInternalServerError
		}
	}

	return c.JSON(status, errorResponse{Error: kind})
}
