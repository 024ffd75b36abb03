package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/questplan/internal/errors"
)

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func problemResponse(c *fiber.Ctx, status int, errType, detail string) error {
	c.Set(fiber.HeaderContentType, "application/problem+json")
	body, _ := json.Marshal(ProblemDetail{
		Type:      errType,
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		Instance:  c.Path(),
		RequestID: requestID(c),
	})
	return c.Status(status).Send(body)
}

// classify maps an error to a status, a problem type and a detail safe to
// show to the caller.
func classify(err error) (int, string, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, "http_error", fe.Message
	}
	if errors.Is(err, perrors.ErrUnavailable) {
		return fiber.StatusServiceUnavailable, "unavailable", "This feature is not available right now"
	}
	switch perrors.CodeOf(err) {
	case perrors.CodeUnauthenticated:
		return fiber.StatusUnauthorized, string(perrors.CodeUnauthenticated), err.Error()
	case perrors.CodeNotFound:
		return fiber.StatusNotFound, string(perrors.CodeNotFound), perrors.ErrNotFound.Error()
	case perrors.CodeInvalidInput:
		return fiber.StatusUnprocessableEntity, string(perrors.CodeInvalidInput), err.Error()
	case perrors.CodeConflict:
		return fiber.StatusConflict, string(perrors.CodeConflict), err.Error()
	case perrors.CodeUpstream:
		if errors.Is(err, perrors.ErrInvalidPlan) {
			return fiber.StatusBadGateway, "invalid_plan", err.Error()
		}
		return fiber.StatusBadGateway, string(perrors.CodeUpstream), "The upstream service failed. Please try again."
	default:
		return fiber.StatusInternalServerError, string(perrors.CodeInternal), "An internal error occurred"
	}
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, errType, detail := classify(err)

		ev := logger.Debug()
		if status >= fiber.StatusInternalServerError {
			ev = logger.Error()
		} else if status == fiber.StatusNotFound || status == fiber.StatusUnauthorized {
			ev = logger.Warn()
		}
		ev.Err(err).
			Int("status", status).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Str("request_id", requestID(c)).
			Bool("denied", errors.Is(err, perrors.ErrDenied)).
			Msg("request failed")

		if status == fiber.StatusUnauthorized {
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="questplan"`)
		}
		return problemResponse(c, status, errType, detail)
	}
}

// badBody reports a malformed request body.
func badBody(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
}

// decode parses a JSON body into v. An empty body decodes as {}.
func decode(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, v); err != nil {
		if errors.Is(err, perrors.ErrInvalidInput) {
			return err
		}
		return badBody(err)
	}
	return nil
}

// idParam parses a positive integer path parameter.
func idParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, perrors.Invalid("%s must be a positive integer", name)
	}
	return id, nil
}
