package middleware

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/apperr"
)

// ErrorHandler renders every error returned by a handler as
// {"error": message}.  Validation failures add "details" keyed by JSON field.
// Internal errors are logged and reduced to a generic message.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, body := render(err)
		if code >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Request().Method,
				"uri":    c.Request().RequestURI,
			}).Error("request failed")
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.WithError(err).Warn("writing error response")
		}
	}
}

func render(err error) (int, echo.Map) {
	var (
		ae *apperr.Error
		ve validator.ValidationErrors
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ae):
		if ae.Kind == apperr.Internal {
			return http.StatusInternalServerError, echo.Map{"error": "internal server error"}
		}
		return ae.Kind.Status(), echo.Map{"error": ae.Message}
	case errors.As(err, &ve):
		details := make(map[string]string, len(ve))
		for _, fe := range ve {
			details[fe.Field()] = fieldMessage(fe)
		}
		return http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": details}
	case errors.As(err, &he):
		msg, ok := he.Message.(string)
		if !ok || he.Code >= http.StatusInternalServerError {
			msg = http.StatusText(he.Code)
		}
		return he.Code, echo.Map{"error": msg}
	}
	return http.StatusInternalServerError, echo.Map{"error": "internal server error"}
}

// statusOf is the status render would choose for err.
func statusOf(err error) int {
	code, _ := render(err)
	return code
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	case "alphanum":
		return "must contain only letters and digits"
	}
	return "is invalid"
}
