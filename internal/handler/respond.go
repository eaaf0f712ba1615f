package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"core-banking-api/internal/model"
	"core-banking-api/internal/service"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, model.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts service errors to HTTP responses. Domain
// failures map to 400 and conflicts to 409.
func handleServiceError(w http.ResponseWriter, err error) {
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", model.ErrCodeInternalError)
		return
	}

	var status int
	switch serviceErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidInput, model.ErrCodeNotFound, model.ErrCodeInsufficientFunds:
		status = http.StatusBadRequest
	case model.ErrCodeConflict:
		status = http.StatusConflict
	default:
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", model.ErrCodeInternalError)
		return
	}

	writeJSON(w, status, model.ErrorResponse{
		Error:   serviceErr.Message,
		Code:    serviceErr.Code,
		Details: serviceErr.Details(),
	})
}

// decodeRequest reads a JSON body into dst and checks its struct tags. It
// writes the error response itself and reports whether the caller may go on.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", model.ErrCodeInvalidInput)
		return false
	}

	if details := validateRequest(dst); len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   "Invalid request data",
			Code:    model.ErrCodeValidation,
			Details: details,
		})
		return false
	}

	return true
}

func validateRequest(obj any) []model.ValidationError {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []model.ValidationError{{Message: err.Error()}}
	}

	details := make([]model.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, model.ValidationError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Value is too long, at most " + fe.Param() + " characters"
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	case "lte":
		return "Value must be less than or equal to " + fe.Param()
	default:
		return "Invalid value"
	}
}

// parsePageRequest reads pageIndex and pageSize, applying the defaults.
func parsePageRequest(r *http.Request) (model.PageRequest, error) {
	page := model.PageRequest{PageIndex: 0, PageSize: model.DefaultPageSize}
	query := r.URL.Query()

	if v := query.Get("pageIndex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, &model.ValidationError{Field: "pageIndex", Message: "page index must be an integer"}
		}
		page.PageIndex = n
	}

	if v := query.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, &model.ValidationError{Field: "pageSize", Message: "page size must be an integer"}
		}
		page.PageSize = n
	}

	if err := page.Validate(); err != nil {
		return page, err
	}
	return page, nil
}

func writeValidationError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), model.ErrCodeInvalidInput)
		return
	}
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
		Error:   ve.Message,
		Code:    model.ErrCodeValidation,
		Details: []model.ValidationError{*ve},
	})
}

// accountIDParam parses the {id} path segment. The nil UUID is passed on so
// the service can reject it.
func accountIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid account ID format", model.ErrCodeInvalidInput)
		return uuid.Nil, false
	}
	return id, true
}
