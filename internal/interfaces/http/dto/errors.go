package dto

import (
	"net/http"

	csvimport "github.com/storefront/backend/internal/infrastructure/import"
)

// API error codes, ERR_<CATEGORY>_<DETAIL>.
const (
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"

	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeBadRequest         = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput       = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON        = "ERR_INVALID_JSON"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"

	ErrCodeInvalidProfile    = "ERR_IMPORT_INVALID_PROFILE"
	ErrCodeInvalidMapping    = "ERR_IMPORT_INVALID_MAPPING"
	ErrCodeImportFailed      = "ERR_IMPORT_FAILED"
	ErrCodeStorageDisabled   = "ERR_IMPORT_STORAGE_DISABLED"
	ErrCodeUnsupportedFormat = csvimport.ErrCodeImportUnsupportedFormat
	ErrCodeFileTooLarge      = csvimport.ErrCodeImportFileTooLarge
)

type codeSpec struct {
	status int
	// domain lists the shared.DomainError codes reported under this API code.
	domain []string
}

var codeTable = map[string]codeSpec{
	ErrCodeInternal:           {http.StatusInternalServerError, []string{"INTERNAL_ERROR", "INVALID_STATS"}},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, nil},

	ErrCodeValidation: {http.StatusBadRequest, []string{
		"VALIDATION_ERROR", "INVALID_NAME", "INVALID_SKU", "INVALID_PRICE", "INVALID_CURRENCY",
	}},
	ErrCodeValidationRequired: {http.StatusBadRequest, nil},
	ErrCodeBadRequest:         {http.StatusBadRequest, []string{"BAD_REQUEST"}},
	ErrCodeInvalidInput:       {http.StatusBadRequest, []string{"INVALID_INPUT", "INVALID_TENANT", "INVALID_FILE_NAME"}},
	ErrCodeInvalidJSON:        {http.StatusBadRequest, nil},

	ErrCodeUnauthorized: {http.StatusUnauthorized, []string{"UNAUTHORIZED"}},
	ErrCodeRateLimited:  {http.StatusTooManyRequests, nil},

	ErrCodeNotFound:            {http.StatusNotFound, []string{"NOT_FOUND"}},
	ErrCodeAlreadyExists:       {http.StatusConflict, []string{"ALREADY_EXISTS"}},
	ErrCodeConcurrencyConflict: {http.StatusConflict, []string{"CONCURRENCY_CONFLICT"}},
	ErrCodeInvalidState:        {http.StatusUnprocessableEntity, []string{"INVALID_STATE"}},

	ErrCodeInvalidProfile: {http.StatusBadRequest, []string{
		"INVALID_PROFILE_NAME", "INVALID_DELIMITER", "INVALID_ENCODING",
		"INVALID_TRANSFORMATION", "INVALID_VALIDATION_RULES",
	}},
	ErrCodeInvalidMapping:  {http.StatusBadRequest, []string{"INVALID_COLUMN_MAPPING"}},
	ErrCodeImportFailed:    {http.StatusInternalServerError, nil},
	ErrCodeStorageDisabled: {http.StatusServiceUnavailable, []string{"STORAGE_DISABLED"}},

	csvimport.ErrCodeImportInvalidFile:         {http.StatusUnprocessableEntity, nil},
	csvimport.ErrCodeImportEmptyFile:           {http.StatusUnprocessableEntity, nil},
	csvimport.ErrCodeImportInvalidEncoding:     {http.StatusUnprocessableEntity, nil},
	csvimport.ErrCodeImportUnsupportedEncoding: {http.StatusUnprocessableEntity, nil},
	csvimport.ErrCodeImportCSVParsing:          {http.StatusUnprocessableEntity, nil},
	csvimport.ErrCodeImportMissingHeader:       {http.StatusUnprocessableEntity, nil},
	ErrCodeUnsupportedFormat:                   {http.StatusUnsupportedMediaType, nil},
	ErrCodeFileTooLarge:                        {http.StatusRequestEntityTooLarge, nil},
}

var fromDomain = func() map[string]string {
	m := make(map[string]string)
	for api, spec := range codeTable {
		for _, d := range spec.domain {
			m[d] = api
		}
	}
	return m
}()

// APICode translates a domain error code. API codes and unknown codes pass through.
func APICode(code string) string {
	if api, ok := fromDomain[code]; ok {
		return api
	}
	return code
}

// HTTPStatus is the response status for an API or domain code, 500 when unknown.
func HTTPStatus(code string) int {
	if spec, ok := codeTable[APICode(code)]; ok {
		return spec.status
	}
	return http.StatusInternalServerError
}
