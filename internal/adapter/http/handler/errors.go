package handler

import (
	"errors"
	"net/http"

	"gds-payments/internal/adapter/http/dto"
	"gds-payments/pkg/apperror"
)

// bindError maps a request decoding failure to a client error.
func bindError(err error) *apperror.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrBodyTooLarge()
	}
	return apperror.Validation(dto.ValidationMessage(err))
}
