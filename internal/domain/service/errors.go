package service

import (
	"errors"
	"fmt"

	"heliowatch/internal/domain/models"
)

// ErrModelUnavailable matches any ModelUnavailableError.
var ErrModelUnavailable = errors.New("model unavailable")

// ModelUnavailableError reports that no model artifact is registered
// for the requested instrument and kind.
type ModelUnavailableError struct {
	Instrument models.Instrument
	Kind       ModelKind
}

func (e *ModelUnavailableError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("no model registered for instrument %s", e.Instrument)
	}
	return fmt.Sprintf("no %s model registered for instrument %s", e.Kind, e.Instrument)
}

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

// ErrPredictionFailure matches any PredictionError.
var ErrPredictionFailure = errors.New("prediction failed")

// PredictionError reports that a model call failed, timed out, or
// returned output that did not pass validation.
type PredictionError struct {
	Ref ModelRef
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction with model %s: %v", e.Ref, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

func (e *PredictionError) Is(target error) bool {
	return target == ErrPredictionFailure
}
