package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	if !IsValidation(ErrInvalidAmount) {
		t.Error("ErrInvalidAmount should classify as validation")
	}
	if !IsNotFound(ErrTabNotFound) {
		t.Error("ErrTabNotFound should classify as not found")
	}
	if !IsConflict(ErrTabNotPayable) {
		t.Error("ErrTabNotPayable should classify as conflict")
	}
	if IsValidation(ErrTabNotFound) || IsConflict(ErrTabNotFound) {
		t.Error("ErrTabNotFound must not cross-classify")
	}
	if IsValidation(errors.New("boom")) || IsNotFound(errors.New("boom")) || IsConflict(errors.New("boom")) {
		t.Error("unknown errors must not classify")
	}
}

func TestErrorClassificationSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("apply credit: %w", ErrInsufficientCredit)
	if !IsConflict(wrapped) {
		t.Error("wrapped sentinel should still classify as conflict")
	}
}
