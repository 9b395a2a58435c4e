/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a document is not found
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when attempting to create a document that already exists
	ErrAlreadyExists = errors.New("document already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrThrottled is returned when the store rejects a request due to rate limiting
	ErrThrottled = errors.New("request throttled")
)

// NotFoundError represents an error when a document is not found
type NotFoundError struct {
	Container string
	Key       string
	Err       error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Container, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// AlreadyExistsError represents an error when a document already exists
type AlreadyExistsError struct {
	Container string
	Key       string
	Err       error
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Container, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

func (e *AlreadyExistsError) Unwrap() error {
	return e.Err
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
	Err       error
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

func (e *ConditionFailedError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(container, key string) error {
	return &NotFoundError{Container: container, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(container, key string) error {
	return &AlreadyExistsError{Container: container, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// StatusCode returns the HTTP-style status code carried by a store error, or 0
// when the error does not carry one. Errors produced by this module map onto the
// status codes the Cosmos DB REST API uses for the same condition.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrConditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrThrottled), isDynamoDBThrottle(err):
		return http.StatusTooManyRequests
	}
	return 0
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsAlreadyExists checks if an error is an already exists (conflict) error
func IsAlreadyExists(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return StatusCode(err) == http.StatusPreconditionFailed
}

// IsThrottled reports whether the store rejected the request for exceeding its rate limit.
func IsThrottled(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsCanceled reports whether the operation stopped because its context ended.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isDynamoDBThrottle(err error) bool {
	var pte *types.ProvisionedThroughputExceededException
	if errors.As(err, &pte) {
		return true
	}
	var rle *types.RequestLimitExceeded
	return errors.As(err, &rle)
}
