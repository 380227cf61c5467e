package resource

import (
	"errors"
	"fmt"
)

// Error code constants organized by phase
// AH100-AH199: Configuration errors
// AH200-AH299: Validation errors
// AH300-AH399: Resolution errors
const (
	// Configuration errors (AH100-AH199)
	CodeDuplicateResource     = "AH100"
	CodeDuplicateEndpoint     = "AH101"
	CodeInvalidSubstitution   = "AH102"
	CodeUnsupportedValue      = "AH103"
	CodeRegistryFrozen        = "AH104"
	CodeMissingCapability     = "AH105"
	CodeInvalidResource       = "AH106"
	CodeResourceNotRegistered = "AH107"
	CodeUnknownOutput         = "AH108"
	CodeUnknownTemplate       = "AH109"
	CodeInvalidExpression     = "AH110"

	// Validation errors (AH200-AH299)
	CodeMissingField      = "AH200"
	CodeEmptyField        = "AH201"
	CodeUnknownType       = "AH202"
	CodeDanglingReference = "AH203"
	CodeMissingConnection = "AH204"
	CodeInvalidEndpoint   = "AH205"
	CodeUnknownParameter  = "AH206"

	// Resolution errors (AH300-AH399)
	CodeConnectionStringUnavailable = "AH300"
	CodeEndpointNotAllocated        = "AH301"
	CodeOutputUnavailable           = "AH302"
	CodeInconsistentReference       = "AH303"
	CodeParameterUnavailable        = "AH304"
)

var (
	// ErrConfiguration matches every error raised while the application model is being built.
	ErrConfiguration = errors.New("configuration error")
	// ErrResolution matches every error raised while deferred values are evaluated.
	ErrResolution = errors.New("resolution error")
	// ErrRegistryFrozen is returned by mutating registry calls once a commit has started.
	ErrRegistryFrozen = errors.New("registry is frozen")
)

// Coded is implemented by errors that carry a stable diagnostic code.
type Coded interface {
	Code() string
}

// DuplicateNameError means a resource name is already taken in the registry.
type DuplicateNameError struct {
	Name string
}

func (e DuplicateNameError) Error() string {
	return fmt.Sprintf("cannot add resource '%s': a resource with that name already exists", e.Name)
}

func (e DuplicateNameError) Code() string { return CodeDuplicateResource }
func (e DuplicateNameError) Is(target error) bool { return target == ErrConfiguration }

// DuplicateEndpointError means an endpoint name (compared case-insensitively) is already
// declared on the resource.
type DuplicateEndpointError struct {
	Resource string
	Endpoint string
}

func (e DuplicateEndpointError) Error() string {
	return fmt.Sprintf("endpoint with name '%s' already exists on resource '%s'", e.Endpoint, e.Resource)
}

func (e DuplicateEndpointError) Code() string { return CodeDuplicateEndpoint }
func (e DuplicateEndpointError) Is(target error) bool { return target == ErrConfiguration }

// SubstitutionError means a substitution request could not be honored.
type SubstitutionError struct {
	Name   string
	Reason string
}

func (e SubstitutionError) Error() string {
	return fmt.Sprintf("cannot substitute resource '%s': %s", e.Name, e.Reason)
}

func (e SubstitutionError) Code() string { return CodeInvalidSubstitution }
func (e SubstitutionError) Is(target error) bool { return target == ErrConfiguration }

// UnsupportedValueError means an environment or manifest value is neither a literal nor a
// ValueProvider.
type UnsupportedValueError struct {
	Resource string
	Key      string
	Value    any
}

func (e UnsupportedValueError) Error() string {
	return fmt.Sprintf("unsupported value type %T for key '%s' on resource '%s'", e.Value, e.Key, e.Resource)
}

func (e UnsupportedValueError) Code() string { return CodeUnsupportedValue }
func (e UnsupportedValueError) Is(target error) bool { return target == ErrConfiguration }

// ConfigurationError covers the remaining configuration-time failures.
type ConfigurationError struct {
	ErrCode  string
	Resource string
	Message  string
}

func (e *ConfigurationError) Error() string {
	if e.Resource == "" {
		return e.Message
	}
	return fmt.Sprintf("resource '%s': %s", e.Resource, e.Message)
}

func (e *ConfigurationError) Code() string { return e.ErrCode }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ResolutionError is raised when a deferred value cannot be produced.
type ResolutionError struct {
	ErrCode  string
	Resource string
	Message  string
}

func (e *ResolutionError) Error() string {
	return e.Message
}

func (e *ResolutionError) Code() string { return e.ErrCode }
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

func configurationf(code, resource, format string, args ...any) error {
	return &ConfigurationError{ErrCode: code, Resource: resource, Message: fmt.Sprintf(format, args...)}
}

func resolutionf(code, resource, format string, args ...any) error {
	return &ResolutionError{ErrCode: code, Resource: resource, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the diagnostic code carried by err, or "" when it has none.
func CodeOf(err error) string {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
