// Package mlerr defines the error taxonomy shared by the dataset, features and transform packages.
//
// Every typed error matches one of the sentinel values through errors.Is, so callers can branch on
// the kind of failure without depending on the concrete type:
//
//	if errors.Is(err, mlerr.ErrColumn) { ... }
package mlerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrConfig          = errors.New("invalid configuration")
	ErrNotFound        = errors.New("not found")
	ErrColumn          = errors.New("missing column")
	ErrTransfer        = errors.New("transfer failed")
	ErrNotFitted       = errors.New("not fitted")
	ErrChecksum        = errors.New("checksum mismatch")
	ErrStratify        = errors.New("unable to stratify")
	ErrUnknownCategory = errors.New("unknown category")
)

// ConfigError reports an invalid or insufficient configuration value.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
	Valid  []string
}

// NewConfigError returns a ConfigError for field with a free form reason.
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// InvalidChoice returns a ConfigError for a value that is not part of a closed set.
func InvalidChoice(field, value string, valid []string) *ConfigError {
	return &ConfigError{
		Field:  field,
		Value:  value,
		Reason: "invalid value",
		Valid:  valid,
	}
}

func (e *ConfigError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Field)
	sb.WriteString(": ")
	sb.WriteString(e.Reason)

	if e.Value != "" {
		fmt.Fprintf(&sb, " %q", e.Value)
	}

	if len(e.Valid) > 0 {
		fmt.Fprintf(&sb, ", expected one of [%s]", strings.Join(e.Valid, ", "))
	}

	return sb.String()
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// NotFoundError reports an expected file that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return "file not found: " + e.Path }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ColumnError lists columns requested from a table that does not hold them.
type ColumnError struct {
	Columns []string
}

func (e *ColumnError) Error() string {
	return "missing columns: [" + strings.Join(e.Columns, ", ") + "]"
}

func (e *ColumnError) Is(target error) bool { return target == ErrColumn }

// TransferError reports a non-success HTTP status.
type TransferError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("unable to fetch %s: %s", e.URL, e.Status)
}

func (e *TransferError) Is(target error) bool { return target == ErrTransfer }

// Temporary reports whether retrying the same request may succeed.
func (e *TransferError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
