package errors

import "fmt"

// -----------------------------------------------------------------------------
// Computation Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrDimensionMismatch indicates a multiply was attempted with incompatible
	// shapes. The operation yields an empty matrix; the error is diagnostic only.
	ErrDimensionMismatch = "DIMENSION_MISMATCH"
)

// -----------------------------------------------------------------------------
// Validation Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrInvalidSelection indicates a token index outside the current sequence.
	ErrInvalidSelection = "INVALID_SELECTION"

	// ErrInvalidHyperparameter indicates a hyperparameter value the model cannot use.
	ErrInvalidHyperparameter = "INVALID_HYPERPARAMETER"

	// ErrUnknownHyperparameter indicates a hyperparameter name that does not exist.
	ErrUnknownHyperparameter = "UNKNOWN_HYPERPARAMETER"
)

// -----------------------------------------------------------------------------
// Configuration Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = "CONFIG_NOT_FOUND"

	// ErrConfigParseFailed indicates the configuration file is not valid YAML.
	ErrConfigParseFailed = "CONFIG_PARSE_FAILED"

	// ErrConfigInvalid indicates configuration values are invalid.
	ErrConfigInvalid = "CONFIG_INVALID"

	// ErrConfigWriteFailed indicates the config file could not be written.
	ErrConfigWriteFailed = "CONFIG_WRITE_FAILED"
)

// -----------------------------------------------------------------------------
// Command and IO Error Codes
// -----------------------------------------------------------------------------

const (
	// ErrCommandInvalid indicates a shell command with bad or missing arguments.
	ErrCommandInvalid = "COMMAND_INVALID"

	// ErrExportWriteFailed indicates a rendered figure could not be written.
	ErrExportWriteFailed = "EXPORT_WRITE_FAILED"
)

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// DimensionMismatch reports a multiply of an (aRows x aCols) by a (bRows x bCols) matrix.
func DimensionMismatch(aRows, aCols, bRows, bCols int) *AttnError {
	return Newf(ErrDimensionMismatch, CategoryComputation,
		"cannot multiply %dx%d by %dx%d", aRows, aCols, bRows, bCols).
		WithContext("left", fmt.Sprintf("%dx%d", aRows, aCols)).
		WithContext("right", fmt.Sprintf("%dx%d", bRows, bCols))
}

// InvalidSelection reports a selection index outside [0, count).
func InvalidSelection(index, count int) *AttnError {
	err := Newf(ErrInvalidSelection, CategoryValidation,
		"token index %d is out of range", index).
		WithContext("index", fmt.Sprint(index)).
		WithContext("tokens", fmt.Sprint(count))
	if count == 0 {
		return err.WithSuggestion("Enter some text before selecting a token")
	}
	return err.WithSuggestion(fmt.Sprintf("Choose an index between 0 and %d", count-1))
}

// InvalidHyperparameter reports a rejected hyperparameter value.
func InvalidHyperparameter(field string, value float64, reason string) *AttnError {
	return Newf(ErrInvalidHyperparameter, CategoryValidation,
		"%s: %s", field, reason).
		WithContext("field", field).
		WithContext("value", fmt.Sprint(value))
}

// UnknownHyperparameter reports a hyperparameter name that is not recognised.
func UnknownHyperparameter(name string) *AttnError {
	return Newf(ErrUnknownHyperparameter, CategoryValidation,
		"unknown hyperparameter %q", name).
		WithContext("name", name).
		WithSuggestion("Use one of: modelDimension, numHeads, dropoutRate, maxSeqLength")
}

// CommandInvalid reports a malformed shell command.
func CommandInvalid(command, usage string) *AttnError {
	return Newf(ErrCommandInvalid, CategoryCommand, "invalid arguments for %s", command).
		WithContext("command", command).
		WithSuggestion("Usage: " + usage)
}
