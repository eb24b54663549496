package models

import "errors"

// Recoverable pipeline failures. The HTTP boundary maps each to a distinct
// response; anything else propagates as an internal error.
var (
	// ErrInsufficientHistory: fewer usable rows remain after indicator
	// warm-up than the model's input window requires.
	ErrInsufficientHistory = errors.New("insufficient history for model window")

	// ErrArtifactNotFound: no trained model/scaler artifact exists for the
	// requested pair and period.
	ErrArtifactNotFound = errors.New("model artifact not found")

	ErrUnsupportedCurrencyPair = errors.New("unsupported currency pair")
	ErrUnsupportedPeriod       = errors.New("unsupported period")

	// ErrPairExists: POST /symbol for a pair that is already registered.
	ErrPairExists = errors.New("currency pair already exists")
)
