// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package store

import "errors"

// Sentinel errors for store operations. Backends wrap them with %w so callers
// can classify failures with errors.Is.
var (
	// ErrNotFound indicates the requested record does not exist or has been
	// soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation, such as a duplicate edge.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input parameters are invalid or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabase indicates a general database error occurred.
	ErrDatabase = errors.New("database error")
)
