// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// database queries, composed service URLs, or cache keys. Using these
// validators prevents injection attacks (operator injection into document
// queries, URL manipulation through crafted dimension values).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// dimensionPattern matches valid CDT dimension, parameter and category names.
// Allows: letters, digits, underscores; must start with a letter.
// Max length: 64 characters.
var dimensionPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// valuePattern matches valid dimension values.
// Allows: letters, digits, spaces and common punctuation; rejects control
// characters and the '$' / '{' / '}' characters that carry meaning in
// document queries and address templates.
var valuePattern = regexp.MustCompile(`^[A-Za-z0-9 _.,:+@/'()\-]{1,256}$`)

// ValidateDimension validates a CDT dimension, parameter or support
// category name before it reaches a document-store query.
//
// Valid names:
//   - 1-64 characters
//   - Letters, digits, underscores
//   - Must start with a letter
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateDimension(item.Dimension); err != nil {
//	    return nil, fmt.Errorf("invalid dimension: %w", err)
//	}
//	// Safe to use in an association query
func ValidateDimension(name string) error {
	if name == "" {
		return fmt.Errorf("dimension name cannot be empty")
	}
	if !dimensionPattern.MatchString(name) {
		return fmt.Errorf("invalid dimension name: %q (must be 1-64 alphanumeric or underscore chars, starting with a letter)", name)
	}
	return nil
}

// ValidateValue validates a user-supplied dimension value. Values flow
// into document queries and composed addresses, so characters with
// operator or template meaning are rejected.
func ValidateValue(value string) error {
	if value == "" {
		return fmt.Errorf("dimension value cannot be empty")
	}
	if !valuePattern.MatchString(value) {
		return fmt.Errorf("invalid dimension value: %q", value)
	}
	return nil
}

// ValidateCategories validates multiple support category names.
// Returns an error listing all invalid categories if any fail validation.
func ValidateCategories(categories []string) error {
	var invalid []string
	for _, c := range categories {
		if err := ValidateDimension(c); err != nil {
			invalid = append(invalid, c)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid categories: %v", invalid)
	}
	return nil
}

// SanitizeDimension normalizes and validates a dimension or category name.
// Returns the trimmed name if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	safeName, err := validation.SanitizeDimension(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeName is trimmed and validated
func SanitizeDimension(name string) (string, error) {
	normalized := strings.TrimSpace(name)
	if err := ValidateDimension(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
