// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"fmt"
	"strings"
)

// InvalidInputError means the caller did not supply usable input. Message is
// safe to show to the client.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

// UpstreamFormatError means the text model answered but the answer could not
// be decoded into a plan. Problems lists each missing or malformed field.
type UpstreamFormatError struct {
	Problems []string
	Err      error
}

func (e *UpstreamFormatError) Error() string {
	msg := "theme: unusable plan from model"
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamFormatError) Unwrap() error { return e.Err }

// UpstreamUnavailableError wraps a failed call to the text model.
type UpstreamUnavailableError struct {
	Err error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("theme: text model unavailable: %v", e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }
