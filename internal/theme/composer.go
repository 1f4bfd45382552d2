// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package theme turns a user's idea, template or inspiration photo into a
// complete party theme: a structured plan from a text model, a hero image and
// moodboard images from an image model, merged into a models.ThemeResult.
package theme

import (
	"fmt"
	"strings"
)

// InspirationMode is how the user seeded the generation.
type InspirationMode string

const (
	ModeTemplate InspirationMode = "template"
	ModeUpload   InspirationMode = "upload"
)

// GenerationRequest is the input of one theme generation. Payload is a
// template description for ModeTemplate and a data: URI for ModeUpload.
type GenerationRequest struct {
	Vision  string
	Mode    InspirationMode
	Payload string
}

// MissingInputMessage is the client-facing message for an empty request.
const MissingInputMessage = "Please provide a description or select inspiration"

// Compose builds the instruction sent to the text model. Uploaded image bytes
// are never embedded; the instruction only mentions that an image is attached.
func Compose(req GenerationRequest) (string, error) {
	vision := strings.TrimSpace(req.Vision)
	payload := strings.TrimSpace(req.Payload)
	mode := req.Mode
	if mode == "" {
		mode = ModeTemplate
	}

	if vision == "" && payload == "" {
		return "", &InvalidInputError{Message: MissingInputMessage}
	}
	if payload != "" && mode != ModeTemplate && mode != ModeUpload {
		return "", &InvalidInputError{Message: fmt.Sprintf("Unknown inspiration type %q", req.Mode)}
	}

	switch {
	case vision != "" && payload != "" && mode == ModeTemplate:
		return fmt.Sprintf("Create a kids birthday party decoration theme that blends these into one cohesive theme:\n"+
			"User's vision: %q\nTemplate inspiration: %s", vision, payload), nil
	case vision != "" && payload != "":
		return fmt.Sprintf("Create a kids birthday party decoration theme based on:\n"+
			"User's vision: %q\nThe user has also uploaded an inspiration image for reference.", vision), nil
	case vision != "":
		return "Create a kids birthday party decoration theme based on this idea: " + vision, nil
	case mode == ModeTemplate:
		return "Create a detailed kids birthday party decoration theme for: " + payload, nil
	default:
		return "Create a kids birthday party decoration theme based on the uploaded inspiration image.", nil
	}
}
