// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"encoding/base64"
	"fmt"
	"strings"

	"partybloom/internal/ai"
)

// MaxUploadBytes caps a decoded inspiration image.
const MaxUploadBytes = 8 << 20

var uploadTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// DecodeDataURI parses a base64 image data: URI into an attachment. Errors
// are *InvalidInputError.
func DecodeDataURI(uri string) (ai.Attachment, error) {
	mime, payload, err := parseDataURI(uri)
	if err != nil {
		return ai.Attachment{}, &InvalidInputError{Message: "Inspiration image must be a base64 encoded data URI"}
	}
	if !uploadTypes[mime] {
		return ai.Attachment{}, &InvalidInputError{Message: fmt.Sprintf("Unsupported inspiration image type %q", mime)}
	}
	tooLarge := &InvalidInputError{Message: "Inspiration image is too large (max 8 MB)"}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxUploadBytes+2 {
		return ai.Attachment{}, tooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ai.Attachment{}, &InvalidInputError{Message: "Inspiration image must be a base64 encoded data URI"}
	}
	if len(data) > MaxUploadBytes {
		return ai.Attachment{}, tooLarge
	}
	return ai.Attachment{MimeType: mime, Data: data}, nil
}

// SplitDataURI returns the media type and decoded bytes of a
// "data:<mime>;base64,<payload>" URI.
func SplitDataURI(uri string) (string, []byte, error) {
	mime, payload, err := parseDataURI(uri)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return mime, data, nil
}

func parseDataURI(uri string) (mime, payload string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return "", "", fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("data URI has no payload")
	}
	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", "", fmt.Errorf("data URI is not base64")
	}
	return strings.ToLower(mime), payload, nil
}
