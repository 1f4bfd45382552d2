// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Aspect selects the output shape of a generated image.
type Aspect int

const (
	AspectSquare   Aspect = iota // 1:1
	AspectPortrait               // 2:3
)

// Image is a generated picture. Providers return either a fetchable URL or
// inline bytes.
type Image struct {
	URL      string
	Data     []byte
	MimeType string
}

// Src returns a value usable as an <img> source: the URL when present,
// otherwise a base64 data: URI.
func (img *Image) Src() string {
	if img == nil {
		return ""
	}
	if img.URL != "" {
		return img.URL
	}
	if len(img.Data) == 0 {
		return ""
	}
	mime := img.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ImageGenerator is an optional interface that AI providers can implement
// to support image generation. Claude and Mistral are text-only.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, aspect Aspect) (*Image, error)
}

// ImageProvider returns the provider selected for image generation.
func (r *Registry) ImageProvider() (ImageGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.activeImage]
	if !ok {
		return nil, fmt.Errorf("ai: no image provider configured for %q", r.activeImage)
	}
	ig, ok := p.(ImageGenerator)
	if !ok {
		return nil, fmt.Errorf("ai: provider %q does not support image generation", p.Name())
	}
	return ig, nil
}

// GenerateImage calls the image provider.
func (r *Registry) GenerateImage(ctx context.Context, prompt string, aspect Aspect) (*Image, error) {
	ig, err := r.ImageProvider()
	if err != nil {
		return nil, err
	}
	return ig.GenerateImage(ctx, prompt, aspect)
}

// SupportsImageGeneration returns true if the image provider can generate images.
func (r *Registry) SupportsImageGeneration() bool {
	_, err := r.ImageProvider()
	return err == nil
}

// SetImageProvider switches the image provider at runtime.
func (r *Registry) SetImageProvider(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[name]
	if !ok {
		return fmt.Errorf("ai: provider %q is not available (no API key?)", name)
	}
	if _, ok := p.(ImageGenerator); !ok {
		return fmt.Errorf("ai: provider %q does not support image generation", name)
	}
	r.activeImage = name
	return nil
}

// ImageProviderName returns the name of the image provider.
func (r *Registry) ImageProviderName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeImage
}
