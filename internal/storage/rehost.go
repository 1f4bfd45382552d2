// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"partybloom/internal/models"
	"partybloom/internal/theme"
)

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// RehostTheme uploads every data: URI image of t and replaces it with the
// public URL. URLs are left untouched. On error t is unchanged and the
// objects uploaded so far are removed.
func (c *Client) RehostTheme(ctx context.Context, userID string, t *models.ThemeResult) error {
	var uploaded []string
	fail := func(err error) error {
		c.deleteKeys(ctx, uploaded)
		return err
	}

	hero, key, err := c.rehost(ctx, userID, t.HeroImage)
	if err != nil {
		return err
	}
	if key != "" {
		uploaded = append(uploaded, key)
	}
	moodboard := make([]string, len(t.MoodboardImages))
	for i, src := range t.MoodboardImages {
		if moodboard[i], key, err = c.rehost(ctx, userID, src); err != nil {
			return fail(err)
		}
		if key != "" {
			uploaded = append(uploaded, key)
		}
	}
	t.HeroImage = hero
	t.MoodboardImages = moodboard
	return nil
}

// rehost uploads src when it is a data: URI and returns the public URL and
// the new object key. Other sources come back as-is with an empty key.
func (c *Client) rehost(ctx context.Context, userID, src string) (string, string, error) {
	if !strings.HasPrefix(src, "data:") {
		return src, "", nil
	}
	mime, data, err := theme.SplitDataURI(src)
	if err != nil {
		return "", "", fmt.Errorf("rehost image: %w", err)
	}
	ext, ok := extensions[mime]
	if !ok {
		return "", "", fmt.Errorf("rehost image: unsupported type %q", mime)
	}
	key := fmt.Sprintf("themes/%s/%s.%s", userID, uuid.NewString(), ext)
	url, err := c.Upload(ctx, key, mime, data)
	if err != nil {
		return "", "", err
	}
	return url, key, nil
}

func (c *Client) deleteKeys(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := c.Delete(ctx, key); err != nil {
			slog.Warn("delete hosted image failed", "key", key, "error", err)
		}
	}
}

// DeleteThemeImages removes the objects this storage hosts for t. Failures
// are logged; foreign URLs and data: URIs are skipped.
func (c *Client) DeleteThemeImages(ctx context.Context, t models.ThemeResult) {
	var keys []string
	for _, src := range append([]string{t.HeroImage}, t.MoodboardImages...) {
		if key, ok := c.ExtractKey(src); ok {
			keys = append(keys, key)
		}
	}
	c.deleteKeys(ctx, keys)
}
