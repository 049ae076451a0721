package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// AllowedPhotoExtensions lists the accepted job photo types.
var AllowedPhotoExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// PhotoContentType returns the content type for filename, or false when the
// extension is not an accepted photo type.
func PhotoContentType(filename string) (string, bool) {
	ct, ok := AllowedPhotoExtensions[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

// Downscale shrinks an image wider than maxWidth, keeping its aspect ratio and
// format. Smaller images and maxWidth <= 0 return body unchanged.
func Downscale(body []byte, filename string, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		return body, nil
	}
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return nil, fmt.Errorf("unsupported image %q: %w", filename, err)
	}
	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() <= maxWidth {
		return body, nil
	}

	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
