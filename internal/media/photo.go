// Package media validates and sanitizes photos attached to complaints.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"
)

// ErrInvalidPhoto is returned for payloads that are not an accepted image.
var ErrInvalidPhoto = errors.New("invalid photo")

// MaxPixels caps the decoded size of an image. Compressed input under the
// byte limit can still expand to gigabytes when decoded.
const MaxPixels = 40_000_000

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// NormalizePhoto accepts a data URL ("data:image/png;base64,...") or bare
// base64 image, checks its size and detected type, strips metadata and
// returns it as a data URL. The declared media type of a data URL is ignored
// in favour of the sniffed one.
func NormalizePhoto(raw string, maxBytes int) (string, error) {
	payload := strings.TrimSpace(raw)
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i < 0 || !strings.HasSuffix(payload[:i], ";base64") {
			return "", fmt.Errorf("%w: malformed data url", ErrInvalidPhoto)
		}
		payload = payload[i+1:]
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidPhoto, maxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidPhoto, maxBytes)
	}

	contentType := http.DetectContentType(data)
	if !allowedTypes[contentType] {
		return "", fmt.Errorf("%w: unsupported type %s", ErrInvalidPhoto, contentType)
	}

	clean, err := StripMetadata(data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(clean), nil
}

// StripMetadata re-encodes images to remove EXIF, GPS, and other metadata.
// GIF and WebP are returned unchanged. JPEG and PNG images larger than
// MaxPixels are rejected before decoding.
func StripMetadata(data []byte, contentType string) ([]byte, error) {
	switch contentType {
	case "image/jpeg", "image/png":
		if err := checkDimensions(data); err != nil {
			return nil, err
		}
	}

	switch contentType {
	case "image/jpeg":
		return stripJPEG(data)
	case "image/png":
		return stripPNG(data)
	default:
		return data, nil
	}
}

func stripJPEG(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding jpeg: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func stripPNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("reading image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidPhoto, cfg.Width, cfg.Height, MaxPixels)
	}
	return nil
}
