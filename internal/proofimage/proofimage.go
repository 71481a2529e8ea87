// Package proofimage turns a photo on disk or in memory into an upload-ready
// proof attachment.
package proofimage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
)

// MaxBytes is the largest proof image accepted for upload.
const MaxBytes = 10 << 20

// blurHashSize bounds the thumbnail the placeholder is computed from.
const blurHashSize = 64

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// Image is a decoded, validated proof photo.
type Image struct {
	Attachment domain.Attachment
	Format     string // jpeg, png, gif or webp
	Width      int
	Height     int
	BlurHash   string // 4x3 component placeholder
}

// Load reads and prepares the image at path.
func Load(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat proof image: %w", err)
	}
	if info.Size() > MaxBytes {
		return nil, clienterrors.Validation(fmt.Sprintf("proof image exceeds %d bytes", MaxBytes))
	}

	data, err := os.ReadFile(path) //#nosec G304 -- user-selected file
	if err != nil {
		return nil, fmt.Errorf("read proof image: %w", err)
	}
	return Prepare(filepath.Base(path), data)
}

// Prepare validates data as a supported image and builds its attachment.
// The filename extension is corrected to match the detected format.
func Prepare(filename string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, clienterrors.Validation("proof image is empty")
	}
	if len(data) > MaxBytes {
		return nil, clienterrors.Validation(fmt.Sprintf("proof image exceeds %d bytes", MaxBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, clienterrors.Validation("unsupported image format").WithCause(err)
	}
	contentType, ok := contentTypes[format]
	if !ok {
		return nil, clienterrors.Validation("unsupported image format: " + format)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, clienterrors.Validation("corrupt image").WithCause(err)
	}

	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return nil, fmt.Errorf("encode blurhash: %w", err)
	}

	return &Image{
		Attachment: domain.Attachment{
			Filename:    normalizeFilename(filename, format),
			ContentType: contentType,
			Data:        data,
		},
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		BlurHash: hash,
	}, nil
}

func normalizeFilename(name, format string) string {
	ext := extensions[format]
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "proof"
	}
	return base + ext
}

// thumbnail scales img to fit within blurHashSize, keeping the aspect ratio.
func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= blurHashSize && h <= blurHashSize {
		return img
	}

	dw, dh := blurHashSize, blurHashSize
	if w > h {
		dh = max(1, h*blurHashSize/w)
	} else {
		dw = max(1, w*blurHashSize/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
