package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the rendered image edge in pixels when none is configured.
const DefaultSize = 250

// Renderer encodes attendance token payloads as QR PNG images.
type Renderer struct {
	size int
}

// NewRenderer builds a renderer with the given image size.
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{size: size}
}

// PNG encodes the payload into a PNG image.
func (r *Renderer) PNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qr payload is empty")
	}
	img, err := qrcode.Encode(payload, qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return img, nil
}
