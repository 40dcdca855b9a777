package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Size is the default edge length of QR images in pixels.
const Size = 250

// PNG encodes content as a borderless QR code image of size×size pixels.
func PNG(content string, size int) ([]byte, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	q.DisableBorder = true
	return q.PNG(size)
}

// Terminal renders content as a QR code made of half-block characters.
func Terminal(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return q.ToSmallString(false), nil
}
