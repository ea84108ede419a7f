// Package qrimage renders outpass tokens into scannable artifacts.
// The encode direction serves the issuer flows; decoding a scan is the
// token codec's job since the QR content is the signed token string.
package qrimage

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Size is the pixel width of generated QR images
const Size = 256

// RenderPNG encodes the token string into a PNG QR image. High error
// correction so worn phone screens still scan at the gate.
func RenderPNG(token string) ([]byte, error) {
	png, err := qrcode.Encode(token, qrcode.High, Size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

// RenderDataURL encodes the token into a data URL suitable for direct
// embedding in an <img> tag.
func RenderDataURL(token string) (string, error) {
	png, err := RenderPNG(token)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
