package invoice

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// ImageEncoder turns an invoice payload into a displayable image.
type ImageEncoder interface {
	Encode(payload string) ([]byte, error)
}

// QREncoder renders PNG QR codes.
type QREncoder struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewQREncoder(size int) *QREncoder {
	return &QREncoder{Size: size, Level: qrcode.Medium}
}

func (e *QREncoder) Encode(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, e.Level, e.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr image: %w", err)
	}
	return png, nil
}
