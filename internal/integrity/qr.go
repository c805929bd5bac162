package integrity

import (
	qrcode "github.com/skip2/go-qrcode"

	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

// QRCodePNG renders a verification code into a scannable PNG image.
func QRCodePNG(code string, size int) ([]byte, error) {
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "verification code required")
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr code")
	}
	return png, nil
}
