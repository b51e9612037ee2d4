package qr

import (
	"fmt"
	"image"
	"log"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	goqrcode "github.com/skip2/go-qrcode"
)

// Decoder finds a single QR code in a frame. It keeps one reader around, so
// it must not be shared between goroutines decoding at the same time.
type Decoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewDecoder(tryHarder bool) *Decoder {
	hints := map[gozxing.DecodeHintType]interface{}{}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return &Decoder{reader: qrcode.NewQRCodeReader(), hints: hints}
}

// Decode returns the code's text. A frame without a code, or one that can't
// be read at all, reports false.
func (d *Decoder) Decode(img image.Image) (text string, found bool) {
	if img == nil || img.Bounds().Empty() {
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("qr decoder panicked: %v", r)
			text, found = "", false
		}
	}()
	defer d.reader.Reset()

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		return "", false
	}
	return result.GetText(), true
}

// Encode renders text as a square QR code of size pixels.
func Encode(text string, size int) (image.Image, error) {
	code, err := goqrcode.New(text, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("error encoding qr code: %w", err)
	}
	return code.Image(size), nil
}

func WritePNG(text string, size int, path string) error {
	if err := goqrcode.WriteFile(text, goqrcode.Medium, size, path); err != nil {
		return fmt.Errorf("error writing qr code to %s: %w", path, err)
	}
	return nil
}
