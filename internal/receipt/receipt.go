// Package receipt renders the QR code handed to a citizen after filing, so a
// grievance can be followed from a phone without an account.
package receipt

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

const size = 256

// TrackingURL is the public link to complaint id.
func TrackingURL(baseURL string, id int64) string {
	return strings.TrimRight(baseURL, "/") + "/complaints/" + strconv.FormatInt(id, 10)
}

// PNG encodes the tracking link of complaint id as a QR code image.
func PNG(baseURL string, id int64) ([]byte, error) {
	png, err := qrcode.Encode(TrackingURL(baseURL, id), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// DataURL returns the QR code inline, for clients that embed it in HTML.
func DataURL(baseURL string, id int64) (string, error) {
	png, err := PNG(baseURL, id)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
