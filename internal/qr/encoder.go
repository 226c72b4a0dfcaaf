package qr

import (
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Payload is the trip data embedded in the scannable code. The serialized
// form is what boarding scanners send back on verification, so field order
// and naming are part of the wire contract.
type Payload struct {
	TicketID    string `json:"ticketId"`
	UserID      string `json:"userId"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	BookingDate string `json:"bookingDate"`
}

// Encode serializes the payload and renders it as a 256x256 PNG QR image.
func Encode(p *Payload) (data string, png []byte, err error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal qr payload: %w", err)
	}

	png, err = qrcode.Encode(string(raw), qrcode.Medium, 256)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode qr image: %w", err)
	}

	return string(raw), png, nil
}
