package dps

import "errors"

var (
	// ErrDecode indicates a phase value is not valid base64
	ErrDecode = errors.New("phase decode error")

	// ErrMalformedPacket indicates a decoded phase record is too short
	ErrMalformedPacket = errors.New("malformed phase packet")

	// ErrNoDPS indicates a status payload carries no data points
	ErrNoDPS = errors.New("payload has no dps")
)
