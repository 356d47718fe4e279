package ocr

import "errors"

var (
	// ErrDecode is returned when the input bytes are not a valid/complete image.
	ErrDecode = errors.New("image decode failed")
	// ErrEmptyImage is returned by the preprocessing steps for zero-size images.
	ErrEmptyImage = errors.New("image has zero size")
	// ErrRecognition is returned when both the processed and the original image
	// could not be recognized.
	ErrRecognition = errors.New("text recognition failed")
)
