package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent is returned when the content is empty or whitespace only.
	ErrEmptyContent = errors.New("qrcode: content cannot be empty")
	// ErrFailedToGenerate is returned when the encoder rejects the content.
	ErrFailedToGenerate = errors.New("qrcode: failed to generate")
)

const (
	// DefaultSize is the image edge length in pixels.
	DefaultSize = 256

	dataURLPrefix = "data:image/png;base64,"
)

type options struct {
	size  int
	level skipqrcode.RecoveryLevel
}

// Option configures rendering.
type Option func(*options)

// WithSize sets the image edge length in pixels. Non-positive values keep the default.
func WithSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.size = size
		}
	}
}

// WithHighRecovery switches to the highest error correction level.
// Useful when the code is printed or displayed small.
func WithHighRecovery() Option {
	return func(o *options) {
		o.level = skipqrcode.Highest
	}
}

// PNG renders content as a PNG image.
func PNG(content string, opts ...Option) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	o := options{size: DefaultSize, level: skipqrcode.Medium}
	for _, opt := range opts {
		opt(&o)
	}

	img, err := skipqrcode.Encode(content, o.level, o.size)
	if err != nil {
		return nil, errors.Join(ErrFailedToGenerate, err)
	}
	return img, nil
}

// DataURL renders content as a base64 PNG data URL.
func DataURL(content string, opts ...Option) (string, error) {
	img, err := PNG(content, opts...)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(img), nil
}
