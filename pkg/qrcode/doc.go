// Package qrcode renders provisioning URIs (or any other short payload) as
// PNG QR codes, either as raw bytes or as a data URL that can be dropped
// straight into an <img> tag or a JSON response.
//
// Rendering is pure: the same content and options always produce the same
// image and nothing is cached or written anywhere.
//
//	url, err := qrcode.DataURL(key.URI, qrcode.WithSize(320))
//	if err != nil {
//		return err
//	}
//
// Errors are sentinel values. Use errors.Is against ErrEmptyContent and
// ErrFailedToGenerate.
package qrcode
