// Package assets converts operator images between inline data URIs and raw bytes
// and re-hosts them on an object store so remote services can dereference them.
package assets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultContentType = "image/jpeg"

var ErrInvalidDataURI = errors.New("invalid data uri")

// EncodeDataURI returns data as a base64 data URI. An empty content type is sniffed from the bytes.
func EncodeDataURI(data []byte, contentType string) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether s carries an inline payload rather than a URL.
func IsDataURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}

// StripDataURIPrefix returns the base64 payload of a data URI. Values without a prefix are returned trimmed.
func StripDataURIPrefix(s string) string {
	s = strings.TrimSpace(s)
	if !IsDataURI(s) {
		return s
	}
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		return s[idx+1:]
	}
	return ""
}

// DecodeDataURI returns the raw bytes and content type of a data URI.
// Bare base64 without a data: prefix is accepted as image/jpeg.
func DecodeDataURI(uri string) ([]byte, string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}

	contentType := defaultContentType
	payload := uri
	if IsDataURI(uri) {
		header, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
		if !ok {
			return nil, "", fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
		}
		if ct := strings.TrimSuffix(header, ";base64"); ct != "" {
			contentType = ct
		}
		payload = data
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop the padding
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
		}
	}
	if len(decoded) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}

	return decoded, contentType, nil
}

// ContentTypeOf returns the declared content type of a data URI, or image/jpeg.
func ContentTypeOf(uri string) string {
	uri = strings.TrimSpace(uri)
	if !IsDataURI(uri) {
		return defaultContentType
	}
	header, _, _ := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if ct := strings.TrimSuffix(header, ";base64"); ct != "" && ct != header {
		return ct
	}
	return defaultContentType
}

func ExtensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
