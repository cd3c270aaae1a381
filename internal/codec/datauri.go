// Package codec converts between raw image bytes, base64 text, and
// self-describing data URIs. It sits on both sides of the pipeline: inbound
// source images arrive as base64 or data URIs, outbound results are handed
// to the presentation layer as data URIs.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedDataURI reports a data URI missing its comma, data:
	// prefix, or base64 marker.
	ErrMalformedDataURI = errors.New("codec: malformed data uri")
	// ErrDecode reports a base64 payload that failed to decode even after
	// the cleanup fallback.
	ErrDecode = errors.New("codec: undecodable base64 payload")
)

const dataURIPrefix = "data:"

// EncodeDataURI embeds data and its MIME type in a single data URI string.
func EncodeDataURI(data []byte, mimeType string) string {
	return fmt.Sprintf("%s%s;base64,%s", dataURIPrefix, mimeType, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURI splits a data URI on its first comma and decodes the
// payload. The header must begin with "data:" and carry a ";base64" marker.
func DecodeDataURI(uri string) ([]byte, string, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, "", fmt.Errorf("%w: missing comma separator", ErrMalformedDataURI)
	}
	if !strings.HasPrefix(header, dataURIPrefix) {
		return nil, "", fmt.Errorf("%w: missing data: prefix", ErrMalformedDataURI)
	}
	meta := strings.TrimPrefix(header, dataURIPrefix)
	mimeType, _, found := strings.Cut(meta, ";")
	if !found || mimeType == "" {
		return nil, "", fmt.Errorf("%w: missing mime segment", ErrMalformedDataURI)
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: missing base64 marker", ErrMalformedDataURI)
	}

	data, err := decodeLenient(payload)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

// ToImageBytes accepts either a bare base64 string or a full data URI and
// returns the decoded bytes plus the effective MIME type. A MIME type
// embedded in a data URI wins over declaredMIME; for bare payloads
// declaredMIME is used as-is.
func ToImageBytes(payload, declaredMIME string) ([]byte, string, error) {
	if strings.Contains(payload, ",") {
		header, rest, _ := strings.Cut(payload, ",")
		mimeType := declaredMIME
		if meta, ok := strings.CutPrefix(header, dataURIPrefix); ok {
			if embedded, _, found := strings.Cut(meta, ";"); found && embedded != "" {
				mimeType = embedded
			}
		}
		data, err := decodeLenient(rest)
		if err != nil {
			return nil, "", err
		}
		return data, mimeType, nil
	}

	data, err := decodeLenient(payload)
	if err != nil {
		return nil, "", err
	}
	return data, declaredMIME, nil
}

// decodeLenient strips interior whitespace before decoding and, if strict
// decoding still fails, retries once with every non-alphabet character
// removed. Upstream APIs occasionally hand back base64 with stray
// characters; the second pass recovers those payloads.
func decodeLenient(payload string) ([]byte, error) {
	cleaned := stripWhitespace(payload)
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err == nil {
		return data, nil
	}

	stripped := stripNonAlphabet(cleaned)
	if stripped == "" {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	data, retryErr := base64.StdEncoding.DecodeString(stripped)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, s)
}

func stripNonAlphabet(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '+' || r == '/' || r == '=':
			return r
		}
		return -1
	}, s)
}
