// Package sniffer detects raster image types from magic numbers. The edit
// path trusts sniffed bytes over the MIME type a client declared.
package sniffer

import (
	"bytes"
	"errors"
)

var ErrUnknownType = errors.New("sniffer: unknown image type")

type Result struct {
	Ext  string
	MIME string
}

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Detect inspects the head of an image payload. Only raster formats the
// generation models emit or accept are recognized.
func Detect(head []byte) (Result, error) {
	switch {
	case isPNG(head):
		return Result{Ext: "png", MIME: "image/png"}, nil
	case isJPEG(head):
		return Result{Ext: "jpg", MIME: "image/jpeg"}, nil
	case isWEBP(head):
		return Result{Ext: "webp", MIME: "image/webp"}, nil
	case isGIF(head):
		return Result{Ext: "gif", MIME: "image/gif"}, nil
	}
	return Result{}, ErrUnknownType
}

func isPNG(head []byte) bool {
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isJPEG(head []byte) bool {
	return len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

// ExtForMIME maps a MIME type to the file suffix used in storage keys.
func ExtForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	return "png"
}
