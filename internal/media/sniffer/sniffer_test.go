package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want Result
	}{
		{
			name: "png",
			head: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0},
			want: Result{Ext: "png", MIME: "image/png"},
		},
		{
			name: "jpeg",
			head: []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10},
			want: Result{Ext: "jpg", MIME: "image/jpeg"},
		},
		{
			name: "webp",
			head: []byte("RIFF\x24\x00\x00\x00WEBPVP8 "),
			want: Result{Ext: "webp", MIME: "image/webp"},
		},
		{
			name: "gif87a",
			head: []byte("GIF87a\x01\x00"),
			want: Result{Ext: "gif", MIME: "image/gif"},
		},
		{
			name: "gif89a",
			head: []byte("GIF89a\x01\x00"),
			want: Result{Ext: "gif", MIME: "image/gif"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectUnknown(t *testing.T) {
	for _, head := range [][]byte{
		nil,
		{},
		[]byte("<svg xmlns="),
		{0x89, 'P'},
		[]byte("RIFF\x24\x00\x00\x00WAVE"),
	} {
		_, err := Detect(head)
		assert.ErrorIs(t, err, ErrUnknownType)
	}
}

func TestExtForMIME(t *testing.T) {
	assert.Equal(t, "jpg", ExtForMIME("image/jpeg"))
	assert.Equal(t, "webp", ExtForMIME("image/webp"))
	assert.Equal(t, "gif", ExtForMIME("image/gif"))
	// Unknown types fall back to png, the model's default output format.
	assert.Equal(t, "png", ExtForMIME("application/octet-stream"))
	assert.Equal(t, "png", ExtForMIME(""))
}
