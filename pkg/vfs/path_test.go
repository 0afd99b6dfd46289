package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestJoinPath_Root(t *testing.T) {
	path, err := JoinPath(nil, "Docs")
	require.NoError(t, err)
	assert.Equal(t, "/Docs", path)

	path, err = JoinPath(strPtr(""), "Docs")
	require.NoError(t, err)
	assert.Equal(t, "/Docs", path)
}

func TestJoinPath_Nested(t *testing.T) {
	path, err := JoinPath(strPtr("/Docs"), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/Docs/report.pdf", path)

	path, err = JoinPath(strPtr("/Docs/2024"), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "/Docs/2024/a.txt", path)
}

func TestJoinPath_InvalidNames(t *testing.T) {
	tests := []struct {
		label string
		name  string
	}{
		{"empty", ""},
		{"separator", "a/b"},
		{"leading separator", "/a"},
		{"bare separator", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			_, err := JoinPath(strPtr("/Docs"), tt.name)
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		name string
		want *string
	}{
		{"report.pdf", strPtr(".pdf")},
		{"ARCHIVE.ZIP", strPtr(".zip")},
		{"photo.final.JPEG", strPtr(".jpeg")},
		{"README", nil},
		{".gitignore", nil},
		{"trailing.", nil},
	}

	for _, tt := range tests {
		got := ExtensionOf(tt.name)
		if tt.want == nil {
			assert.Nil(t, got, tt.name)
		} else {
			require.NotNil(t, got, tt.name)
			assert.Equal(t, *tt.want, *got, tt.name)
		}
	}
}

func TestFakeExtensionFor(t *testing.T) {
	tests := []struct {
		typ  ItemType
		want *string
	}{
		{TypeDocument, strPtr(".pdf")},
		{TypeVideo, strPtr(".mp4")},
		{TypeImage, strPtr(".jpg")},
		{TypeAudio, strPtr(".mp3")},
		{TypeArchive, strPtr(".zip")},
		{TypeCode, strPtr(".js")},
		{TypeText, strPtr(".txt")},
		{TypeFolder, nil},
		{TypeOther, nil},
	}

	for _, tt := range tests {
		got := FakeExtensionFor(tt.typ)
		if tt.want == nil {
			assert.Nil(t, got, string(tt.typ))
		} else {
			require.NotNil(t, got, string(tt.typ))
			assert.Equal(t, *tt.want, *got, string(tt.typ))
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor(strPtr(".pdf")))
	assert.Equal(t, "image/jpeg", ContentTypeFor(strPtr(".jpg")))
	assert.Equal(t, "image/jpeg", ContentTypeFor(strPtr(".jpeg")))
	assert.Equal(t, "text/plain", ContentTypeFor(strPtr(".txt")))
	assert.Equal(t, DefaultContentType, ContentTypeFor(strPtr(".xyz")))
	assert.Equal(t, DefaultContentType, ContentTypeFor(nil))
}

func TestItemTypeValid(t *testing.T) {
	for _, known := range ItemTypes {
		assert.True(t, known.Valid())
	}
	assert.False(t, ItemType("SPREADSHEET").Valid())
	assert.False(t, ItemType("").Valid())
}
