// Package vfs defines the virtual filesystem domain model: the Item entity,
// the canonical path model, item type classification, and the static tables
// mapping types to placeholder extensions and extensions to content types.
//
// The namespace decouples logical structure from physical bytes. An Item row
// is the sole source of truth for hierarchy; bytes for real items live in a
// blob store addressed by Item.FilePath. Fake items exist as metadata only.
package vfs

import "time"

// ItemType classifies an item within the virtual namespace.
type ItemType string

const (
	TypeFolder   ItemType = "FOLDER"
	TypeDocument ItemType = "DOCUMENT"
	TypeImage    ItemType = "IMAGE"
	TypeVideo    ItemType = "VIDEO"
	TypeAudio    ItemType = "AUDIO"
	TypeArchive  ItemType = "ARCHIVE"
	TypeCode     ItemType = "CODE"
	TypeText     ItemType = "TEXT"
	TypeOther    ItemType = "OTHER"
)

// ItemTypes lists every valid ItemType.
var ItemTypes = []ItemType{
	TypeFolder, TypeDocument, TypeImage, TypeVideo, TypeAudio,
	TypeArchive, TypeCode, TypeText, TypeOther,
}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Item is a single metadata row representing a file or folder in the virtual
// namespace. It is the sole persisted entity.
//
// Invariants (enforced by the service and repository layers):
//   - Path == (ParentPath ?? "") + "/" + Name, globally unique
//   - ParentPath, when set, equals the Path of an existing FOLDER item
//   - IsReal == false implies FilePath == nil and Size == nil
//   - IsReal == true implies FilePath != nil
//   - FOLDER items never carry Size, FilePath, or IsReal == true
type Item struct {
	// ID is an opaque unique identifier (UUID v4).
	ID string `json:"id" gorm:"primaryKey;size:36"`

	// Name is the leaf segment: non-empty, no path separators.
	Name string `json:"name" gorm:"size:255;not null"`

	// Type classifies the item (FOLDER, DOCUMENT, IMAGE, ...).
	Type ItemType `json:"type" gorm:"size:16;not null;index"`

	// Path is the canonical absolute path, globally unique.
	Path string `json:"path" gorm:"size:1024;not null;uniqueIndex"`

	// ParentPath is nil for root items; otherwise the Path of the containing
	// FOLDER. Adjacency is denormalized through this string rather than a
	// parent id, so structural queries filter on it directly.
	ParentPath *string `json:"parentPath" gorm:"size:1024;index"`

	// Size is the byte size for real non-folder items; nil otherwise.
	Size *int64 `json:"size"`

	// Extension is the lower-cased dot suffix derived from Name, or from the
	// static type table for fake items. Nil when absent.
	Extension *string `json:"extension" gorm:"size:32"`

	// FilePath locates the bytes in the blob store (relative key or URL).
	// Non-nil iff IsReal.
	FilePath *string `json:"filePath" gorm:"size:1024"`

	// IsReal marks items backed by physical bytes. Fake items are metadata
	// placeholders used for seeding and demo content.
	IsReal bool `json:"isReal" gorm:"index"`

	// UploadedBy references the external identity that created the item.
	UploadedBy string `json:"uploadedBy" gorm:"size:64;index"`

	// UserID is an optional secondary assignment target, distinct from the
	// uploader.
	UserID *string `json:"userId" gorm:"size:64"`

	// DownloadCount is incremented by exactly one per successful real-item
	// read, never for fake items and never on failed calls.
	DownloadCount int64 `json:"downloadCount" gorm:"not null;default:0"`

	DateCreated  time.Time `json:"dateCreated"`
	DateModified time.Time `json:"dateModified"`
}

// TableName pins the relational table name.
func (Item) TableName() string {
	return "items"
}

// IsFolder reports whether the item is a FOLDER.
func (i *Item) IsFolder() bool {
	return i.Type == TypeFolder
}

// fakeExtensions maps item types to the placeholder extension assigned to
// fake items of that type. Types without an entry get no extension.
var fakeExtensions = map[ItemType]string{
	TypeDocument: ".pdf",
	TypeVideo:    ".mp4",
	TypeImage:    ".jpg",
	TypeAudio:    ".mp3",
	TypeArchive:  ".zip",
	TypeCode:     ".js",
	TypeText:     ".txt",
}

// FakeExtensionFor returns the static placeholder extension for a fake item
// of the given type, or nil when the type has none (FOLDER, OTHER).
func FakeExtensionFor(t ItemType) *string {
	ext, ok := fakeExtensions[t]
	if !ok {
		return nil
	}
	return &ext
}

// contentTypes maps extensions to the Content-Type served on download/view.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".mp4":  "video/mp4",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".zip":  "application/zip",
}

// DefaultContentType is served when no extension mapping applies.
const DefaultContentType = "application/octet-stream"

// ContentTypeFor returns the Content-Type for an item extension. A nil or
// unmapped extension yields DefaultContentType.
func ContentTypeFor(extension *string) string {
	if extension == nil {
		return DefaultContentType
	}
	if ct, ok := contentTypes[*extension]; ok {
		return ct
	}
	return DefaultContentType
}
