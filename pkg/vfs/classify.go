package vfs

// typeByExtension classifies uploaded files by extension. Unknown extensions
// fall through to OTHER.
var typeByExtension = map[string]ItemType{
	".pdf":  TypeDocument,
	".doc":  TypeDocument,
	".docx": TypeDocument,
	".ppt":  TypeDocument,
	".pptx": TypeDocument,
	".xls":  TypeDocument,
	".xlsx": TypeDocument,

	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".png":  TypeImage,
	".gif":  TypeImage,
	".svg":  TypeImage,
	".webp": TypeImage,

	".mp4":  TypeVideo,
	".mov":  TypeVideo,
	".avi":  TypeVideo,
	".webm": TypeVideo,
	".mkv":  TypeVideo,

	".mp3":  TypeAudio,
	".wav":  TypeAudio,
	".ogg":  TypeAudio,
	".flac": TypeAudio,

	".zip": TypeArchive,
	".rar": TypeArchive,
	".tar": TypeArchive,
	".gz":  TypeArchive,
	".7z":  TypeArchive,

	".js":   TypeCode,
	".ts":   TypeCode,
	".go":   TypeCode,
	".py":   TypeCode,
	".java": TypeCode,
	".c":    TypeCode,
	".cpp":  TypeCode,
	".html": TypeCode,
	".css":  TypeCode,
	".json": TypeCode,

	".txt": TypeText,
	".md":  TypeText,
	".csv": TypeText,
	".log": TypeText,
}

// TypeForName classifies an item by its name's extension. Names without a
// recognized extension classify as OTHER.
func TypeForName(name string) ItemType {
	ext := ExtensionOf(name)
	if ext == nil {
		return TypeOther
	}
	if t, ok := typeByExtension[*ext]; ok {
		return t
	}
	return TypeOther
}
