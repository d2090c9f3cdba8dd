package validation

import (
	"bytes"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

type FileType string

const (
	FileTypeTIFF    FileType = "tiff"
	FileTypeBigTIFF FileType = "bigtiff"
	FileTypePNG     FileType = "png"
	FileTypeJPEG    FileType = "jpeg"
)

// GeoTIFF carries the plain TIFF signature; big-endian and BigTIFF variants
// differ only in the byte-order marker and version word.
var magicBytes = map[FileType][][]byte{
	FileTypeTIFF: {
		{0x49, 0x49, 0x2A, 0x00}, // little endian
		{0x4D, 0x4D, 0x00, 0x2A}, // big endian
	},
	FileTypeBigTIFF: {
		{0x49, 0x49, 0x2B, 0x00},
		{0x4D, 0x4D, 0x00, 0x2B},
	},
	FileTypePNG:  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	FileTypeJPEG: {{0xFF, 0xD8, 0xFF}},
}

func DetectFileType(file multipart.File) (FileType, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	for fileType, signatures := range magicBytes {
		for _, signature := range signatures {
			if bytes.HasPrefix(buffer[:n], signature) {
				return fileType, nil
			}
		}
	}

	return "", ErrInvalidFileType
}

func IsAllowedRasterType(fileType FileType) bool {
	switch fileType {
	case FileTypeTIFF, FileTypeBigTIFF, FileTypePNG, FileTypeJPEG:
		return true
	default:
		return false
	}
}

// HasExpectedExtension reports whether the filename carries a conventional
// raster extension. A mismatch is a warning for the caller, never a
// rejection: GDAL identifies inputs by content.
func HasExpectedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".tif", ".tiff", ".png", ".jpg", ".jpeg", ".vrt":
		return true
	default:
		return false
	}
}
