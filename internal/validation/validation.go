// Package validation checks user-supplied paths and names and verifies that
// corpus files contain what their names claim.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits on user input.
const (
	// MaxFileSize is the largest corpus document read into memory (256 MB).
	MaxFileSize = 256 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrNotDirectory     = errors.New("not a directory")
	ErrFileTooLarge     = errors.New("file too large")
)

// ValidateFilename checks if a filename is safe and does not contain malicious characters.
// It rejects filenames with path separators, control characters, and dangerous patterns.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	// Reject filenames starting with hyphen (can be confused with command flags)
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}

	return nil
}

// ValidatePath checks a path for length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// ValidateDir checks that path is a valid path naming an existing directory.
// A missing directory is reported with an error wrapping os.ErrNotExist.
func ValidateDir(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}
	return nil
}

// ValidateSize rejects documents larger than MaxFileSize.
func ValidateSize(name string, size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, name, size)
	}
	return nil
}

// SanitizeFilename turns a corpus name into a safe file name component by
// replacing path separators and dropping control characters.
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", ErrInvalidFilename
	}

	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filename, nil
}

// FileType represents a validated file type.
type FileType string

const (
	FileTypeTarXZ FileType = "tar.xz"
	FileTypeTarGZ FileType = "tar.gz"
	FileTypeTar   FileType = "tar"
	FileTypeGzip  FileType = "gzip"
	FileTypeXZ    FileType = "xz"

	FileTypeSQLite FileType = "sqlite"

	FileTypeXML  FileType = "xml"
	FileTypeText FileType = "text"

	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
	offset   int
}{
	{FileTypeTar, []byte("ustar"), 257},
	{FileTypeGzip, []byte{0x1f, 0x8b}, 0},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, 0},
	{FileTypeSQLite, []byte("SQLite format 3"), 0},
}

// ValidateFileType checks that the content read from reader matches the type
// suggested by filename and returns that type. Compressed documents such as
// a.xml.xz are reported by their compression.
func ValidateFileType(reader io.Reader, filename string) (FileType, error) {
	// 512 bytes covers the tar magic at offset 257
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detectedType := detectFileTypeFromMagic(buf)
	expectedType := detectFileTypeFromExtension(filename)

	// Compression hides the tar magic.
	if expectedType == FileTypeTarXZ && detectedType == FileTypeXZ {
		return FileTypeTarXZ, nil
	}
	if expectedType == FileTypeTarGZ && detectedType == FileTypeGzip {
		return FileTypeTarGZ, nil
	}

	if detectedType == expectedType {
		return detectedType, nil
	}

	if detectedType == FileTypeUnknown && (expectedType == FileTypeXML || expectedType == FileTypeText) {
		if len(buf) == 0 || isLikelyText(buf) {
			return expectedType, nil
		}
		return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is binary", expectedType)
	}

	if detectedType != FileTypeUnknown && expectedType != FileTypeUnknown {
		return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is %s", expectedType, detectedType)
	}

	if detectedType == FileTypeUnknown {
		return expectedType, nil
	}
	return detectedType, nil
}

// detectFileTypeFromMagic detects file type from magic bytes.
func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if sig.offset+len(sig.magic) <= len(buf) {
			if bytes.Equal(buf[sig.offset:sig.offset+len(sig.magic)], sig.magic) {
				return sig.fileType
			}
		}
	}
	return FileTypeUnknown
}

// detectFileTypeFromExtension determines expected file type from filename extension.
func detectFileTypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)

	if strings.HasSuffix(lower, ".tar.xz") {
		return FileTypeTarXZ
	}
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return FileTypeTarGZ
	}

	switch filepath.Ext(lower) {
	case ".tar":
		return FileTypeTar
	case ".xz":
		return FileTypeXZ
	case ".gz":
		return FileTypeGzip
	case ".sqlite", ".db", ".sqlite3":
		return FileTypeSQLite
	case ".xml":
		return FileTypeXML
	case ".csv", ".norm", ".txt", ".yaml", ".yml", ".toml":
		return FileTypeText
	default:
		return FileTypeUnknown
	}
}

// isLikelyText reports whether buf looks like text: no NUL bytes and almost
// no control characters.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 lead and continuation bytes are neutral
	}

	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
