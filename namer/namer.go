// Package namer maps source URLs to stable local filenames.
//
// The filename is a pure function of the URL string: the same URL always
// yields the same name, with no network access involved. Only the
// extension depends on the fetched content type, and it defaults to a
// generic binary extension when the type is unknown.
package namer

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"path/filepath"
	"strings"
)

// DefaultExtension is used when the content type is missing or unknown.
const DefaultExtension = ".bin"

// extensionByType maps common image content types to their canonical
// extension. mime.ExtensionsByType is consulted for anything else, but
// its answers vary across platforms (e.g. image/jpeg -> ".jfif" on some
// systems), so the common cases are pinned here.
var extensionByType = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/x-icon":  ".ico",
}

// HashURL returns the hex-encoded sha256 digest of the exact URL string.
func HashURL(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// ExtensionFor derives a filename extension from a content type.
// The content type may carry parameters ("image/png; charset=binary");
// they are stripped before lookup. Unknown or empty types fall back to
// DefaultExtension.
func ExtensionFor(contentType string) string {
	if contentType == "" {
		return DefaultExtension
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}

	if ext, ok := extensionByType[mediaType]; ok {
		return ext
	}

	exts, err := mime.ExtensionsByType(mediaType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}

	return DefaultExtension
}

// Filename returns the local filename for a source URL fetched with the
// given content type: hash(url) + extension.
func Filename(sourceURL, contentType string) string {
	return HashURL(sourceURL) + ExtensionFor(contentType)
}

// typeByExtension is the inverse of extensionByType, built once at init.
var typeByExtension = func() map[string]string {
	m := make(map[string]string, len(extensionByType))
	for typ, ext := range extensionByType {
		m[ext] = typ
	}
	return m
}()

// ContentTypeFor recovers the content type from a cached filename's
// extension. Unknown extensions yield application/octet-stream.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if typ, ok := typeByExtension[ext]; ok {
		return typ
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ
	}
	return "application/octet-stream"
}
