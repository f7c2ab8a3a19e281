package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint returns the hex-encoded SHA-256 digest of the raw document
// bytes. It is the dedup identity of an upload: byte-identical files always
// produce the same fingerprint.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ObjectKey derives the blob-store key for a document from its fingerprint,
// so re-uploading identical bytes overwrites the same object.
func ObjectKey(fingerprint string) string {
	return fmt.Sprintf("editais/%s.pdf", fingerprint)
}
