package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Reads the contents of file from the start and returns its SHA-256 hash as a string.
// The file is rewound again afterwards.
func CreateFileHash(file io.ReadSeeker) (string, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
