// Package fileutil hashes uploads and stages them next to derived artifacts.
package fileutil

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// HashLength is the number of characters kept from the encoded digest.
const HashLength = 12

// ContentHash returns the URL-safe identifier derived from a file's content.
// Identical uploads map to the same hash, so derived artifacts are shared.
func ContentHash(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()
	return HashReader(in)
}

// HashReader is ContentHash over an arbitrary stream.
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return encodeDigest(hasher), nil
}

func encodeDigest(h hash.Hash) string {
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))[:HashLength]
}

// Extension returns the file extension without the leading dot, lowercased.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// StageUpload copies src into dir as <hash>.<ext>, verifying the copy, and
// returns the staged path. An existing staged copy is reused.
func StageUpload(src, dir, hash, ext string) (string, error) {
	if strings.TrimSpace(hash) == "" {
		return "", errors.New("stage upload: hash is empty")
	}
	name := hash
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	dst := filepath.Join(dir, name)
	if info, err := os.Stat(dst); err == nil && info.Mode().IsRegular() {
		return dst, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure staging directory: %w", err)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return dst, nil
}

// CopyFileVerified streams src to dst and checks the copy's size and digest.
// dst is removed on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	switch {
	case written != srcInfo.Size():
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	case encodeDigest(srcHasher) != encodeDigest(dstHasher):
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}
