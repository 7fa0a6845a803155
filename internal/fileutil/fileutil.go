package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMismatch reports that a verified copy did not reproduce the source
// bytes. The destination has already been removed when this is returned.
var ErrMismatch = errors.New("copy verification mismatch")

// HashFile returns the hex-encoded SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verification reports a content comparison of two files. Equal digests
// mean byte-identical content.
type Verification struct {
	Equal   bool
	DigestA string
	DigestB string
}

// VerifyFiles hashes both files and compares the digests. Both digests are
// always computed so a mismatch report can name them.
func VerifyFiles(pathA, pathB string) (Verification, error) {
	digestA, err := HashFile(pathA)
	if err != nil {
		return Verification{}, err
	}
	digestB, err := HashFile(pathB)
	if err != nil {
		return Verification{}, err
	}
	return Verification{
		Equal:   digestA == digestB,
		DigestA: digestA,
		DigestB: digestB,
	}, nil
}

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// CopyFileVerified streams src to dst, hashing the source as it is read,
// then fsyncs and rehashes the written file from disk. The returned digest
// is the shared SHA-256 of both sides. On any size or digest mismatch the
// destination is removed so a corrupt copy never survives on disk.
func CopyFileVerified(src, dst string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Sync(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: source %d bytes, copied %d bytes", ErrMismatch, srcSize, written)
	}

	srcDigest := hex.EncodeToString(srcHasher.Sum(nil))
	dstDigest, err := HashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("read back %s: %w", dst, err)
	}
	if srcDigest != dstDigest {
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: source %s, copy %s", ErrMismatch, srcDigest, dstDigest)
	}

	return srcDigest, nil
}
