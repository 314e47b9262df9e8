package bundle

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"
)

// zipEpoch is the modification time recorded for every entry so identical
// binaries produce identical archives.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Zip writes binPath into a new archive at dest as an executable named
// bootstrap and returns the archive's hex SHA-256 and size.
func Zip(binPath, dest string) (hash string, size int64, err error) {
	bin, err := os.Open(binPath)
	if err != nil {
		return "", 0, err
	}
	defer bin.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	digest := sha256.New()
	w := zip.NewWriter(io.MultiWriter(out, digest))

	header := &zip.FileHeader{
		Name:     BinaryName,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	header.SetMode(0755)

	entry, err := w.CreateHeader(header)
	if err != nil {
		return "", 0, err
	}
	if _, err := io.Copy(entry, bin); err != nil {
		return "", 0, err
	}
	if err := w.Close(); err != nil {
		return "", 0, err
	}

	info, err := out.Stat()
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(digest.Sum(nil)), info.Size(), nil
}
