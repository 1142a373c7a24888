package ibak

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/sirupsen/logrus"
)

const DefaultCompressionLevel = 5

var archiveLog = logrus.WithFields(logrus.Fields{
	"component": "archive",
})

// Compress writes a deflate-compressed zip archive at archivePath containing exactly
// files, each stored at its path relative to baseDir (directory structure preserved).
// The archive is written to a temporary sibling file and renamed into place, so a
// failure mid-operation never leaves a half-written archive under the final name.
func Compress(files []string, archivePath string, baseDir string, level int) error {
	tmpFilename := path.Join(path.Dir(archivePath), "_tmp-"+path.Base(archivePath))

	tmpF, err := os.Create(tmpFilename)
	if err != nil {
		return err
	}
	defer tmpF.Close()
	defer os.Remove(tmpFilename)

	archiveLog.Printf("writing archive to %s", tmpFilename)

	zw := zip.NewWriter(tmpF)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	for _, file := range files {
		err = addFile(zw, file, baseDir)
		if err != nil {
			zw.Close()
			return fmt.Errorf("cannot archive %s: %w", file, err)
		}
	}

	err = zw.Close()
	if err != nil {
		return err
	}

	err = tmpF.Close()
	if err != nil {
		return err
	}

	archiveLog.Printf("moving final archive to %s", archivePath)
	return os.Rename(tmpFilename, archivePath)
}

func addFile(zw *zip.Writer, file, baseDir string) error {
	rel, err := filepath.Rel(baseDir, file)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)
	return err
}

// Extract expands every entry of the archive at archivePath into targetDir, creating
// missing parent directories and overwriting existing files at the same relative path.
// Files already present in targetDir but absent from the archive are left untouched.
func Extract(archivePath string, targetDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	for _, f := range zr.File {
		err = extractFile(f, targetDir)
		if err != nil {
			return fmt.Errorf("cannot extract %s: %w", f.Name, err)
		}
	}

	return nil
}

func extractFile(f *zip.File, targetDir string) error {
	rel := filepath.Clean(filepath.FromSlash(f.Name))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("invalid archive member path: %s", f.Name)
	}
	target := filepath.Join(targetDir, rel)

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0777)
	}

	err := os.MkdirAll(filepath.Dir(target), 0777)
	if err != nil {
		return err
	}

	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer w.Close()

	_, err = io.Copy(w, r)
	if err != nil {
		return err
	}

	return w.Close()
}
