package utils

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ZipFiles bundles the named files into a flat zip at target. Entries are
// stored under their base names.
func ZipFiles(target string, files ...string) error {
	zipfile, err := os.Create(target)
	if err != nil {
		return err
	}
	defer zipfile.Close()

	archive := zip.NewWriter(zipfile)

	for _, path := range files {
		if err := addFile(archive, path); err != nil {
			archive.Close()
			return err
		}
	}

	return archive.Close()
}

func addFile(archive *zip.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	writer, err := archive.CreateHeader(header)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}

// ReadZipEntry returns the named entry of a zip archive along with its
// modification time.
func ReadZipEntry(zipPath, name string) ([]byte, time.Time, error) {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, time.Time{}, err
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		return data, f.Modified, err
	}
	return nil, time.Time{}, os.ErrNotExist
}
