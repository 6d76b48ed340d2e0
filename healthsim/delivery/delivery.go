// Package delivery persists finished export files to their serving
// location, either a local payload directory or an S3 bucket.
package delivery

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Saver writes one export file and returns its final location.
type Saver interface {
	Save(name string, data io.Reader) (location string, err error)
}

// NewSaver picks a saver for the target: s3:// URIs get the S3 saver,
// anything else is treated as a local directory.
func NewSaver(target string, logger logrus.FieldLogger) Saver {
	if strings.HasPrefix(target, "s3://") {
		return &S3Saver{Logger: logger, URI: target}
	}
	return &LocalSaver{Logger: logger, Dir: target}
}

// LocalSaver writes files under Dir.
type LocalSaver struct {
	Logger logrus.FieldLogger
	Dir    string
}

func (s *LocalSaver) Save(name string, data io.Reader) (string, error) {
	path := filepath.Join(s.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0744); err != nil {
		return "", errors.Wrapf(err, "could not create directory for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "could not create file %s", path)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return "", errors.Wrapf(err, "could not write file %s", path)
	}

	s.Logger.Infof("Saved file %s", path)
	return path, nil
}

// ParseS3URI splits an S3 URI into bucket and key, so
// "s3://my-bucket/path/to/file" yields "my-bucket" and "path/to/file".
func ParseS3URI(str string) (bucket string, key string) {
	workingString := strings.TrimPrefix(str, "s3://")
	resultArr := strings.SplitN(workingString, "/", 2)

	if len(resultArr) == 1 {
		return resultArr[0], ""
	}

	return resultArr[0], resultArr[1]
}
