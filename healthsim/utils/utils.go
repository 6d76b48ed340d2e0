package utils

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

func GetEnvInt(varName string, defaultVal int) int {
	v := os.Getenv(varName)
	if v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultVal
}

// ContainsString returns true when target is present in list.
func ContainsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}

// CreateDir makes the directory (and parents) if it does not already exist.
func CreateDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.MkdirAll(path, 0744); err != nil {
			return errors.Wrapf(err, "could not create directory %s", path)
		}
	}
	return nil
}

// DeleteDirectoryContents removes everything under dir, leaving dir
// itself in place. Returns the number of top level entries removed.
func DeleteDirectoryContents(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrapf(err, "could not read directory %s", dir)
	}

	deleted := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return deleted, errors.Wrapf(err, "could not remove %s", e.Name())
		}
		deleted++
	}
	return deleted, nil
}

// Luhn computes the ISO 7812 check digit used by NPIs (with the 80840
// prefix applied by the caller).
func Luhn(digits string) int {
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}
