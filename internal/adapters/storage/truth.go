package storage

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/okian/marklab/pkg/errs"
)

// ReadTruth loads the independently-authored external truth value: a
// single textual 0 or 1, surrounding whitespace tolerated. Anything
// else is malformed; a missing file is ErrMissingFile.
func ReadTruth(path string) (bool, error) {
	const op = "storage.readTruth"

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, errs.WrapKind(op, ErrMissingFile, err)
		}
		return false, errs.Wrap(op, err)
	}

	switch strings.TrimSpace(string(raw)) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, errs.Kindf(op, ErrMalformedFile, "truth file must hold 0 or 1, got %q", strings.TrimSpace(string(raw)))
	}
}

// WriteTruth records the external truth value in its textual form.
func WriteTruth(path string, truth bool) error {
	const op = "storage.writeTruth"

	value := "0"
	if truth {
		value = "1"
	}
	return errs.Wrap(op, os.WriteFile(path, []byte(value+"\n"), resultFilePermission))
}
