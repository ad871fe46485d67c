package report

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/shyim/lighthouse-compare/internal/models"
)

// EncodeArchive serializes the results verbatim as an indented JSON array.
func EncodeArchive(res []models.TestResult) ([]byte, error) {
	if res == nil {
		res = []models.TestResult{}
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal result archive")
	}
	return data, nil
}

// LoadArchive reads a result archive written by a previous session.
func LoadArchive(path string) ([]models.TestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read archive %s", path)
	}

	var res []models.TestResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(err, "parse archive %s", path)
	}
	for i, r := range res {
		if _, err := models.ParseDevice(string(r.Device)); err != nil {
			return nil, errors.Wrapf(err, "archive %s entry %d", path, i)
		}
	}
	return res, nil
}
