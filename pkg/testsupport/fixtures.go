package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// LoadFixture reads a raw markup fixture from a package's testdata dir.
func LoadFixture(elem ...string) ([]byte, error) {
	return os.ReadFile(filepath.Join(append([]string{"testdata"}, elem...)...))
}

// LoadGolden unmarshals a JSON golden file into v.
func LoadGolden(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
