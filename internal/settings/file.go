package settings

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML scoring-defaults file and overlays it onto the
// compiled-in defaults. Fields absent from the file keep their defaults.
// Used at startup; stored settings documents still overlay on top at
// resolution time.
func LoadFile(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return s, eris.Wrapf(err, "settings: read defaults file %s", path)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), eris.Wrapf(err, "settings: parse defaults file %s", path)
	}

	return s, nil
}
