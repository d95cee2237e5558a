package roster

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// redirectionFileName is the sidecar a Stub package carries alongside its
// appinfo, naming the app id a launch should be redirected to.
const redirectionFileName = "redirection.ini"

// LoadRedirection reads folderPath's redirection.ini, if present. A
// missing file is not an error — most packages aren't Stubs and carry no
// redirection at all.
func LoadRedirection(folderPath string) (*Redirection, error) {
	path := folderPath + string(os.PathSeparator) + redirectionFileName
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	id := cfg.Section("redirection").Key("id").String()
	if id == "" {
		return nil, fmt.Errorf("%s: redirection.id is required", path)
	}
	return &Redirection{ID: id}, nil
}
