// Package validate provides shared validation helpers used at the edges of
// the lifecycle engine: app ids coming off the bus, and folder paths coming
// out of the roster scanner.
package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// appIDPattern matches the characters webOS app ids are allowed to contain:
// reverse-DNS style identifiers, e.g. "com.webos.app.browser".
var appIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// AppID validates that an app id is safe to use as a map key, log field, and
// subscription-key suffix (getappstatus#<appId>#Y).
func AppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app id cannot be empty")
	}
	if len(appID) > 256 {
		return fmt.Errorf("app id too long")
	}
	if !appIDPattern.MatchString(appID) {
		return fmt.Errorf("invalid app id: contains unsafe characters")
	}
	return nil
}

// Path validates that a folder path doesn't contain path traversal sequences.
func Path(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)
	if cleanPath != path && strings.Contains(path, "..") {
		return fmt.Errorf("path contains path traversal sequence")
	}
	if !filepath.IsAbs(cleanPath) && strings.HasPrefix(cleanPath, "..") {
		return fmt.Errorf("path attempts to traverse above working directory")
	}
	return nil
}

// PathWithinBase ensures a path stays within a base directory after cleaning.
// Nothing in the repository calls it outside its own test; the roster's
// "$foo" asset resolution does not use it.
func PathWithinBase(path, basePath string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if basePath == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}

	cleanBase := filepath.Clean(basePath)
	absBase, err := filepath.Abs(cleanBase)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	cleanPath := filepath.Clean(path)
	var absPath string
	if filepath.IsAbs(cleanPath) {
		absPath = cleanPath
	} else {
		absPath = filepath.Join(absBase, cleanPath)
	}
	absPath = filepath.Clean(absPath)

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", fmt.Errorf("path escapes base directory")
	}
	return absPath, nil
}
