package roster

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveAssetPath rewrites a "$token/relative/path"-shaped asset
// reference against an ordered list of locale resource directories,
// returning the first existing candidate. Supplemented from
// original_source's locale_preferences.cpp, which walks a fallback list
// rather than a single directory, matching the "localized resource
// directory" (singular) implies.
func ResolveAssetPath(raw string, fallbackDirs []string) string {
	rel, ok := splitToken(raw)
	if !ok {
		return raw
	}

	for _, dir := range fallbackDirs {
		candidate := filepath.Join(dir, rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if len(fallbackDirs) > 0 {
		return filepath.Join(fallbackDirs[0], rel)
	}
	return raw
}

// splitToken strips a leading "$" token, reporting whether raw was
// token-shaped at all.
func splitToken(raw string) (rel string, ok bool) {
	if !strings.HasPrefix(raw, "$") {
		return "", false
	}
	trimmed := strings.TrimPrefix(raw, "$")
	if idx := strings.IndexAny(trimmed, "/\\"); idx >= 0 {
		return trimmed[idx+1:], true
	}
	return "", true
}
