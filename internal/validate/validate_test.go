package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppID(t *testing.T) {
	assert.NoError(t, AppID("com.webos.app.browser"))
	assert.Error(t, AppID(""))
	assert.Error(t, AppID("com.webos;rm -rf"))
	assert.Error(t, AppID(string(make([]byte, 300))))
}

func TestPath(t *testing.T) {
	assert.NoError(t, Path("/usr/palm/applications/com.webos.app.browser"))
	assert.Error(t, Path(""))
	assert.Error(t, Path("../../etc/passwd"))
}

func TestPathWithinBase(t *testing.T) {
	resolved, err := PathWithinBase("resources/icon.png", "/usr/palm/applications/com.webos.app.browser")
	assert.NoError(t, err)
	assert.Equal(t, "/usr/palm/applications/com.webos.app.browser/resources/icon.png", resolved)

	_, err = PathWithinBase("../../etc/passwd", "/usr/palm/applications/com.webos.app.browser")
	assert.Error(t, err)
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"c": 1, "a": 2, "b": 3}
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))
	assert.Nil(t, SortedKeys(map[string]int{}))
}
