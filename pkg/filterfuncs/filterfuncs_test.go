package filterfuncs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test(t *testing.T) {
	assert := assert.New(t)
	list := Parse(bytes.Trim([]byte(`
#### all functions enabled ####
do_open
nfs_open [nfs]
nfs_file_read [nfs]
vfs_read:traceon:unlimited
drm_open	[drm]
:mod:missing
`), "\n"), nil)

	assert.Equal([]string{"", "drm", "nfs"}, list.Modules())
	assert.Equal([]string{"do_open"}, list.Functions(""))
	assert.Equal([]string{"nfs_open", "nfs_file_read"}, list.Functions("nfs"))
	assert.Equal(1, list.Count("drm"))
	assert.Equal(0, list.Count("missing"))
}

func TestInterested(t *testing.T) {
	assert := assert.New(t)
	list := Parse([]byte("a [foo]\nb [bar]\nc [foo]\nd\n"),
		map[string]struct{}{"foo": {}})
	assert.Equal([]string{"foo"}, list.Modules())
	assert.Equal(2, list.Count("foo"))
	assert.Equal(0, list.Count("bar"))
	assert.Equal(0, list.Count(""))
}
