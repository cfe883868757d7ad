// Package kversion reads the running kernel release and
// packs it the same way as LINUX_VERSION_CODE, so that
// versions compare with ordinary integer comparison.
package kversion

import (
	"fmt"
	"io/ioutil"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// OSReleasePath is where the kernel publishes its release.
const OSReleasePath = "/proc/sys/kernel/osrelease"

// Version is the packed kernel version, with major in
// bits 16 and above, minor in bits 8-15 and the sublevel
// (saturated at 255) in bits 0-7.
type Version uint32

// New packs the version triplet.
func New(major, minor, patch uint32) Version {
	if patch > 255 {
		patch = 255
	}
	if minor > 255 {
		minor = 255
	}
	return Version(major<<16 | minor<<8 | patch)
}

// Major returns the value of the major version.
func (v Version) Major() uint32 { return uint32(v) >> 16 }

// Minor returns the value of the minor version.
func (v Version) Minor() uint32 { return (uint32(v) >> 8) & 0xff }

// Patch returns the value of the sublevel.
func (v Version) Patch() uint32 { return uint32(v) & 0xff }

// String formats the kernel version as triplets.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// regexpRelease matches the leading numeric part of the
// release, e.g. "5.15.0" of "5.15.0-91-generic".
var regexpRelease = regexp.MustCompile(
	`^([0-9]+)\.([0-9]+)(?:\.([0-9]+))?`)

// Parse the kernel release string.
func Parse(release string) (Version, error) {
	release = strings.TrimSpace(release)
	m := regexpRelease.FindStringSubmatch(release)
	if m == nil {
		return 0, errors.Errorf("malformed release %q", release)
	}
	var parts [3]uint32
	for i, component := range m[1:] {
		if component == "" {
			continue
		}
		value, err := strconv.ParseUint(component, 10, 16)
		if err != nil {
			return 0, errors.Wrapf(err,
				"invalid component %q of %q", component, release)
		}
		parts[i] = uint32(value)
	}
	return New(parts[0], parts[1], parts[2]), nil
}

// Must parses the version and panics on failure. It is
// meant for constants spelled out in source.
func Must(release string) Version {
	v, err := Parse(release)
	if err != nil {
		panic(err)
	}
	return v
}

// Read parses the release published at the given path.
func Read(path string) (Version, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "read kernel release")
	}
	return Parse(string(data))
}

// Current reads the version of the running kernel.
func Current() (Version, error) {
	return Read(OSReleasePath)
}
