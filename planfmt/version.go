package planfmt

import "golang.org/x/mod/semver"

// Compatible reports whether this build's FormatVersion satisfies a
// plugin host's minimum required version: same major, and minor/patch
// at least pluginMin's. Intended for a plugin host to call before
// accepting a plan across the process boundary, so a host built against
// an older format gets a clear rejection instead of a misparse; this
// front end's own Compile/main path does not call it, since it never
// talks to a plugin host directly.
func Compatible(pluginMin string) bool {
	if !semver.IsValid(pluginMin) {
		return false
	}
	if semver.Major(FormatVersion) != semver.Major(pluginMin) {
		return false
	}
	return semver.Compare(FormatVersion, pluginMin) >= 0
}
