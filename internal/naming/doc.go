// Package naming maps a source score path to the path of its converted
// notation file. The mapping is pure: same input and extensions, same
// output, with no filesystem access.
package naming
