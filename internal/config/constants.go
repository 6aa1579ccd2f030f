package config

// Version is the current engine version.
// Set at build time via -ldflags, or by writing to this field directly.
var Version = "0.1.0"

const SourceFileExt = ".js"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".js", ".mjs", ".cjs"}

// TrimSourceExt removes any recognized source extension from a filename.
// Returns the original string if no extension matches.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt returns true if the path ends with any recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// IsModuleExt reports whether path is explicitly marked as an ES module
// (".mjs") as opposed to a script/CommonJS-style file (".js", ".cjs") —
// only matters when a host hasn't otherwise told the loader which goal
// to parse a given specifier as.
func IsModuleExt(path string) bool {
	return len(path) >= 4 && path[len(path)-4:] == ".mjs"
}
