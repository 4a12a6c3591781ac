// Package mimetype maps file extensions to Content-Type header values for
// the route engine's file and cache-hit responses. The extension set is
// reproduced from the source's get_header_content_type table.
package mimetype

var byExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"html": "text/html",
	"js":   "application/javascript",
	"css":  "text/css",
	"txt":  "text/plain",
	"json": "application/json",
}

// defaultType is returned for any extension not in the table.
const defaultType = "application/octet-stream"

// ForExt returns the Content-Type for a file extension (without the
// leading dot). Unknown extensions get defaultType.
func ForExt(ext string) string {
	if ct, ok := byExt[ext]; ok {
		return ct
	}
	return defaultType
}

// ForPath extracts the extension from path and returns its Content-Type.
func ForPath(path string) string {
	dot := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			dot = i
			break
		}
		if path[i] == '/' {
			break
		}
	}
	if dot == -1 {
		return defaultType
	}
	return ForExt(path[dot+1:])
}
