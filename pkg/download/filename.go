package download

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var dispositionFilename = regexp.MustCompile(`filename="(.*?)"`)

// ResolveFilename picks a filename hint for a response. The quoted filename
// parameter of Content-Disposition wins; the last URL path segment is the
// fallback. ok is false when neither yields a usable name.
func ResolveFilename(h http.Header, u *url.URL) (name string, ok bool) {
	if name, ok := FilenameFromHeader(h); ok {
		return name, true
	}
	return FilenameFromURL(u)
}

// FilenameFromHeader extracts filename="..." from Content-Disposition.
func FilenameFromHeader(h http.Header) (string, bool) {
	cd := h.Get("Content-Disposition")
	if cd == "" {
		return "", false
	}
	m := dispositionFilename.FindStringSubmatch(cd)
	if m == nil {
		return "", false
	}
	return sanitize(m[1])
}

// FilenameFromURL returns the text after the final slash of the escaped path.
func FilenameFromURL(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}
	p := u.EscapedPath()
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}
	return sanitize(p)
}

// sanitize reduces a hint to a bare file name so it cannot leave the output directory.
func sanitize(name string) (string, bool) {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "", false
	}
	return name, true
}
