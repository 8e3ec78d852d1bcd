package parsing

import (
	"net/url"
	"os"

	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// IsURL reports whether s is a well-formed absolute http(s) URL.
func IsURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// GetURLsAndPaths classifies each input as a well-formed URL or an existing
// filesystem path. Items that are neither are dropped with a warning, never
// an error. Relative order is preserved within each class and duplicates are
// permitted.
func GetURLsAndPaths(inputs []string) (urls []string, paths []string) {
	for _, item := range inputs {
		switch {
		case IsURL(item):
			urls = append(urls, item)
		case pathExists(item):
			paths = append(paths, item)
		default:
			logx.Warn().Str("input", item).Msg("neither a URL nor a path; dropped")
		}
	}
	return urls, paths
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
