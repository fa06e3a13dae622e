// Package utils provides utility functions.
package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"
)

var frontmatterBoundary = regexp.MustCompile(`(?m)^---\s*$`)

// RemoveFrontmatter removes the front matter header of a markdown file.
func RemoveFrontmatter(content []byte) []byte {
	if frontmatterBoundaries := detectFrontmatter(content); frontmatterBoundaries[0] == 0 {
		return content[frontmatterBoundaries[1]:]
	}
	return content
}

func detectFrontmatter(c []byte) []int {
	if matches := frontmatterBoundary.FindAllIndex(c, 2); len(matches) > 1 {
		return []int{matches[0][0], matches[1][1]}
	}
	return []int{-1, -1}
}

// ExpandPath expands tilde and all environment variables from the given path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// IsMarkdownFile returns whether the filename has a markdown extension.
func IsMarkdownFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".mdown", ".mkdn", ".mkd", ".markdown":
		return true
	default:
		return false
	}
}

// TrimBOM drops a leading UTF-8 byte order mark.
func TrimBOM(content []byte) []byte {
	return bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
}
