package markdown

import "regexp"

var yamlPattern = regexp.MustCompile(`(?m)^---\r?\n(\s*\r?\n)?`)

// RemoveFrontmatter drops a leading YAML front matter block.
func RemoveFrontmatter(content []byte) []byte {
	if b := detectFrontmatter(content); b[0] == 0 {
		return content[b[1]:]
	}
	return content
}

func detectFrontmatter(c []byte) []int {
	if matches := yamlPattern.FindAllIndex(c, 2); len(matches) > 1 {
		return []int{matches[0][0], matches[1][1]}
	}
	return []int{-1, -1}
}
