package blog

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// CommitRef points at a commit referenced by the research stage. Repo may be
// empty when the reference did not name one.
type CommitRef struct {
	SHA  string `yaml:"sha"`
	Repo string `yaml:"repo"`
}

// Metadata is embedded in research markdown so the write stage can rebuild
// the context without re-running research.
type Metadata struct {
	Topic   string      `yaml:"topic"`
	Period  string      `yaml:"period"`
	Client  string      `yaml:"client,omitempty"`
	Author  string      `yaml:"author"`
	Root    string      `yaml:"root"`
	Commits []CommitRef `yaml:"commits,omitempty"`
}

// metaPattern finds the YAML metadata block inside an HTML comment.
var metaPattern = regexp.MustCompile(`(?s)<!--\s*blog-research-meta\s*\n(.*?)\n-->`)

// shaRefPattern matches inline commit references of the form "`abc123de`",
// optionally followed by the repository name in parentheses.
var shaRefPattern = regexp.MustCompile("`([a-f0-9]{7,8})`(?:\\s*\\(([^)]+)\\))?")

// ParseMetadata extracts the research metadata block. ok is false when the
// block is missing or unparseable; the write stage then falls back to content
// references only.
func ParseMetadata(content string) (Metadata, bool) {
	match := metaPattern.FindStringSubmatch(content)
	if match == nil {
		return Metadata{}, false
	}

	var meta Metadata
	if err := yaml.Unmarshal([]byte(match[1]), &meta); err != nil {
		return Metadata{}, false
	}

	return meta, true
}

// FormatMetadata renders the metadata block for embedding in research output.
func FormatMetadata(meta Metadata) (string, error) {
	body, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal research metadata: %w", err)
	}

	return fmt.Sprintf("<!-- blog-research-meta\n%s-->", body), nil
}

// ExtractCommitRefs pulls inline SHA references out of markdown, de-duplicated
// by SHA in order of first appearance.
func ExtractCommitRefs(content string) []CommitRef {
	seen := make(map[string]bool)

	var refs []CommitRef

	for _, match := range shaRefPattern.FindAllStringSubmatch(content, -1) {
		sha := match[1]
		if seen[sha] {
			continue
		}

		seen[sha] = true

		refs = append(refs, CommitRef{SHA: sha, Repo: strings.TrimSpace(match[2])})
	}

	return refs
}
