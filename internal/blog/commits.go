package blog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/coderecap/coderecap/internal/discover"
	"github.com/coderecap/coderecap/internal/extract"
	"github.com/coderecap/coderecap/pkg/gitlib"
)

// DefaultMaxDiffLines bounds the diff excerpt of one commit.
const DefaultMaxDiffLines = 500

// DiffCommit is a commit with its bounded diff text, as fed to the blog
// prompts.
type DiffCommit struct {
	Repo    string
	Hash    string
	When    time.Time
	Author  string
	Subject string
	Body    string
	Diff    string
}

// gatherPeriod collects commits with diffs from the repositories (and their
// submodules) within [since, until), filtered by author, ordered by time.
func gatherPeriod(repos []string, since, until time.Time, matcher extract.AuthorMatcher, maxDiffLines int) ([]DiffCommit, error) {
	var (
		commits []DiffCommit
		seen    = make(map[string]bool)
	)

	for _, repoPath := range repos {
		paths := []string{repoPath}

		subs, err := discover.Submodules(repoPath)
		if err == nil {
			paths = append(paths, subs...)
		}

		for _, path := range paths {
			repoCommits, err := gatherRepo(path, since, until, matcher, maxDiffLines)
			if err != nil {
				return nil, err
			}

			for _, commit := range repoCommits {
				if seen[commit.Hash] {
					continue
				}

				seen[commit.Hash] = true

				commits = append(commits, commit)
			}
		}
	}

	sort.Slice(commits, func(i, j int) bool {
		if commits[i].When.Equal(commits[j].When) {
			return commits[i].Hash < commits[j].Hash
		}

		return commits[i].When.Before(commits[j].When)
	})

	return commits, nil
}

func gatherRepo(repoPath string, since, until time.Time, matcher extract.AuthorMatcher, maxDiffLines int) ([]DiffCommit, error) {
	repo, err := gitlib.OpenRepository(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", repoPath, err)
	}
	defer repo.Free()

	iter, err := repo.Log(&gitlib.LogOptions{Since: &since, Until: &until})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", repoPath, err)
	}
	defer iter.Close()

	var commits []DiffCommit

	err = iter.ForEach(func(commit *gitlib.Commit) error {
		author := commit.Author()
		if !matcher.Matches(author.Name, author.Email) {
			return nil
		}

		record, err := diffCommit(repo, commit, maxDiffLines)
		if err != nil {
			return err
		}

		commits = append(commits, record)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", repoPath, err)
	}

	return commits, nil
}

// retrieveRefs resolves referenced commits by SHA. A ref naming a repository
// is looked up there first; unresolved refs fall back to searching every
// repository under root, submodules included. Missing commits are skipped.
func retrieveRefs(root string, refs []CommitRef, maxDiffLines int) ([]DiffCommit, error) {
	repos, err := discover.TopLevelRepos(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, repoPath := range repos {
		paths = append(paths, repoPath)

		subs, err := discover.Submodules(repoPath)
		if err == nil {
			paths = append(paths, subs...)
		}
	}

	byName := make(map[string]string, len(paths))
	for _, path := range paths {
		byName[strings.ToLower(filepath.Base(path))] = path
	}

	var (
		commits []DiffCommit
		seen    = make(map[string]bool)
	)

	for _, ref := range refs {
		if seen[ref.SHA] {
			continue
		}

		seen[ref.SHA] = true

		search := paths
		if ref.Repo != "" {
			if path, ok := byName[strings.ToLower(ref.Repo)]; ok {
				search = append([]string{path}, paths...)
			}
		}

		for _, path := range search {
			commit, ok := lookupSHA(path, ref.SHA, maxDiffLines)
			if ok {
				commits = append(commits, commit)

				break
			}
		}
	}

	return commits, nil
}

func lookupSHA(repoPath, sha string, maxDiffLines int) (DiffCommit, bool) {
	repo, err := gitlib.OpenRepository(repoPath)
	if err != nil {
		return DiffCommit{}, false
	}
	defer repo.Free()

	commit, err := repo.ResolveCommit(sha)
	if err != nil {
		return DiffCommit{}, false
	}
	defer commit.Free()

	record, err := diffCommit(repo, commit, maxDiffLines)
	if err != nil {
		return DiffCommit{}, false
	}

	return record, true
}

func diffCommit(repo *gitlib.Repository, commit *gitlib.Commit, maxDiffLines int) (DiffCommit, error) {
	author := commit.Author()
	subject, body := splitMessage(commit.Message())

	diff, err := commit.PatchText(maxDiffLines)
	if err != nil {
		return DiffCommit{}, fmt.Errorf("patch for %s: %w", commit.Hash().Short(), err)
	}

	return DiffCommit{
		Repo:    repo.Name(),
		Hash:    commit.Hash().String(),
		When:    author.When.UTC(),
		Author:  author.Name,
		Subject: subject,
		Body:    body,
		Diff:    diff,
	}, nil
}

// formatCommitsForPrompt renders commits with their diffs as prompt text.
func formatCommitsForPrompt(commits []DiffCommit) string {
	if len(commits) == 0 {
		return "No commits found in the specified period."
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, "# Git Commits (%d total)\n\n", len(commits))

	for _, commit := range commits {
		fmt.Fprintf(&builder, "## Commit: %s (%s)\n", shortSHA(commit.Hash), commit.Repo)
		fmt.Fprintf(&builder, "**Date**: %s\n", commit.When.Format("2006-01-02 15:04"))
		fmt.Fprintf(&builder, "**Author**: %s\n", commit.Author)
		fmt.Fprintf(&builder, "**Subject**: %s\n", commit.Subject)

		if commit.Body != "" {
			fmt.Fprintf(&builder, "**Body**:\n%s\n", commit.Body)
		}

		if commit.Diff != "" {
			fmt.Fprintf(&builder, "\n**Diff**:\n```diff\n%s\n```\n", commit.Diff)
		}

		builder.WriteString("\n---\n\n")
	}

	return builder.String()
}

const shortSHALen = 8

func shortSHA(sha string) string {
	if len(sha) <= shortSHALen {
		return sha
	}

	return sha[:shortSHALen]
}

func splitMessage(message string) (subject, body string) {
	message = strings.ReplaceAll(message, "\r\n", "\n")

	subject, body, _ = strings.Cut(message, "\n")

	return strings.TrimSpace(subject), strings.TrimSpace(body)
}
