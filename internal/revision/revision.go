// Package revision reports the version-control commit a site's sources were
// built from.
package revision

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info describes the HEAD commit of the repository containing the sources.
type Info struct {
	Commit  string
	Short   string
	Date    time.Time
	Subject string
	Branch  string
}

// Lookup finds the repository enclosing dir and reads its HEAD commit. ok is
// false when dir is not inside a repository or the repository has no commits.
func Lookup(dir string) (info Info, ok bool, err error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Info{}, false, nil
		}
		return Info{}, false, fmt.Errorf("open repository: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Info{}, false, nil
		}
		return Info{}, false, fmt.Errorf("resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Info{}, false, fmt.Errorf("get commit object: %w", err)
	}

	hash := commit.Hash.String()
	info = Info{
		Commit:  hash,
		Short:   hash[:7],
		Date:    commit.Committer.When,
		Subject: strings.TrimSpace(strings.SplitN(commit.Message, "\n", 2)[0]),
	}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}
	return info, true, nil
}
