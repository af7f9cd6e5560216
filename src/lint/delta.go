package lint

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// Delta detects files changed relative to a baseline.
type Delta struct {
	// Dir is any directory inside the repository; the repository root is
	// found by walking up from it.
	Dir          string
	TargetBranch string
	Verbose      bool

	root   string
	branch string
}

// ChangedFiles returns repository-relative, slash-separated paths changed
// relative to the baseline: uncommitted and staged changes plus commits
// not on the target branch. The target branch comes from
// IMAGEFREIGHT_TARGET_BRANCH, the config, common CI variables, or
// origin/HEAD, in that order.
// Returns nil (scan everything) if git is unavailable or no baseline exists.
func (d *Delta) ChangedFiles(ctx context.Context) (map[string]bool, error) {
	repo, err := git.PlainOpenWithOptions(d.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if d.Verbose {
			fmt.Fprintf(os.Stderr, "delta: not a git repo, scanning all files\n")
		}
		return nil, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, nil
	}
	d.root = wt.Filesystem.Root()

	worktreeChanges, err := d.worktreeChanges(wt)
	if err != nil {
		if d.Verbose {
			fmt.Fprintf(os.Stderr, "delta: worktree diff failed: %v, scanning all files\n", err)
		}
		return nil, nil
	}

	branchChanges, err := d.branchChanges(ctx, repo)
	if err != nil {
		if d.Verbose {
			fmt.Fprintf(os.Stderr, "delta: branch diff failed: %v, scanning all files\n", err)
		}
		return nil, nil
	}

	changed := make(map[string]bool, len(worktreeChanges)+len(branchChanges))
	maps.Copy(changed, worktreeChanges)
	maps.Copy(changed, branchChanges)

	if len(changed) == 0 && d.Verbose {
		fmt.Fprintf(os.Stderr, "delta: no changes detected\n")
	}
	return changed, nil
}

// Branch returns the branch the last ChangedFiles call diffed against.
func (d *Delta) Branch() string {
	return d.branch
}

// Rel returns path relative to the repository root found by
// ChangedFiles. ok is false before ChangedFiles found a repository or
// when path lies outside it.
func (d *Delta) Rel(path string) (string, bool) {
	if d.root == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(d.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Under narrows a repository-relative change set to the paths below dir,
// re-rooted at dir. A nil set stays nil.
func Under(changed map[string]bool, dir string) map[string]bool {
	if changed == nil {
		return nil
	}
	dir = strings.TrimSuffix(filepath.ToSlash(dir), "/")
	out := make(map[string]bool)
	for p := range changed {
		switch {
		case dir == "" || dir == ".":
			out[p] = true
		case strings.HasPrefix(p, dir+"/"):
			out[strings.TrimPrefix(p, dir+"/")] = true
		}
	}
	return out
}

func (d *Delta) worktreeChanges(wt *git.Worktree) (map[string]bool, error) {
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}

	changed := make(map[string]bool)
	for path, s := range status {
		if s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}
		changed[filepath.ToSlash(path)] = true
	}
	return changed, nil
}

// branchChanges returns files changed between HEAD and the target branch.
func (d *Delta) branchChanges(ctx context.Context, repo *git.Repository) (map[string]bool, error) {
	targetBranch := d.targetBranch(repo)
	if targetBranch == "" {
		return nil, nil
	}
	d.branch = targetBranch

	headRef, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}
	headCommit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting HEAD commit: %w", err)
	}

	targetRef, err := repo.Reference(plumbing.NewBranchReferenceName(targetBranch), true)
	if err != nil {
		targetRef, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", targetBranch), true)
		if err != nil {
			return nil, nil
		}
	}
	targetCommit, err := repo.CommitObject(targetRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting target commit: %w", err)
	}

	// Diff from where HEAD forked so commits merged into the target
	// branch since then are not counted as local changes.
	if bases, err := headCommit.MergeBase(targetCommit); err == nil && len(bases) > 0 {
		if d.Verbose && bases[0].Hash != targetCommit.Hash {
			fmt.Fprintf(os.Stderr, "delta: diffing against merge base %s\n", bases[0].Hash.String()[:8])
		}
		targetCommit = bases[0]
	}

	// On the target branch itself, lint what the latest commit touched.
	if headCommit.Hash == targetCommit.Hash {
		if headCommit.NumParents() == 0 {
			return nil, nil
		}
		parent, err := headCommit.Parent(0)
		if err != nil {
			return nil, nil
		}
		targetCommit = parent
	}

	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, err
	}
	targetTree, err := targetCommit.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, targetTree, headTree, &object.DiffTreeOptions{})
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	changed := make(map[string]bool)
	for _, change := range changes {
		if name := changeName(change); name != "" {
			changed[name] = true
		}
	}
	return changed, nil
}

func (d *Delta) targetBranch(repo *git.Repository) string {
	if branch := os.Getenv("IMAGEFREIGHT_TARGET_BRANCH"); branch != "" {
		return branch
	}
	if d.TargetBranch != "" {
		return d.TargetBranch
	}

	ciVars := []string{
		"CI_MERGE_REQUEST_TARGET_BRANCH_NAME", // GitLab CI
		"GITHUB_BASE_REF",                     // GitHub Actions
		"BITBUCKET_PR_DESTINATION_BRANCH",     // Bitbucket
		"CHANGE_TARGET",                       // Jenkins
	}
	for _, v := range ciVars {
		if branch := os.Getenv(v); branch != "" {
			return branch
		}
	}

	// Symbolic ref, unresolved: the target names the default branch.
	if ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", "HEAD"), false); err == nil {
		const prefix = "refs/remotes/origin/"
		if target := ref.Target().String(); strings.HasPrefix(target, prefix) {
			return strings.TrimPrefix(target, prefix)
		}
	}

	return "main"
}

func changeName(change *object.Change) string {
	action, err := change.Action()
	if err != nil {
		return ""
	}
	switch action {
	case merkletrie.Insert, merkletrie.Modify:
		return change.To.Name
	case merkletrie.Delete:
		return change.From.Name
	}
	return ""
}

// FilterByDelta keeps only changed files. A nil set keeps everything.
func FilterByDelta(files []FileInfo, changedSet map[string]bool) []FileInfo {
	if changedSet == nil {
		return files
	}
	filtered := make([]FileInfo, 0, len(changedSet))
	for _, f := range files {
		if changedSet[strings.TrimPrefix(filepath.ToSlash(f.Path), "./")] {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
