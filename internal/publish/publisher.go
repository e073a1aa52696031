package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/stravadash/internal/config"
	"git.home.luguber.info/inful/stravadash/internal/logfields"
)

// Outcome classifies a publish attempt that did not fail.
type Outcome string

const (
	// OutcomePublished means the artifact changed and a commit was pushed.
	OutcomePublished Outcome = "published"
	// OutcomeUnchanged means the artifact was byte-identical to the committed copy.
	OutcomeUnchanged Outcome = "unchanged"
)

// Result describes a completed publish attempt.
type Result struct {
	Outcome    Outcome
	CommitHash string
}

// Publisher pushes the dashboard artifact to the static-hosting repository,
// committing only when the content actually changed.
type Publisher struct {
	cfg config.PublishConfig
	now func() time.Time
}

// NewPublisher creates a Publisher for the configured target repository.
func NewPublisher(cfg config.PublishConfig) *Publisher {
	return &Publisher{cfg: cfg, now: time.Now}
}

// WithClock overrides the time source (used in tests).
func (p *Publisher) WithClock(now func() time.Time) *Publisher {
	p.now = now
	return p
}

// Publish clones the target repository, copies the artifact in under its fixed
// name, and commits and pushes only if the content differs from the committed
// copy. Push failures are fatal and not retried; there is no rollback of the
// local commit after a failed push.
func (p *Publisher) Publish(ctx context.Context, artifactPath string) (*Result, error) {
	artifactName := filepath.Base(artifactPath)
	cloneURL := p.cfg.CloneURL()

	workdir, err := os.MkdirTemp("", "stravadash-publish-*")
	if err != nil {
		return nil, fmt.Errorf("create publish workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workdir); err != nil {
			slog.Warn("Failed to cleanup publish workspace", logfields.Path(workdir), logfields.Error(err))
		}
	}()

	slog.Debug("Cloning target repository", logfields.URL(cloneURL), logfields.Branch(p.cfg.Branch))

	repo, err := git.PlainCloneContext(ctx, workdir, false, &git.CloneOptions{
		URL:           cloneURL,
		Auth:          p.auth(),
		ReferenceName: plumbing.NewBranchReferenceName(p.cfg.Branch),
		SingleBranch:  true,
	})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		// First publish into an empty repository: nothing to compare against,
		// so the artifact is always treated as changed.
		repo, err = p.initEmptyTarget(workdir, cloneURL)
	}
	if err != nil {
		return nil, fmt.Errorf("clone target repository: %w", err)
	}

	dst := filepath.Join(workdir, artifactName)
	changed, err := artifactChanged(artifactPath, dst)
	if err != nil {
		return nil, err
	}
	if !changed {
		slog.Info("Artifact unchanged; no commit made", logfields.Path(artifactName))
		return &Result{Outcome: OutcomeUnchanged}, nil
	}

	if err := copyFile(artifactPath, dst); err != nil {
		return nil, fmt.Errorf("copy artifact into repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}
	if _, err := worktree.Add(artifactName); err != nil {
		return nil, fmt.Errorf("stage artifact: %w", err)
	}

	message := fmt.Sprintf("Update dashboard %s", p.now().UTC().Format(time.RFC3339))
	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.cfg.Author,
			Email: p.cfg.Email,
			When:  p.now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit artifact: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", p.cfg.Branch, p.cfg.Branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       p.auth(),
	})
	if err != nil {
		return nil, fmt.Errorf("push to %s: %w", p.cfg.Branch, err)
	}

	slog.Info("Artifact published",
		logfields.Commit(commit.String()[:8]),
		logfields.Branch(p.cfg.Branch))

	return &Result{Outcome: OutcomePublished, CommitHash: commit.String()}, nil
}

// initEmptyTarget initializes a fresh repository wired to the remote when the
// target exists but has no commits yet.
func (p *Publisher) initEmptyTarget(workdir, cloneURL string) (*git.Repository, error) {
	repo, err := git.PlainInit(workdir, false)
	if err != nil {
		return nil, fmt.Errorf("init workspace repository: %w", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{cloneURL},
	}); err != nil {
		return nil, fmt.Errorf("configure remote: %w", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(p.cfg.Branch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("set branch %s: %w", p.cfg.Branch, err)
	}
	return repo, nil
}

// artifactChanged reports whether the incoming artifact differs from the
// committed copy. A missing committed copy counts as changed.
func artifactChanged(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); os.IsNotExist(err) {
		return true, nil
	}

	srcHash, err := FileSHA256(src)
	if err != nil {
		return false, err
	}
	dstHash, err := FileSHA256(dst)
	if err != nil {
		return false, err
	}
	return srcHash != dstHash, nil
}

func (p *Publisher) auth() transport.AuthMethod {
	if p.cfg.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "token", // GitHub/GitLab use "token" as username
		Password: p.cfg.Token,
	}
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = dstFile.Close()
	}()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
