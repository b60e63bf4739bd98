// Package history keeps a git repository per report with one commit for
// every stored draft and a tag on submission.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"labreport/api/internal/report"
)

const (
	contentFile   = "report.json"
	SubmittedTag  = "submitted"
	mainBranch    = "main"
	authorDomain  = "students.labreport.local"
	defaultAuthor = "Student"
)

var ErrNotFound = errors.New("history not found")

var unsafeRepoChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

type Commit struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Tags      []string  `json:"tags,omitempty"`
}

// FieldChange describes one field that differs between two versions.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type Service struct {
	baseDir string
	now     func() time.Time
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record commits the report as report.json on main. An unchanged report
// returns the current head without a new commit.
func (s *Service) Record(r report.Report, message string) (Commit, error) {
	lock := s.reportLock(r.ID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(r.ID)
	if err != nil {
		return Commit{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Commit{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return Commit{}, fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), contentFile), append(payload, '\n'), 0o644); err != nil {
		return Commit{}, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return Commit{}, fmt.Errorf("git add: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return Commit{}, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		if head, err := repo.Head(); err == nil {
			if commitObj, err := repo.CommitObject(head.Hash()); err == nil {
				return toCommit(commitObj, nil), nil
			}
		}
	}

	author := r.StudentName
	if author == "" {
		author = defaultAuthor
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@%s", sanitizeEmail(author), authorDomain),
			When:  s.now(),
		},
	})
	if err != nil {
		return Commit{}, fmt.Errorf("commit report: %w", err)
	}
	if err := ensureMainBranch(repo, hash); err != nil {
		return Commit{}, err
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Commit{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommit(commitObj, nil), nil
}

// Tag marks the current head. An existing tag is left alone.
func (s *Service) Tag(reportID, name string) error {
	lock := s.reportLock(reportID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(reportID)
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve head: %w", err)
	}
	_, err = repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Tagger: &object.Signature{
			Name:  "Lab Notebook",
			Email: "notebook@" + authorDomain,
			When:  s.now(),
		},
		Message: name,
	})
	if err != nil && !errors.Is(err, git.ErrTagExists) {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// History lists commits newest first. A report without a repository has no
// history.
func (s *Service) History(reportID string, limit int) ([]Commit, error) {
	lock := s.reportLock(reportID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(reportID)
	if errors.Is(err, ErrNotFound) {
		return []Commit{}, nil
	}
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	tags, err := tagsByCommit(repo)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Commit, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommit(commitObj, tags[commitObj.Hash]))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Version returns the report stored at hash and what changed relative to
// the commit's parent. The first commit is compared with an empty report.
func (s *Service) Version(reportID, hash string) (report.Report, []FieldChange, error) {
	lock := s.reportLock(reportID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(reportID)
	if err != nil {
		return report.Report{}, nil, err
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return report.Report{}, nil, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return report.Report{}, nil, fmt.Errorf("%w: commit %s", ErrNotFound, hash)
	}
	current, err := readReport(commitObj)
	if err != nil {
		return report.Report{}, nil, err
	}

	previous := report.NewReport(current.ID)
	if commitObj.NumParents() > 0 {
		parent, err := commitObj.Parent(0)
		if err != nil {
			return report.Report{}, nil, fmt.Errorf("read parent: %w", err)
		}
		if previous, err = readReport(parent); err != nil {
			return report.Report{}, nil, err
		}
	}
	return current, DiffFields(previous, current), nil
}

func (s *Service) repoPath(reportID string) string {
	return filepath.Join(s.baseDir, unsafeRepoChars.ReplaceAllString(reportID, "_"))
}

func (s *Service) reportLock(reportID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[reportID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[reportID] = lock
	return lock
}

func (s *Service) open(reportID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(reportID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, reportID)
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Service) openOrInit(reportID string) (*git.Repository, error) {
	repo, err := s.open(reportID)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	path := s.repoPath(reportID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(mainBranch))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

// ensureMainBranch points main at hash when HEAD was still unborn.
func ensureMainBranch(repo *git.Repository, hash plumbing.Hash) error {
	ref := plumbing.NewBranchReferenceName(mainBranch)
	if _, err := repo.Reference(ref, true); err == nil {
		return nil
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(ref, hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	return nil
}

func tagsByCommit(repo *git.Repository) (map[plumbing.Hash][]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer iter.Close()

	out := make(map[plumbing.Hash][]string)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if tagObj, err := repo.TagObject(target); err == nil {
			target = tagObj.Target
		}
		out[target] = append(out[target], ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	for hash := range out {
		sort.Strings(out[hash])
	}
	return out, nil
}

func readReport(commitObj *object.Commit) (report.Report, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return report.Report{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return report.Report{}, fmt.Errorf("read %s: %w", contentFile, err)
	}
	return report.ParseReport([]byte(contents)), nil
}

func toCommit(commitObj *object.Commit, tags []string) Commit {
	return Commit{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
		Tags:      tags,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "student"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: revision %s", ErrNotFound, hash)
	}
	return *resolved, nil
}
