// Package scanner discovers git repositories under a directory tree and
// derives owner/repo project names from their origin remotes.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/friction/internal/logging"
	"github.com/mesh-intelligence/friction/internal/paths"
)

// Defaults used by New.
const (
	DefaultHost    = "github.com"
	DefaultTimeout = 5 * time.Second
	DefaultWorkers = 4
)

// RemoteFunc returns the origin URL of the repository rooted at root.
type RemoteFunc func(ctx context.Context, root string) (string, error)

// Scanner walks a directory tree looking for repository roots.
type Scanner struct {
	// Host is the only remote host whose URLs yield a project name.
	Host string
	// Timeout bounds each remote lookup.
	Timeout time.Duration
	// Workers bounds the number of concurrent remote lookups.
	Workers int
	// Remote looks up the origin URL. Defaults to GitRemote.
	Remote RemoteFunc
	Logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithHost sets the accepted remote host.
func WithHost(host string) Option {
	return func(s *Scanner) { s.Host = host }
}

// WithTimeout sets the per-lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.Timeout = d }
}

// WithWorkers sets the lookup concurrency.
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.Workers = n }
}

// WithRemote replaces the origin lookup.
func WithRemote(fn RemoteFunc) Option {
	return func(s *Scanner) { s.Remote = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.Logger = l }
}

// New returns a Scanner with defaults applied before opts.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		Host:    DefaultHost,
		Timeout: DefaultTimeout,
		Workers: DefaultWorkers,
		Remote:  GitRemote,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Logger = logging.OrDiscard(s.Logger)
	if s.Workers < 1 {
		s.Workers = 1
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.Remote == nil {
		s.Remote = GitRemote
	}
	return s
}

// Scan returns the sorted, deduplicated owner/repo names of every
// repository under root whose origin points at the scanner's host.
// Repositories without a usable origin are skipped. Only a root that
// cannot be resolved is an error.
func (s *Scanner) Scan(ctx context.Context, root string) ([]string, error) {
	roots, err := FindRepositories(root)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		found = make(map[string]bool)
	)

	match := newRemoteMatcher(s.Host)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)
	for _, repo := range roots {
		repo := repo
		g.Go(func() error {
			name, ok := s.project(gctx, repo, match)
			if !ok {
				return nil
			}
			mu.Lock()
			found[name] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	s.Logger.Debug("scan complete", "root", root, "repositories", len(roots), "projects", len(names))
	return names, nil
}

// project resolves one repository root to a project name.
func (s *Scanner) project(ctx context.Context, repo string, match remoteMatcher) (string, bool) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	url, err := s.Remote(lookupCtx, repo)
	if err != nil {
		s.Logger.Debug("skipping repository without origin", "path", repo, "error", err)
		return "", false
	}
	name, ok := match.parse(url)
	if !ok {
		s.Logger.Debug("skipping repository with foreign origin", "path", repo, "url", url)
		return "", false
	}
	return name, true
}

// FindRepositories returns the repository roots under root in
// breadth-first order. A directory containing a .git directory is a root
// and is not descended into. Hidden directories, node_modules, and
// symlinked directories are skipped; unreadable directories are ignored.
// A root that is a regular file yields no repositories.
func FindRepositories(root string) ([]string, error) {
	start, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(start)
	if err != nil {
		return nil, fmt.Errorf("resolving scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{}, nil
	}

	repos := []string{}
	queue := []string{start}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		if isRepository(entries) {
			repos = append(repos, dir)
			continue
		}
		for _, e := range entries {
			// DirEntry reports a symlink as a non-directory.
			if !e.IsDir() || skipDir(e.Name()) {
				continue
			}
			queue = append(queue, filepath.Join(dir, e.Name()))
		}
	}
	return repos, nil
}

// resolveRoot expands ~, makes root absolute, and resolves symlinks.
func resolveRoot(root string) (string, error) {
	abs, err := paths.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving scan root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving scan root %s: %w", root, err)
	}
	return resolved, nil
}

func isRepository(entries []os.DirEntry) bool {
	for _, e := range entries {
		if e.Name() == ".git" && e.IsDir() {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// GitRemote reads remote.origin.url with the git binary. Credential
// prompts are disabled so an unreachable remote cannot block the scan.
func GitRemote(ctx context.Context, root string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", root, "config", "--get", "remote.origin.url")
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("reading origin of %s: %w", root, err)
	}
	url := strings.TrimSpace(string(out))
	if url == "" {
		return "", fmt.Errorf("reading origin of %s: empty url", root)
	}
	return url, nil
}

// remoteMatcher holds the SSH and HTTP(S) remote patterns for one host.
type remoteMatcher [2]*regexp.Regexp

func newRemoteMatcher(host string) remoteMatcher {
	h := regexp.QuoteMeta(host)
	return remoteMatcher{
		regexp.MustCompile(`^git@` + h + `:([^/\s]+)/([^/\s]+)$`),
		regexp.MustCompile(`^https?://` + h + `/([^/\s]+)/([^/\s]+)$`),
	}
}

// parse returns owner/repo for a matching URL. The .git suffix is removed
// after matching, so a bare ".git" repo segment yields nothing.
func (m remoteMatcher) parse(url string) (string, bool) {
	url = strings.TrimSpace(url)
	for _, re := range m {
		sub := re.FindStringSubmatch(url)
		if sub == nil {
			continue
		}
		repo := strings.TrimSuffix(sub[2], ".git")
		if repo == "" {
			return "", false
		}
		return sub[1] + "/" + repo, true
	}
	return "", false
}

// ParseRemote extracts owner/repo from an SSH (git@host:owner/repo) or
// HTTP(S) (https://host/owner/repo) remote URL, with an optional .git
// suffix. URLs for any other host or shape are rejected.
func ParseRemote(url, host string) (string, bool) {
	return newRemoteMatcher(host).parse(url)
}
