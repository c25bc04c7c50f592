package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultGitHubBaseURL = "https://api.github.com"
	maxReadmeChars       = 8000
	maxTreePaths         = 200
)

// GitHubClient fetches repository content used as opaque context for the
// generation prompt. It is a narrow collaborator: one README fetch, one tree
// listing, no retries.
type GitHubClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewGitHubClient builds a client, reading an optional GITHUB_TOKEN from the
// environment for private repos and higher rate limits.
func NewGitHubClient() *GitHubClient {
	return &GitHubClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultGitHubBaseURL,
		token:      os.Getenv("GITHUB_TOKEN"),
	}
}

// FetchRepoContext returns a free-form context string describing the
// repository: its README followed by a truncated file listing. The result is
// fed to the generative model verbatim and never parsed by the core.
func (c *GitHubClient) FetchRepoContext(ctx context.Context, repoURL string) (string, error) {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		return "", err
	}
	slog.Info("Fetching repository context", "owner", owner, "repo", repo)

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s/%s\n\n", owner, repo)

	readme, err := c.fetchReadme(ctx, owner, repo)
	if err != nil {
		slog.Warn("Could not fetch README, continuing without it", "error", err)
	} else {
		b.WriteString("README:\n")
		b.WriteString(readme)
		b.WriteString("\n\n")
	}

	paths, err := c.fetchTree(ctx, owner, repo)
	if err != nil {
		slog.Warn("Could not fetch file tree, continuing without it", "error", err)
	} else if len(paths) > 0 {
		b.WriteString("Files:\n")
		for _, p := range paths {
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}

	if readme == "" && len(paths) == 0 {
		return "", fmt.Errorf("no content could be fetched for %s/%s", owner, repo)
	}
	return b.String(), nil
}

func (c *GitHubClient) fetchReadme(ctx context.Context, owner, repo string) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, owner, repo),
		"application/vnd.github.raw+json")
	if err != nil {
		return "", err
	}
	readme := string(body)
	if len(readme) > maxReadmeChars {
		readme = readme[:maxReadmeChars]
	}
	return readme, nil
}

func (c *GitHubClient) fetchTree(ctx context.Context, owner, repo string) ([]string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s/git/trees/HEAD?recursive=1", c.baseURL, owner, repo),
		"application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	var tree struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
	}
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("could not parse tree response: %w", err)
	}
	var paths []string
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		paths = append(paths, entry.Path)
		if len(paths) >= maxTreePaths {
			break
		}
	}
	return paths, nil
}

func (c *GitHubClient) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GitHub request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub responded with status %d for %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(resp.Body)
}

// parseRepoURL accepts "https://github.com/owner/repo", "github.com/owner/repo"
// and bare "owner/repo" forms, with or without a trailing ".git".
func parseRepoURL(repoURL string) (owner, repo string, err error) {
	s := strings.TrimSpace(repoURL)
	if s == "" {
		return "", "", fmt.Errorf("empty repository URL")
	}
	if strings.Contains(s, "://") {
		u, perr := url.Parse(s)
		if perr != nil {
			return "", "", fmt.Errorf("invalid repository URL '%s': %w", repoURL, perr)
		}
		s = strings.TrimPrefix(u.Path, "/")
	} else {
		s = strings.TrimPrefix(s, "github.com/")
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")
	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository URL '%s' must name owner and repo", repoURL)
	}
	return parts[0], parts[1], nil
}
