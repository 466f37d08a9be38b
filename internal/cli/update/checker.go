package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	GitHubAPIURL    = "https://api.github.com/repos/gostpanel/console/releases/latest"
	UserAgent       = "gostctl"
	DownloadBaseURL = "https://github.com/gostpanel/console/releases/download"
)

// Release represents a GitHub release
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// Updater checks for and installs new gostctl releases.
type Updater struct {
	ReleaseURL      string
	DownloadBaseURL string
	HTTPClient      *http.Client
	// ExecPath is the binary to replace. Empty means the running executable.
	ExecPath string
	Out      io.Writer
}

// New returns an Updater for the public release feed.
func New(out io.Writer) *Updater {
	return &Updater{
		ReleaseURL:      GitHubAPIURL,
		DownloadBaseURL: DownloadBaseURL,
		HTTPClient:      &http.Client{Timeout: 5 * time.Minute},
		Out:             out,
	}
}

// LatestVersion fetches the latest release tag
func (u *Updater) LatestVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.ReleaseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release feed returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if release.TagName == "" {
		return "", fmt.Errorf("release feed returned no tag")
	}

	return release.TagName, nil
}

// CheckForUpdate checks if a new version is available
func (u *Updater) CheckForUpdate(ctx context.Context, currentVersion string) (bool, string, error) {
	latestVersion, err := u.LatestVersion(ctx)
	if err != nil {
		return false, "", err
	}
	return compareVersions(currentVersion, latestVersion), latestVersion, nil
}

// compareVersions returns true if latest is newer than current
func compareVersions(current, latest string) bool {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")

	// Always suggest update from dev version
	if current == "dev" {
		return true
	}

	// Simple string comparison (works for semver like "1.0.0")
	return current != latest
}

// PrintUpdateNotification prints a message if an update is available.
// Errors are ignored: the check is best-effort.
func (u *Updater) PrintUpdateNotification(ctx context.Context, currentVersion string) {
	updateAvailable, latestVersion, err := u.CheckForUpdate(ctx, currentVersion)
	if err != nil || !updateAvailable {
		return
	}
	fmt.Fprintf(u.Out, "New version %s -> %s. Run: gostctl update\n\n", currentVersion, latestVersion)
}
