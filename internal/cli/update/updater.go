package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SelfUpdate downloads, verifies and installs the latest version. A running
// console notices the replaced binary and reloads on its next navigation.
func (u *Updater) SelfUpdate(ctx context.Context, currentVersion string) error {
	latestVersion, err := u.LatestVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	if !compareVersions(currentVersion, latestVersion) {
		fmt.Fprintf(u.Out, "Already up to date (version %s)\n", currentVersion)
		return nil
	}

	fmt.Fprintf(u.Out, "Updating from %s to %s...\n", currentVersion, latestVersion)

	binaryName, err := BinaryName(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}

	fmt.Fprintln(u.Out, "Downloading new version...")
	downloadURL := fmt.Sprintf("%s/%s/%s", u.DownloadBaseURL, latestVersion, binaryName)

	execPath, err := u.execPath()
	if err != nil {
		return err
	}

	// Download next to the binary so the final rename stays on one filesystem.
	tmpFile, err := u.download(ctx, downloadURL, filepath.Dir(execPath))
	if err != nil {
		return fmt.Errorf("failed to download update: %w", err)
	}
	defer os.Remove(tmpFile)

	fmt.Fprintln(u.Out, "Verifying checksum...")
	if err := u.verifyChecksum(ctx, tmpFile, downloadURL+".sha256"); err != nil {
		return fmt.Errorf("checksum verification failed: %w", err)
	}

	fmt.Fprintln(u.Out, "Installing new version...")
	if err := replaceBinary(tmpFile, execPath); err != nil {
		return fmt.Errorf("failed to install update: %w", err)
	}

	fmt.Fprintf(u.Out, "\n✓ Successfully updated to version %s!\n", latestVersion)
	return nil
}

func (u *Updater) execPath() (string, error) {
	path := u.ExecPath
	if path == "" {
		var err error
		path, err = os.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to get executable path: %w", err)
		}
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return resolved, nil
}

// BinaryName returns the release asset name for a platform
func BinaryName(goos, goarch string) (string, error) {
	switch goos {
	case "linux", "darwin":
		if goarch != "amd64" && goarch != "arm64" {
			return "", fmt.Errorf("unsupported architecture: %s", goarch)
		}
		return fmt.Sprintf("gostctl-%s-%s", goos, goarch), nil
	case "windows":
		if goarch != "amd64" {
			return "", fmt.Errorf("unsupported architecture: %s", goarch)
		}
		return "gostctl-windows-amd64.exe", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

func (u *Updater) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download of %s failed with status %d", url, resp.StatusCode)
	}
	return resp, nil
}

// download writes url into a temp file in dir and returns its path
func (u *Updater) download(ctx context.Context, url, dir string) (string, error) {
	resp, err := u.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmpFile, err := os.CreateTemp(dir, ".gostctl-update-*")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}

	return tmpFile.Name(), nil
}

// verifyChecksum compares the file's SHA256 with the published
// "hash  filename" line
func (u *Updater) verifyChecksum(ctx context.Context, filePath, checksumURL string) error {
	resp, err := u.get(ctx, checksumURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	checksumData, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return err
	}

	parts := strings.Fields(string(checksumData))
	if len(parts) < 1 {
		return fmt.Errorf("invalid checksum format")
	}
	expectedHash := strings.ToLower(parts[0])

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	actualHash := hex.EncodeToString(h.Sum(nil))

	if actualHash != expectedHash {
		return fmt.Errorf("checksum mismatch (expected: %s, got: %s)", expectedHash, actualHash)
	}

	return nil
}

// replaceBinary moves the new binary over the current one
func replaceBinary(newBinaryPath, currentBinaryPath string) error {
	if err := os.Chmod(newBinaryPath, 0755); err != nil {
		return err
	}

	// On Windows a running executable cannot be replaced, only renamed
	if runtime.GOOS == "windows" {
		backupPath := currentBinaryPath + ".old"
		os.Remove(backupPath)

		if err := os.Rename(currentBinaryPath, backupPath); err != nil {
			return fmt.Errorf("failed to backup current binary: %w", err)
		}
		if err := os.Rename(newBinaryPath, currentBinaryPath); err != nil {
			os.Rename(backupPath, currentBinaryPath)
			return fmt.Errorf("failed to install new binary: %w", err)
		}
		return nil
	}

	// Rename is atomic, so running consoles keep their open inode
	if err := os.Rename(newBinaryPath, currentBinaryPath); err != nil {
		return fmt.Errorf("failed to install new binary: %w", err)
	}
	return nil
}
