package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"idoosync/internal/config"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery lists files in a single directory
type Discovery struct {
	dir string
}

// NewDiscovery creates a new file discovery instance for dir
func NewDiscovery(dir string) *Discovery {
	return &Discovery{dir: dir}
}

// Dir returns the directory being searched
func (d *Discovery) Dir() string {
	return d.dir
}

// FindWorkbooks finds all .xlsx files, oldest first
func (d *Discovery) FindWorkbooks() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
			continue
		}
		// Excel lock files
		if strings.HasPrefix(name, "~$") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(d.dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// FindPartialDownloads finds browser downloads still in progress
func (d *Discovery) FindPartialDownloads() ([]FileInfo, error) {
	return d.FindFilesByPattern(config.PartialDownloadGlob)
}

// FindFilesByPattern finds files matching a glob pattern
func (d *Discovery) FindFilesByPattern(pattern string) ([]FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(d.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

// FilterModifiedSince keeps files modified at or after since. A zero since
// keeps everything.
func FilterModifiedSince(files []FileInfo, since time.Time) []FileInfo {
	if since.IsZero() {
		return files
	}
	var filtered []FileInfo
	for _, file := range files {
		if !file.ModTime.Before(since) {
			filtered = append(filtered, file)
		}
	}
	return filtered
}
