package files

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"idoosync/internal/config"
)

// Manager provides file management operations
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger}
}

// Stat describes the regular file at path, reporting false when it is
// missing or a directory
func (m *Manager) Stat(path string) (FileInfo, bool) {
	fullPath := m.Resolve(path)
	info, err := os.Stat(fullPath)
	exists := err == nil && !info.IsDir()

	m.logger.Debug("Stat check",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	if !exists {
		return FileInfo{}, false
	}
	return FileInfo{
		Path:    fullPath,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}

// Rename renames src to dst without any fallback, so a locked source
// surfaces as an error the caller can retry.
func (m *Manager) Rename(src, dst string) error {
	srcPath := m.Resolve(src)
	dstPath := m.Resolve(dst)
	if err := os.Rename(srcPath, dstPath); err != nil {
		return err
	}
	m.logger.Info("Renamed file",
		slog.String("src_path", srcPath),
		slog.String("dst_path", dstPath))
	return nil
}

// DeleteFile deletes a file
func (m *Manager) DeleteFile(path string) error {
	fullPath := m.Resolve(path)

	m.logger.Info("Deleting file",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	return os.Remove(fullPath)
}

// Resolve maps path onto the configured directories. Absolute paths are
// returned as-is; "downloads/", "logs/" and "data/" prefixes select the
// matching directory and anything else is relative to the base directory.
func (m *Manager) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	switch {
	case strings.HasPrefix(path, "downloads/"):
		return m.paths.DownloadPath(strings.TrimPrefix(path, "downloads/"))
	case strings.HasPrefix(path, "logs/"):
		return filepath.Join(m.paths.LogsDir, strings.TrimPrefix(path, "logs/"))
	case strings.HasPrefix(path, "data/"):
		return filepath.Join(m.paths.DataDir, strings.TrimPrefix(path, "data/"))
	default:
		return m.paths.BasePath(path)
	}
}
