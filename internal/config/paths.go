package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	BaseDir         string
	DownloadDir     string
	LogsDir         string
	DataDir         string
	CredentialsFile string
	HistoryDB       string
	LogFile         string
}

// GetPaths resolves the configured locations to absolute paths. An empty
// BaseDir means the current working directory.
func GetPaths(pc PathsConfig, lc LoggingConfig) (*Paths, error) {
	base := pc.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(dir, p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	paths := &Paths{
		BaseDir:         base,
		DownloadDir:     resolve(base, pc.DownloadDir),
		LogsDir:         resolve(base, pc.LogsDir),
		DataDir:         resolve(base, pc.DataDir),
		CredentialsFile: resolve(base, pc.CredentialsFile),
	}
	paths.HistoryDB = resolve(paths.DataDir, pc.HistoryDB)
	paths.LogFile = resolve(paths.LogsDir, lc.FilePath)

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DownloadDir,
		p.LogsDir,
		p.DataDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists",
			slog.String("directory", dir))
	}

	return nil
}

// DownloadPath returns the path for a file in the download directory
func (p *Paths) DownloadPath(filename string) string {
	return filepath.Join(p.DownloadDir, filename)
}

// BasePath returns the path for a file in the base directory
func (p *Paths) BasePath(filename string) string {
	return filepath.Join(p.BaseDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("downloads", p.DownloadDir),
			slog.String("logs", p.LogsDir),
			slog.String("data", p.DataDir),
		),
		slog.Group("files",
			slog.String("credentials", p.CredentialsFile),
			slog.String("history_db", p.HistoryDB),
			slog.String("log", p.LogFile),
			slog.Bool("credentials_exist", FileExists(p.CredentialsFile)),
		))
}
