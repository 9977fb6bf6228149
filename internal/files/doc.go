// Package files provides file system operations for the download
// directory.
//
// Discovery lists finished workbooks and in-progress browser downloads.
// Manager performs moves, copies and deletes relative to the configured
// paths. Watcher waits for a report download to complete and brings it to
// its expected name.
//
// Example usage:
//
//	watcher := files.NewWatcher(paths, cfg.Report, timing.RealSleeper{}, logger)
//	started := time.Now()
//	// ... trigger the export ...
//	path, err := watcher.Wait(ctx, started)
package files
