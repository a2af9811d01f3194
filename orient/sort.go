package orient

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Sort scans dir for screenshot dumps and ordinary images, copying (or
// moving, if move is true) each file into dst's device/ or other/
// subdirectory per Classify's verdict.
func Sort(logger *slog.Logger, dir, dst string, move bool) error {
	deviceDir := filepath.Join(dst, "device")
	otherDir := filepath.Join(dst, "other")
	if err := os.MkdirAll(deviceDir, os.ModeDir); err != nil {
		return fmt.Errorf("unable to create device destination folder %q: %w", deviceDir, err)
	}
	if err := os.MkdirAll(otherDir, os.ModeDir); err != nil {
		return fmt.Errorf("unable to create other destination folder %q: %w", otherDir, err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", dir, err)
	}

	fileOp := copyFile
	if move {
		fileOp = moveFile
	}

	var deviceCount, otherCount, errCount int
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := filepath.Join(dir, file.Name())
		bucket, err := Classify(name)
		if err != nil {
			errCount++
			logger.Error("could not classify file", "file", name, "error", err)
			continue
		}

		destDir := otherDir
		if bucket == BucketDevice {
			destDir = deviceDir
		}
		dest := filepath.Join(destDir, file.Name())

		if err = fileOp(name, dest); err != nil {
			errCount++
			logger.Error("could not operate on file", "from", name, "to", dest, "error", err)
			continue
		}

		if bucket == BucketDevice {
			deviceCount++
		} else {
			otherCount++
		}
	}

	logger.Info("stats", "device", deviceCount, "other", otherCount, "errors", errCount,
		"total", deviceCount+otherCount)

	if errCount > 0 {
		return fmt.Errorf("error processing %d files", errCount)
	}
	return nil
}
