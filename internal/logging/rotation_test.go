package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewRotatingWriter(t *testing.T) {
	t.Run("creates log file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("creates nested directories", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "nested", "dir", "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("appends to existing file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		initialContent := []byte("initial content\n")
		if err := os.WriteFile(logPath, initialContent, 0644); err != nil {
			t.Fatalf("failed to write initial content: %v", err)
		}

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}

		_, err = rw.Write([]byte("appended content\n"))
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		_ = rw.Close()

		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}

		if !strings.Contains(string(content), "initial content") {
			t.Error("initial content was lost")
		}
		if !strings.Contains(string(content), "appended content") {
			t.Error("appended content was not written")
		}
	})
}

func TestRotatingWriterWrite(t *testing.T) {
	t.Run("writes data to file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}

		data := []byte("test message\n")
		n, err := rw.Write(data)
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if n != len(data) {
			t.Errorf("expected to write %d bytes, wrote %d", len(data), n)
		}

		_ = rw.Close()

		content, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}

		if string(content) != string(data) {
			t.Errorf("expected %q, got %q", data, content)
		}
	})

	t.Run("tracks current size", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		data := []byte("0123456789")
		if _, err := rw.Write(data); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := rw.Write(data); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		if got := rw.CurrentSize(); got != int64(2*len(data)) {
			t.Errorf("CurrentSize() = %d, expected %d", got, 2*len(data))
		}
	})

	t.Run("rejects writes after close", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		_ = rw.Close()

		if _, err := rw.Write([]byte("data")); err == nil {
			t.Error("expected error writing to closed writer")
		}
	})
}

// smallRotationConfig returns the smallest configurable rotation threshold
// so tests can trigger rotation with a few large writes.
func smallRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSizeMB:  1,
		MaxBackups: 2,
		Compress:   false,
	}
}

// writeUntilRotated writes lines until the writer has rotated at least once,
// returning the number of lines written.
func writeUntilRotated(t *testing.T, rw *RotatingWriter, logPath string) int {
	t.Helper()

	// Each line is ~128KB so a handful of writes exceeds 1MB
	line := strings.Repeat("x", 128*1024)
	for i := 0; i < 20; i++ {
		if _, err := rw.Write([]byte(fmt.Sprintf("%s %d\n", line, i))); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := os.Stat(logPath + ".1"); err == nil {
			return i + 1
		}
	}
	t.Fatal("writer never rotated")
	return 0
}

func TestRotation(t *testing.T) {
	t.Run("rotates when size exceeded", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		rw, err := NewRotatingWriter(logPath, smallRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		writeUntilRotated(t, rw, logPath)

		// Both the active file and the first backup should exist
		if _, err := os.Stat(logPath); err != nil {
			t.Errorf("active log file missing after rotation: %v", err)
		}
		if _, err := os.Stat(logPath + ".1"); err != nil {
			t.Errorf("backup file missing after rotation: %v", err)
		}
	})

	t.Run("respects max backups", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		config := smallRotationConfig()
		rw, err := NewRotatingWriter(logPath, config)
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		// Force several rotations
		line := strings.Repeat("x", 256*1024)
		for i := 0; i < 20; i++ {
			if _, err := rw.Write([]byte(line + "\n")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}

		// No backup beyond MaxBackups should exist
		beyondPath := logPath + fmt.Sprintf(".%d", config.MaxBackups+1)
		if _, err := os.Stat(beyondPath); err == nil {
			t.Errorf("backup %s exists, expected at most %d backups", beyondPath, config.MaxBackups)
		}
	})

	t.Run("no rotation when disabled", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		config := RotationConfig{MaxSizeMB: 0, MaxBackups: 0, Compress: false}
		rw, err := NewRotatingWriter(logPath, config)
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		line := strings.Repeat("x", 256*1024)
		for i := 0; i < 10; i++ {
			if _, err := rw.Write([]byte(line + "\n")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}

		if _, err := os.Stat(logPath + ".1"); err == nil {
			t.Error("backup created despite rotation being disabled")
		}
	})

	t.Run("compresses rotated files", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "test.log")

		config := smallRotationConfig()
		config.Compress = true
		rw, err := NewRotatingWriter(logPath, config)
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		line := strings.Repeat("x", 256*1024)
		for i := 0; i < 6; i++ {
			if _, err := rw.Write([]byte(line + "\n")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}

		// Compression runs asynchronously, poll for the .gz file
		gzPath := logPath + ".1.gz"
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(gzPath); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}

		gzFile, err := os.Open(gzPath)
		if err != nil {
			t.Fatalf("compressed backup not created: %v", err)
		}
		defer gzFile.Close()

		gzReader, err := gzip.NewReader(gzFile)
		if err != nil {
			t.Fatalf("failed to open gzip reader: %v", err)
		}
		defer gzReader.Close()

		data, err := io.ReadAll(gzReader)
		if err != nil {
			t.Fatalf("failed to read compressed data: %v", err)
		}
		if !strings.Contains(string(data), "x") {
			t.Error("compressed backup does not contain expected data")
		}
	})
}

func TestRotatingWriterClose(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	rw, err := NewRotatingWriter(logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	if _, err := rw.Write([]byte("data\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := rw.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}

	// Second close is a no-op
	if err := rw.Close(); err != nil {
		t.Errorf("Second Close() returned error: %v", err)
	}
}

func TestNewLoggerWithRotation(t *testing.T) {
	t.Run("logger writes through rotating writer", func(t *testing.T) {
		dir := t.TempDir()

		config := RotationConfig{MaxSizeMB: 1, MaxBackups: 1, Compress: false}
		logger, err := NewLoggerWithRotation(dir, LevelDebug, config)
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}

		logger.Info("hello", "key", "value")
		logger.Close()

		content, err := os.ReadFile(filepath.Join(dir, LogFileName))
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(content), "hello") {
			t.Error("log file does not contain expected message")
		}
	})

	t.Run("stderr logger has no sink", func(t *testing.T) {
		logger, err := NewLoggerWithRotation("", LevelInfo, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}
		defer logger.Close()

		if logger.sink != nil {
			t.Error("expected nil sink for stderr logger")
		}
	})
}
