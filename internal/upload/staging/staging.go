// Package staging owns the on-disk layout for in-flight chunks and
// assembled roster artifacts.
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Staging writes chunks under stagingDir/<name>/<index>.part and
// assembled files under assembledDir.
type Staging struct {
	stagingDir   string
	assembledDir string
}

func New(stagingDir, assembledDir string) *Staging {
	return &Staging{stagingDir: stagingDir, assembledDir: assembledDir}
}

// WriteChunk persists one chunk. Writing the same index twice overwrites
// idempotently.
func (s *Staging) WriteChunk(name string, index int, data []byte) error {
	dir := filepath.Join(s.stagingDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if err := os.WriteFile(s.chunkPath(name, index), data, 0o644); err != nil {
		return fmt.Errorf("write chunk %d: %w", index, err)
	}
	return nil
}

// Assemble concatenates chunks 0..total-1 in strict index order into
// assembledDir/assembledName. On any failure the partial output is
// removed so a half-written artifact is never left behind.
func (s *Staging) Assemble(name, assembledName string, total int) (path string, err error) {
	if err := os.MkdirAll(s.assembledDir, 0o755); err != nil {
		return "", fmt.Errorf("create assembled dir: %w", err)
	}
	outPath := filepath.Join(s.assembledDir, assembledName)
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create assembled file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(outPath)
		}
	}()

	for i := 0; i < total; i++ {
		chunk, err := os.Open(s.chunkPath(name, i))
		if err != nil {
			return "", fmt.Errorf("open chunk %d: %w", i, err)
		}
		_, copyErr := io.Copy(out, chunk)
		_ = chunk.Close()
		if copyErr != nil {
			return "", fmt.Errorf("append chunk %d: %w", i, copyErr)
		}
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close assembled file: %w", err)
	}
	return outPath, nil
}

// Clear removes all staged chunks for name.
func (s *Staging) Clear(name string) error {
	if err := os.RemoveAll(filepath.Join(s.stagingDir, name)); err != nil {
		return fmt.Errorf("clear staging for %s: %w", name, err)
	}
	return nil
}

// AssembledPath returns the absolute path of an assembled artifact.
func (s *Staging) AssembledPath(assembledName string) string {
	return filepath.Join(s.assembledDir, assembledName)
}

func (s *Staging) chunkPath(name string, index int) string {
	return filepath.Join(s.stagingDir, name, fmt.Sprintf("%06d.part", index))
}
