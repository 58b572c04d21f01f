package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// TempStore writes uploaded audio into a fresh directory per upload,
// so one run's cleanup can never touch another run's file.
type TempStore struct {
	root string
}

// NewTempStore keeps temp directories under root, or under the system
// temp directory when root is empty.
func NewTempStore(root string) *TempStore {
	return &TempStore{root: root}
}

type StoredAudio struct {
	Dir  string
	Path string
	Size int64
}

var allowedExtensions = map[string]bool{"mp3": true, "wav": true}

// Save rejects empty uploads before creating anything on disk. The
// stored file keeps the caller's declared extension.
func (t *TempStore) Save(data []byte, ext string) (*StoredAudio, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		ext = "mp3"
	}
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("unsupported audio extension %q", ext)
	}

	dir, err := os.MkdirTemp(t.root, "audio_")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("generate file name: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("audio_input_%s.%s", hex.EncodeToString(suffix), ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write audio file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() != int64(len(data)) {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("wrote %d bytes, expected %d", info.Size(), len(data))
	}

	return &StoredAudio{Dir: dir, Path: path, Size: info.Size()}, nil
}

// Remove deletes the audio file, then its directory. Failures are
// logged at warn level and never returned.
func (a *StoredAudio) Remove() {
	if a == nil {
		return
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", a.Path).Msg("could not remove temp audio file")
	}
	if err := os.Remove(a.Dir); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("dir", a.Dir).Msg("could not remove temp audio dir")
	}
}
