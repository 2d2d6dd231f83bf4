package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"trendpush/pkg/logx"
)

// fileStore keeps one JSON file per push record:
//
//	<dir>/push_<report type>_<day>.json
//
// Files are created with O_EXCL, which makes RecordPush an exists-or-create
// that also holds across processes sharing the directory.
type fileStore struct {
	log logx.Logger
	dir string

	mu sync.Mutex
}

const (
	filePrefix = "push_"
	fileSuffix = ".json"
)

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, dir: dir}, nil
}

func (s *fileStore) path(reportType, day string) string {
	return filepath.Join(s.dir, filePrefix+url.PathEscape(reportType)+"_"+day+fileSuffix)
}

func (s *fileStore) HasPushed(_ context.Context, reportType, day string) (bool, error) {
	if err := validKey(reportType, day); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(reportType, day))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *fileStore) RecordPush(_ context.Context, rec PushRecord) (bool, error) {
	if err := validKey(rec.ReportType, rec.Day); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(rec.ReportType, rec.Day), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.NewEncoder(f).Encode(rec); err != nil {
		_ = f.Close()
		return true, err
	}
	return true, f.Close()
}

func (s *fileStore) Prune(_ context.Context, before string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		day, ok := dayOf(e.Name())
		if !ok || e.IsDir() || day >= before {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			s.log.Warn("failed removing push record", logx.String("file", e.Name()), logx.Err(err))
			continue
		}
		n++
	}
	return n, nil
}

// dayOf extracts the day from a record file name.
func dayOf(name string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	stem := strings.TrimSuffix(name, fileSuffix)
	i := strings.LastIndexByte(stem, '_')
	if i < len(filePrefix) {
		return "", false
	}
	day := stem[i+1:]
	if len(day) != len(DayLayout) {
		return "", false
	}
	return day, true
}

func (s *fileStore) Close() error { return nil }
