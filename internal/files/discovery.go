package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	headerExt = ".hea"
	dataExt   = ".dat"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// RecordFile is one WFDB record: a header plus its data file
type RecordFile struct {
	// Base is the record path without extension, as wfdb.ReadRecord expects
	Base string
	// Ref is Base relative to the discovery base, slash separated
	Ref string
	// DataSize is the size of <Base>.dat, or -1 when it is missing
	DataSize int64
	ModTime  time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindRecords walks dir for WFDB headers and returns the records sorted by
// reference. A header without a .dat file is still reported.
func (d *Discovery) FindRecords(dir string) ([]RecordFile, error) {
	fullPath := d.resolve(dir)

	var records []RecordFile
	err := filepath.WalkDir(fullPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), headerExt) {
			return nil
		}

		base := strings.TrimSuffix(path, filepath.Ext(path))
		rec := RecordFile{Base: base, Ref: d.ref(base), DataSize: -1}
		if info, err := os.Stat(base + dataExt); err == nil {
			rec.DataSize = info.Size()
			rec.ModTime = info.ModTime()
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", fullPath, err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Ref < records[j].Ref
	})
	return records, nil
}

func (d *Discovery) ref(base string) string {
	if d.basePath == "" {
		return filepath.ToSlash(base)
	}
	rel, err := filepath.Rel(d.basePath, base)
	if err != nil {
		return filepath.ToSlash(base)
	}
	return filepath.ToSlash(rel)
}

// FindTables finds CSV and Excel tables in dir, skipping Excel lock files.
// Results are sorted by modification time, oldest first.
func (d *Discovery) FindTables(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") || !IsTable(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
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

// IsTable reports whether name has a .csv or .xlsx extension
func IsTable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
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

// MissingData returns the records whose .dat file is absent
func MissingData(records []RecordFile) []RecordFile {
	var missing []RecordFile
	for _, r := range records {
		if r.DataSize < 0 {
			missing = append(missing, r)
		}
	}
	return missing
}
