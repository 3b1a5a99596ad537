package partition

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed groups/*.txt
var embeddedGroups embed.FS

// Catalog is a lazily loaded, memoized set of partitions.
type Catalog struct {
	fsys       fs.FS
	once       sync.Once
	partitions []Partition
	err        error
}

// New creates a catalog reading `*.txt` files from fsys, recursively.
func New(fsys fs.FS) *Catalog {
	return &Catalog{fsys: fsys}
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	sub, err := fs.Sub(embeddedGroups, "groups")
	if err != nil {
		panic(err) // embedded directory is always present
	}
	return New(sub)
})

// Default returns the process-wide catalog built into the binary.
func Default() *Catalog {
	return defaultCatalog()
}

// Partitions returns the catalog's partitions ordered lexicographically by
// file path. Files are read and parsed on the first call only; later calls
// return the memoized result, including a memoized error.
func (c *Catalog) Partitions() ([]Partition, error) {
	c.once.Do(func() {
		c.partitions, c.err = load(c.fsys)
		if c.err == nil {
			tracer().Debugf("partition catalog loaded: %d partitions", len(c.partitions))
		}
	})
	return c.partitions, c.err
}

func load(fsys fs.FS) ([]Partition, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && path.Ext(p) == ".txt" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading partition catalog: %w", err)
	}
	sort.Strings(files)
	partitions := make([]Partition, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, file := range files {
		index := strings.TrimSuffix(path.Base(file), ".txt")
		if other, dup := seen[index]; dup {
			return nil, fmt.Errorf("partition index %q defined by %s and %s", index, other, file)
		}
		seen[index] = file
		text, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		ranges, err := ParseRanges(string(text))
		if err != nil {
			return nil, fmt.Errorf("partition %s: %w", file, err)
		}
		if len(ranges) == 0 {
			return nil, fmt.Errorf("partition %s is empty", file)
		}
		partitions = append(partitions, Partition{Index: index, Ranges: ranges})
	}
	if len(partitions) == 0 {
		return nil, fmt.Errorf("partition catalog contains no partitions")
	}
	return partitions, nil
}
