// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fat32

import (
	"strings"

	"github.com/milkmanabi/mimiboot/mimierr"
)

// File is an open, read-only cursor over a FAT32 file's cluster chain,
// mirroring the position/cluster bookkeeping of fat32_read and fat32_seek.
type File struct {
	vol         *Volume
	startCluster uint32
	size        uint32

	pos         uint32
	curCluster  uint32
	curIndex    uint32 // position of curCluster within the chain
}

// resolve walks path component by component from the root directory,
// mirroring fat32_open: a leading slash is skipped, an empty path resolves
// to the root directory itself, and each non-final component must itself
// be a directory.
func (v *Volume) resolve(path string) (dirEntry, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return dirEntry{Attr: attrDirectory, Cluster: v.rootCluster}, nil
	}

	parts := strings.Split(path, "/")
	cluster := v.rootCluster
	var entry dirEntry

	for i, part := range parts {
		if part == "" {
			continue
		}
		found, ok, err := v.findInDir(cluster, part)
		if err != nil {
			return dirEntry{}, err
		}
		if !ok {
			return dirEntry{}, mimierr.New(mimierr.KindFileNotFound, nil, path)
		}
		entry = found
		if i < len(parts)-1 {
			if !entry.isDir() {
				return dirEntry{}, mimierr.New(mimierr.KindFileNotFound, nil, path+" (not a directory)")
			}
			cluster = entry.Cluster
		}
	}
	return entry, nil
}

// Open resolves path and returns a read cursor positioned at offset 0.
// Mirrors fat32_open's not-a-directory and not-found error mapping.
func (v *Volume) Open(path string) (*File, error) {
	entry, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	if entry.isDir() {
		return nil, mimierr.New(mimierr.KindFileNotFound, nil, path+" is a directory")
	}
	return &File{
		vol:          v,
		startCluster: entry.Cluster,
		size:         entry.Size,
		curCluster:   entry.Cluster,
	}, nil
}

// Exists reports whether path names a regular file or directory, mirroring
// fat32_exists — used by the orchestrator to probe for a fallback image
// without treating a miss as a logged error.
func (v *Volume) Exists(path string) bool {
	_, err := v.resolve(path)
	return err == nil
}

// Size returns the file's size in bytes, mirroring fat32_size.
func (f *File) Size() uint32 { return f.size }

// Read copies up to len(p) bytes starting at the current cursor position
// into p, advancing the cursor, and returns the number of bytes copied.
// Mirrors fat32_read's clamping and per-sector copy loop, generalized to
// whole clusters since Go has no fixed sector-buffer constraint.
func (f *File) Read(p []byte) (int, error) {
	if f.pos >= f.size {
		return 0, nil
	}
	remaining := f.size - f.pos
	want := uint32(len(p))
	if want > remaining {
		want = remaining
	}

	clusterSize := f.vol.clusterSize
	buf := make([]byte, clusterSize)
	var n uint32
	cluster := f.curCluster

	// Walk from startCluster if the cursor has been repositioned behind
	// the cached curCluster (Seek may rewind).
	clustersToSkip := f.pos / clusterSize
	if f.curClusterIndex() != clustersToSkip {
		cluster = f.startCluster
		for i := uint32(0); i < clustersToSkip; i++ {
			next, ok, err := f.vol.nextCluster(cluster)
			if err != nil {
				return int(n), err
			}
			if !ok {
				return int(n), mimierr.New(mimierr.KindFilesystem, nil, "cluster chain ended early")
			}
			cluster = next
		}
		f.curCluster = cluster
		f.curIndex = clustersToSkip
	}

	offsetInCluster := f.pos % clusterSize
	for n < want {
		if err := f.vol.readCluster(cluster, buf); err != nil {
			return int(n), err
		}
		chunk := clusterSize - offsetInCluster
		if chunk > want-n {
			chunk = want - n
		}
		copy(p[n:n+chunk], buf[offsetInCluster:offsetInCluster+chunk])
		n += chunk
		f.pos += chunk
		offsetInCluster = 0

		if n < want {
			next, ok, err := f.vol.nextCluster(cluster)
			if err != nil {
				return int(n), err
			}
			if !ok {
				break
			}
			cluster = next
			f.curCluster = cluster
			f.curIndex++
		}
	}
	return int(n), nil
}

func (f *File) curClusterIndex() uint32 {
	return f.curIndex
}

// Seek repositions the cursor to an absolute byte offset. The cluster-chain
// walk by offset/cluster_size steps happens on the next Read.
func (f *File) Seek(offset uint32) error {
	if offset > f.size {
		return mimierr.New(mimierr.KindFilesystem, nil, "seek past end of file")
	}
	f.pos = offset
	return nil
}
