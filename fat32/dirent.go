// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fat32

import (
	"encoding/binary"
	"strings"

	"github.com/go-restruct/restruct"
)

// shortDirEntry is the 32-byte 8.3 directory entry layout, decoded with
// go-restruct the way dsoprea/go-exfat decodes its own fixed-size entries.
type shortDirEntry struct {
	Name      [11]byte
	Attr      uint8
	_         uint8  // NTRes
	_         uint8  // CrtTimeTenth
	_         uint16 // CrtTime
	_         uint16 // CrtDate
	_         uint16 // LastAccessDate
	ClusterHi uint16
	_         uint16 // WrtTime
	_         uint16 // WrtDate
	ClusterLo uint16
	FileSize  uint32
}

// lfnDirEntry is a 32-byte long-filename fragment. The fixed UCS-2 offsets
// (1,3,5,7,9 / 14,16,18,20,22,24 / 28,30) match find_in_dir exactly; this
// rendition extracts only the low byte of each UCS-2 code unit, the same
// ASCII-subset simplification the original performs.
type lfnDirEntry struct {
	Ord       uint8
	Name1     [5]uint16
	Attr      uint8
	Type      uint8
	Checksum  uint8
	Name2     [6]uint16
	_         uint16
	Name3     [2]uint16
}

const maxNameLen = 255

// dirEntry is a resolved directory entry: a long name (if LFN fragments
// preceded it) or the 8.3 short name, plus the attributes needed by path
// resolution and file opening.
type dirEntry struct {
	Name      string
	Attr      uint8
	Cluster   uint32
	Size      uint32
}

func (e dirEntry) isDir() bool  { return e.Attr&attrDirectory != 0 }

// findInDir scans the directory starting at dirCluster for an entry whose
// name matches name case-insensitively, reassembling any preceding LFN
// fragments exactly as find_in_dir does: an LFN sequence is buffered by
// ordinal, then consumed as soon as the following short entry is seen. The
// buffered long name is used only if a last-fragment (0x40) entry was seen
// and the first fragment is present; LFN checksums are not checked.
func (v *Volume) findInDir(dirCluster uint32, name string) (dirEntry, bool, error) {
	var lfnParts [20]string // up to 20 fragments * 13 chars = 260
	lfnValid := false

	cluster := dirCluster
	buf := make([]byte, v.clusterSize)
	for {
		if err := v.readCluster(cluster, buf); err != nil {
			return dirEntry{}, false, err
		}

		for off := 0; off+dirEntrySize <= len(buf); off += dirEntrySize {
			raw := buf[off : off+dirEntrySize]
			if raw[0] == 0x00 {
				return dirEntry{}, false, nil // end of directory
			}
			if raw[0] == 0xE5 {
				lfnValid = false
				continue // deleted entry
			}

			attr := raw[11]
			if attr == attrLongName {
				var l lfnDirEntry
				if err := restruct.Unpack(raw, binary.LittleEndian, &l); err != nil {
					lfnValid = false
					continue
				}
				seq := int(l.Ord&0x1F) - 1
				if seq < 0 || seq >= len(lfnParts) {
					lfnValid = false
					continue
				}
				lfnParts[seq] = decodeLFNFragment(l)
				if l.Ord&0x40 != 0 {
					lfnValid = true
				}
				continue
			}

			if attr&attrVolumeID != 0 {
				lfnValid = false
				continue
			}

			var s shortDirEntry
			if err := restruct.Unpack(raw, binary.LittleEndian, &s); err != nil {
				lfnValid = false
				continue
			}

			entryName := ""
			if lfnValid && lfnParts[0] != "" {
				var sb strings.Builder
				for _, p := range lfnParts {
					sb.WriteString(p)
				}
				entryName = strings.TrimRight(sb.String(), "\x00")
			} else {
				entryName = parseShortName(s.Name)
			}
			lfnValid = false
			for i := range lfnParts {
				lfnParts[i] = ""
			}

			if nameMatch(entryName, name) {
				return dirEntry{
					Name:    entryName,
					Attr:    s.Attr,
					Cluster: uint32(s.ClusterHi)<<16 | uint32(s.ClusterLo),
					Size:    s.FileSize,
				}, true, nil
			}
		}

		next, ok, err := v.nextCluster(cluster)
		if err != nil {
			return dirEntry{}, false, err
		}
		if !ok {
			return dirEntry{}, false, nil
		}
		cluster = next
	}
}

// decodeLFNFragment extracts the low byte of each UCS-2 code unit across
// the fragment's three name runs, matching the original's ASCII-subset LFN
// extraction.
func decodeLFNFragment(l lfnDirEntry) string {
	var b strings.Builder
	units := make([]uint16, 0, 13)
	units = append(units, l.Name1[:]...)
	units = append(units, l.Name2[:]...)
	units = append(units, l.Name3[:]...)
	for _, u := range units {
		if u == 0x0000 || u == 0xFFFF {
			break
		}
		b.WriteByte(byte(u))
	}
	return b.String()
}

// parseShortName reconstructs an 8.3 filename (with a dot separating the
// base and extension, trimming padding spaces) from the raw 11-byte field.
func parseShortName(raw [11]byte) string {
	base := strings.TrimRight(string(raw[0:8]), " ")
	ext := strings.TrimRight(string(raw[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func nameMatch(a, b string) bool {
	return strings.EqualFold(a, b)
}
