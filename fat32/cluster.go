// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fat32

import "github.com/milkmanabi/mimiboot/mimierr"

// clusterToSector converts a cluster number to its starting LBA, mirroring
// cluster_to_sector: cluster numbering starts at 2.
func (v *Volume) clusterToSector(cluster uint32) uint32 {
	return v.dataStart + (cluster-2)*uint32(v.secPerClus)
}

// isEOC reports whether a FAT entry value marks the end of a cluster chain.
func isEOC(entry uint32) bool {
	return entry&fatEntryMask >= fatEntriesEOC
}

// nextCluster looks up the FAT entry for cluster, returning the next
// cluster in the chain or 0 with ok=false at end-of-chain, mirroring
// fat_next_cluster.
func (v *Volume) nextCluster(cluster uint32) (uint32, bool, error) {
	fatOffset := cluster * 4
	fatSector := v.fatStart + fatOffset/uint32(v.bytesPerSec)
	entOffset := fatOffset % uint32(v.bytesPerSec)

	sector := make([]byte, sectorSize)
	if err := v.dev.ReadBlocks(fatSector, 1, sector); err != nil {
		return 0, false, mimierr.New(mimierr.KindFilesystem, err, "read FAT sector")
	}

	entry := leU32(sector[entOffset:]) & fatEntryMask
	if isEOC(entry) {
		return 0, false, nil
	}
	return entry, true, nil
}

// readCluster reads the full contents of cluster into buf, which must be
// exactly v.clusterSize bytes.
func (v *Volume) readCluster(cluster uint32, buf []byte) error {
	sector := v.clusterToSector(cluster)
	return v.dev.ReadBlocks(sector, int(v.secPerClus), buf)
}
