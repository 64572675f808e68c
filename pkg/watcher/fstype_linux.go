//go:build linux

package watcher

import "golang.org/x/sys/unix"

// Filesystem magic numbers from statfs(2).
const (
	nfsSuperMagic  = 0x6969
	smbSuperMagic  = 0x517b
	smb2SuperMagic = 0xfe534d42
	cifsMagic      = 0xff534d42
	fuseSuperMagic = 0x65735546
	v9fsMagic      = 0x01021997
)

func statfsType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch int64(st.Type) {
	case nfsSuperMagic:
		return FSTypeNFS
	case smbSuperMagic, smb2SuperMagic, cifsMagic:
		return FSTypeSMB
	case fuseSuperMagic:
		// sshfs is FUSE; it cannot be told apart from statfs alone.
		return FSTypeFUSE
	case v9fsMagic:
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}
