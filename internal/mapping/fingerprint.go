package mapping

import "os"

// Fingerprint captures the observable state of both mapping documents.
// The hook compares fingerprints between prompts to decide whether its
// cached merged config is still valid, instead of re-parsing every time.
type Fingerprint struct {
	base  fileStamp
	local fileStamp
}

type fileStamp struct {
	exists  bool
	modTime int64
	size    int64
}

// Fingerprint stats both documents. A missing file is part of the
// fingerprint: creating config.local.json must invalidate the cache.
func (s *Store) Fingerprint() Fingerprint {
	return Fingerprint{
		base:  stamp(s.basePath),
		local: stamp(s.localPath),
	}
}

func stamp(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{
		exists:  true,
		modTime: info.ModTime().UnixNano(),
		size:    info.Size(),
	}
}
