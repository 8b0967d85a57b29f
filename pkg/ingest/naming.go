package ingest

import (
	"path/filepath"
	"strings"
	"time"
)

// StoredName derives the on-disk filename for an upload:
// {YYYYMMDD_HHMMSS}_{original base}{original ext}.
//
// The prefix is second-granular, so two same-named uploads within one second
// collide. Callers must not rely on this for uniqueness at high upload rates.
func StoredName(original string, now time.Time) string {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return now.Format("20060102_150405") + "_" + name + ext
}
