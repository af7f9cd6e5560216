package output

import (
	"fmt"

	"github.com/sofmeright/imagefreight/src/artifact"
)

// MaxSyncRows caps the keys listed per group.
const MaxSyncRows = 20

// SectionSync renders the result of a bucket mirror run.
func SectionSync(sec *Section, res *artifact.SyncResult, dryRun, color bool) {
	upload, remove := "uploaded", "deleted"
	if dryRun {
		upload, remove = "would upload", "would delete"
	}

	syncGroup(sec, upload, "+", res.Uploaded, color)
	syncGroup(sec, remove, "-", res.Deleted, color)
	sec.Row("%s", Dimmed(fmt.Sprintf("%d unchanged", len(res.Unchanged)), color))
}

func syncGroup(sec *Section, header, mark string, keys []string, color bool) {
	if len(keys) == 0 {
		return
	}
	sec.Row("%s", bold(color, fmt.Sprintf("%s (%d)", header, len(keys))))
	show := len(keys)
	if show > MaxSyncRows {
		show = MaxSyncRows
	}
	for _, k := range keys[:show] {
		sec.Row("  %s %s", mark, k)
	}
	if rest := len(keys) - show; rest > 0 {
		sec.Row("  %s", Dimmed(fmt.Sprintf("… and %d more", rest), color))
	}
}
