package repositories

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBadgerLogger_MapsLevels(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	logger := NewBadgerLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// When badger logs at every level
	logger.Errorf("compaction failed: %s\n", "disk full")
	logger.Warningf("value log %d is large\n", 3)
	logger.Infof("replaying memtable\n")
	logger.Debugf("noise\n")

	// Then errors and warnings surface, info and debug stay below the Info threshold
	out := buf.String()
	req.Contains(out, `level=ERROR msg="compaction failed: disk full" component=badger`)
	req.Contains(out, `level=WARN msg="value log 3 is large" component=badger`)
	req.NotContains(out, "replaying memtable")
	req.NotContains(out, "noise")
}
