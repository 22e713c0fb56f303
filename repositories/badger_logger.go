package repositories

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

var _ badger.Logger = (*badgerLogger)(nil)

// badgerLogger routes badger's printf-style logs to slog, tagged with the store name.
// Badger is chatty at Info, so its Info lines are demoted to Debug.
type badgerLogger struct {
	log *slog.Logger
}

func NewBadgerLogger(log *slog.Logger) badger.Logger {
	return &badgerLogger{log: log.With("component", "badger")}
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.log.Error(clean(format, args))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.log.Warn(clean(format, args))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.log.Debug(clean(format, args))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.log.Debug(clean(format, args))
}

// clean drops the trailing newline badger appends to most lines.
func clean(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
