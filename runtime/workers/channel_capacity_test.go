package workers

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_WarnsWhenChannelFillsUp(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Given a push queue filled to 80% and a quiet one
	full := make(chan int, 5)
	for i := 0; i < 4; i++ {
		full <- i
	}
	quiet := make(chan int, 5)
	worker := NewChannelCapacityWorker(log, []NamedChannel{
		{Name: "pushes", Channel: full},
		{Name: "idle", Channel: quiet},
		{Name: "bogus", Channel: 42},
	}, time.Minute)

	// When it samples
	worker.sample()

	// Then only the full one is reported at Warn
	out := buf.String()
	req.Contains(out, `level=WARN msg="Channel almost full" name=pushes length=4 capacity=5`)
	req.Contains(out, `level=DEBUG msg="Channel capacity" name=idle length=0 capacity=5`)
	req.Contains(out, `level=ERROR msg="Provided object is not a channel" name=bogus`)
}

func TestChannelCapacityWorker_StopsOnContextDone(t *testing.T) {
	req := require.New(t)
	worker := NewChannelCapacityWorker(slog.Default(), nil, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("worker did not stop")
	}
}
