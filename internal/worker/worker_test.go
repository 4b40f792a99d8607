package worker

import (
	"testing"
	"time"

	"nhanhsync/internal/config"
	"nhanhsync/internal/logger"
)

func TestStopMakesStartReturn(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers: "localhost:9092",
		EventsTopic:  "store-events",
	}
	w := New(cfg, logger.New("error"), nil)

	returned := make(chan struct{})
	go func() {
		w.Start()
		close(returned)
	}()

	w.Stop()

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
