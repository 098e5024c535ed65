package streamclient

import (
	"os"
	"testing"

	"github.com/jordanskizash/mindbase/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}
