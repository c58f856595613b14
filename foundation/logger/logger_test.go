package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/skuchain/foundation/logger"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_New(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")

	t.Log("Given the need to write structured logs.")
	{
		log, err := logger.New("NODE", path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a logger: %v", failed, err)
		}
		log.Infow("startup", "status", "testing")
		log.Sync()

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read the log: %v", failed, err)
		}

		if !strings.Contains(string(content), `"service":"NODE"`) || !strings.Contains(string(content), `"status":"testing"`) {
			t.Fatalf("\t%s\tShould write json with the service field: %s", failed, content)
		}
		t.Logf("\t%s\tShould write json with the service field.", success)
	}
}
