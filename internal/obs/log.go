package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

const marshalFailureLine = `{"ts":"error","level":"error","msg":"log marshal failed"}`

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide logger. Output goes to stdout as one JSON
// object per line; callers pass pre-structured entries.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest marshals entry and emits it as a single log line.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(marshalFailureLine)
		return
	}
	Logger().Println(string(data))
}
