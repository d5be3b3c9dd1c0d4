package obs

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Log levels in increasing severity.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var (
	loggerOnce sync.Once
	logger     *log.Logger

	levelMu  sync.RWMutex
	minLevel = LevelInfo
)

// Logger returns the shared line logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// SetLogLevel filters out entries below the given level. Unknown values fall
// back to info.
func SetLogLevel(level string) {
	level = strings.ToLower(strings.TrimSpace(level))
	if _, ok := levelRank[level]; !ok {
		level = LevelInfo
	}
	levelMu.Lock()
	minLevel = level
	levelMu.Unlock()
}

func enabled(level string) bool {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return levelRank[level] >= levelRank[minLevel]
}

// Log emits one structured JSON line with the shared timestamp and level
// fields merged in.
func Log(level, msg string, fields map[string]any) {
	if !enabled(level) {
		return
	}
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}

// Info logs at info level.
func Info(msg string, fields map[string]any) { Log(LevelInfo, msg, fields) }

// Warn logs at warn level.
func Warn(msg string, fields map[string]any) { Log(LevelWarn, msg, fields) }

// Error logs at error level.
func Error(msg string, fields map[string]any) { Log(LevelError, msg, fields) }
