package logger

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Fields carries structured context for a log line.
type Fields map[string]any

const service = "checkout"

func Info(message string, fields Fields) {
	logJSON("info", message, fields)
}

func Warn(message string, fields Fields) {
	logJSON("warn", message, fields)
}

func Error(message string, fields Fields) {
	logJSON("error", message, fields)
}

func Fatal(message string, fields Fields) {
	logJSON("fatal", message, fields)
	os.Exit(1)
}

func logJSON(level string, message string, fields Fields) {
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   message,
		"service":   service,
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("{\"service\":%q,\"level\":\"error\",\"message\":\"log marshal failed\",\"error\":%q}", service, err.Error())
		return
	}
	log.Println(string(data))
}
