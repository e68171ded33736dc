package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/rci/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode tracks if we're serving MCP over stdio (set by main)
var MCPMode = false

// debugOutput is the writer for debug output (nil means no output)
var debugOutput io.Writer

// debugFile holds the open file handle if debug output goes to a file
var debugFile *os.File

var debugMutex sync.Mutex

// SetMCPMode enables MCP mode, which suppresses debug output unless it goes
// to a log file opened by InitDebugLogFile
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile initializes debug logging to a timestamped file in the
// temp directory and returns its path. Call CloseDebugLog when done.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "rci-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled returns true if debug mode is enabled. In MCP mode only a
// debug log file may receive output.
func IsDebugEnabled() bool {
	if MCPMode && !logFileOpen() {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func logFileOpen() bool {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugFile != nil
}

func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Log provides structured debug logging with component names
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogCatalog logs rule catalog loading and index construction
func LogCatalog(format string, args ...interface{}) {
	Log("CATALOG", format, args...)
}

// LogQuery logs candidate queries
func LogQuery(format string, args ...interface{}) {
	Log("QUERY", format, args...)
}

// LogWatch logs catalog reloads
func LogWatch(format string, args ...interface{}) {
	Log("WATCH", format, args...)
}

// LogMCP logs MCP tool calls
func LogMCP(format string, args ...interface{}) {
	Log("MCP", format, args...)
}

// Fatal writes a fatal message to the debug log and returns it as an error.
// Callers decide whether to exit. In MCP mode it is only written to a log file.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if !MCPMode || logFileOpen() {
		if w := getDebugWriter(); w != nil {
			fmt.Fprintf(w, "[FATAL] %s", msg)
		}
	}
	return fmt.Errorf("fatal error: %s", msg)
}
