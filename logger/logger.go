package logger

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// logEntry is a single formatted log message together with the level it was
// written at, queued for the backend goroutine to fan out to its writers.
type logEntry struct {
	log   []byte
	level Level
}

// Logger is a subsystem logger backed by a Backend. All messages are tagged
// with the subsystem and filtered by the logger's level before being handed
// to the backend.
type Logger struct {
	lvl       Level // specified as atomic, must stay first for alignment
	tag       string
	b         *Backend
	writeChan chan<- logEntry
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32((*uint32)(&l.lvl)))
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(logLevel Level) {
	atomic.StoreUint32((*uint32)(&l.lvl), uint32(logLevel))
}

// Backend returns the backend this logger writes to.
func (l *Logger) Backend() *Backend {
	return l.b
}

// Tracef formats message according to format specifier and writes to
// to log with LevelTrace.
func (l *Logger) Tracef(format string, params ...interface{}) {
	l.writef(LevelTrace, format, params...)
}

// Debugf formats message according to format specifier and writes to
// log with LevelDebug.
func (l *Logger) Debugf(format string, params ...interface{}) {
	l.writef(LevelDebug, format, params...)
}

// Infof formats message according to format specifier and writes to
// log with LevelInfo.
func (l *Logger) Infof(format string, params ...interface{}) {
	l.writef(LevelInfo, format, params...)
}

// Warnf formats message according to format specifier and writes to
// to log with LevelWarn.
func (l *Logger) Warnf(format string, params ...interface{}) {
	l.writef(LevelWarn, format, params...)
}

// Errorf formats message according to format specifier and writes to
// to log with LevelError.
func (l *Logger) Errorf(format string, params ...interface{}) {
	l.writef(LevelError, format, params...)
}

// Criticalf formats message according to format specifier and writes to
// log with LevelCritical.
func (l *Logger) Criticalf(format string, params ...interface{}) {
	l.writef(LevelCritical, format, params...)
}

// Trace formats message using the default formats for its operands
// and writes to log with LevelTrace.
func (l *Logger) Trace(v ...interface{}) {
	l.write(LevelTrace, v...)
}

// Debug formats message using the default formats for its operands
// and writes to log with LevelDebug.
func (l *Logger) Debug(v ...interface{}) {
	l.write(LevelDebug, v...)
}

// Info formats message using the default formats for its operands
// and writes to log with LevelInfo.
func (l *Logger) Info(v ...interface{}) {
	l.write(LevelInfo, v...)
}

// Warn formats message using the default formats for its operands
// and writes to log with LevelWarn.
func (l *Logger) Warn(v ...interface{}) {
	l.write(LevelWarn, v...)
}

// Error formats message using the default formats for its operands
// and writes to log with LevelError.
func (l *Logger) Error(v ...interface{}) {
	l.write(LevelError, v...)
}

// Critical formats message using the default formats for its operands
// and writes to log with LevelCritical.
func (l *Logger) Critical(v ...interface{}) {
	l.write(LevelCritical, v...)
}

func (l *Logger) writef(logLevel Level, format string, params ...interface{}) {
	if l.Level() > logLevel {
		return
	}
	l.print(logLevel, fmt.Sprintf(format, params...))
}

func (l *Logger) write(logLevel Level, v ...interface{}) {
	if l.Level() > logLevel {
		return
	}
	l.print(logLevel, fmt.Sprint(v...))
}

func (l *Logger) print(logLevel Level, msg string) {
	if !l.b.IsRunning() {
		// Writing to writeChan while the backend is not running would
		// block forever, and losing early messages entirely makes
		// startup failures undebuggable.
		fmt.Fprintf(os.Stderr, "%s\n", msg)
		return
	}

	t := time.Now()

	var file string
	var line int
	if l.b.flag&(LogFlagShortFile|LogFlagLongFile) != 0 {
		var ok bool
		_, file, line, ok = runtime.Caller(calldepth)
		if !ok {
			file = "???"
			line = 0
		} else if l.b.flag&LogFlagShortFile != 0 {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if os.IsPathSeparator(file[i]) {
					short = file[i+1:]
					break
				}
			}
			file = short
		}
	}

	buf := make([]byte, 0, normalLogSize+len(msg))
	buf = append(buf, t.Format("2006-01-02 15:04:05.000")...)
	buf = append(buf, " ["...)
	buf = append(buf, logLevel.String()...)
	buf = append(buf, "] "...)
	buf = append(buf, l.tag...)
	if file != "" {
		buf = append(buf, ' ')
		buf = append(buf, file...)
		buf = append(buf, ':')
		buf = appendDecimal(buf, line)
	}
	buf = append(buf, ": "...)
	buf = append(buf, msg...)
	if !strings.HasSuffix(msg, "\n") {
		buf = append(buf, '\n')
	}

	l.writeChan <- logEntry{log: buf, level: logLevel}
}

const (
	normalLogSize = 64

	// calldepth is the call depth of the callsite function relative to the
	// caller of the subsystem logger.
	calldepth = 4
)

// appendDecimal appends the decimal representation of n to buf.
func appendDecimal(buf []byte, n int) []byte {
	if n < 0 {
		buf = append(buf, '-')
		n = -n
	}
	var tmp [20]byte
	i := len(tmp)
	for n >= 10 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	i--
	tmp[i] = byte('0' + n)
	return append(buf, tmp[i:]...)
}
