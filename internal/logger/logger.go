// Public domain.

// Package logger sets up logrus for console use.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Formatter writes one line per entry: time, level, message, then fields
// sorted by key.  The "worker" field, if present, is shown as a prefix.
type Formatter struct {
	TimestampFormat string
	DisableColors   bool
}

var levelColor = map[logrus.Level]*color.Color{
	logrus.PanicLevel: color.New(color.FgRed, color.Bold),
	logrus.FatalLevel: color.New(color.FgRed, color.Bold),
	logrus.ErrorLevel: color.New(color.FgRed, color.Bold),
	logrus.WarnLevel:  color.New(color.FgYellow, color.Bold),
	logrus.InfoLevel:  color.New(color.FgCyan),
	logrus.DebugLevel: color.New(color.FgWhite, color.Faint),
	logrus.TraceLevel: color.New(color.FgWhite, color.Faint),
}

var (
	workerColor = color.New(color.FgBlue)
	fieldColor  = color.New(color.FgWhite, color.Faint)
)

// Format implements logrus.Formatter.
func (f *Formatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	level := fmt.Sprintf("%-5.5s", levelText(e.Level))
	if !f.DisableColors {
		level = levelColor[e.Level].Sprint(level)
	}
	fmt.Fprintf(&b, "[%s] %s ", e.Time.Format(f.TimestampFormat), level)
	if w, ok := e.Data["worker"]; ok {
		p := fmt.Sprintf("[w%v] ", w)
		if !f.DisableColors {
			p = workerColor.Sprint(p)
		}
		b.WriteString(p)
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != "worker" {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		var fb bytes.Buffer
		for _, k := range keys {
			fmt.Fprintf(&fb, " %s=%v", k, e.Data[k])
		}
		if f.DisableColors {
			b.Write(fb.Bytes())
		} else {
			b.WriteString(fieldColor.Sprint(fb.String()))
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelText(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	return l.String()
}

// New creates a logger writing to w at the named level.  An unknown level
// name gives info level and an error.
func New(w io.Writer, level string, colors bool) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&Formatter{
		TimestampFormat: "15:04:05",
		DisableColors:   !colors,
	})
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
		return log, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lv)
	return log, nil
}

// Discard returns a logger that writes nothing, for tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
