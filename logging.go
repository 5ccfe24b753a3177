package main

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// lineFormatter prints "user-netns: message key=value ..." on one line.
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("user-netns: ")
	if e.Level > logrus.WarnLevel {
		// info and chattier levels get tagged so they stand apart from diagnostics
		fmt.Fprintf(&b, "[%s] ", e.Level)
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func newLogger(out io.Writer) *logrus.Logger {
	return &logrus.Logger{
		Out:       out,
		Formatter: lineFormatter{},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.WarnLevel,
	}
}
