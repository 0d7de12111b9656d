// Package logger is a package-level leveled logger backed by logrus.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

var displayLevel string = "info"
var level string = displayLevel

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Fields is a set of structured log fields.
type Fields = logrus.Fields

// SetDisplayLevel sets the minimum level that is written.
func SetDisplayLevel(lvl string) {
	parsed, err := logrus.ParseLevel(lvl)
	if err != nil {
		Errorf("Unknown log level %q, keeping %v", lvl, displayLevel)
		return
	}
	displayLevel = lvl
	log.SetLevel(parsed)
	Debugf("Set logger display level to %v", displayLevel)
}

// SetLevel sets the level Log and Logf write at.
func SetLevel(lvl string) {
	if lvl == "" {
		level = "debug"
	} else {
		level = lvl
	}
	Debugf("Set logger level to %v", level)
}

// SetJSON switches between JSON and text output.
func SetJSON(json bool) {
	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return log.WithFields(fields)
}

func Log(args ...interface{}) {
	if level == "error" {
		Error(args...)
	} else if level == "debug" {
		Debug(args...)
	} else {
		Info(args...)
	}
}

func Debug(args ...interface{}) {
	log.Debug(args...)
}

func Info(args ...interface{}) {
	log.Info(args...)
}

func Warn(args ...interface{}) {
	log.Warn(args...)
}

func Error(args ...interface{}) {
	log.Error(args...)
}

func Logf(template string, args ...interface{}) {
	if level == "error" {
		Errorf(template, args...)
	} else if level == "debug" {
		Debugf(template, args...)
	} else {
		Infof(template, args...)
	}
}

func Debugf(template string, args ...interface{}) {
	log.Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	log.Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	log.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	log.Errorf(template, args...)
}
