package main

import (
	"log"
	"os"
	"time"
)

// errorLogger appends a timestamped, banner-delimited record to
// gscript-error.log for every pipeline failure the CLI surfaces — the
// Go translation of original_source/include/gs/error_logger.hpp's
// ErrorLogger::logError, which exists "to help AI tools and developers
// diagnose crashes". Unlike its C++ ancestor this isn't a singleton:
// the CLI opens one file per process and closes it on exit.
type errorLogger struct {
	file *os.File
	log  *log.Logger
}

func newErrorLogger(path string) (*errorLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &errorLogger{file: f, log: log.New(f, "", 0)}, nil
}

func (l *errorLogger) Close() error { return l.file.Close() }

// logError writes one banner-delimited record naming the command and
// source path that failed, mirroring logError's Message/Function/File
// fields.
func (l *errorLogger) logError(command, path string, err error) {
	l.log.Printf(
		"\n%s\nERROR LOG - %s\n%s\nMessage: %v\nCommand: %s\nFile: %s\n",
		banner, time.Now().Format("2006-01-02 15:04:05.000"), banner, err, command, path,
	)
}

const banner = "================================================================================"
