/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger is something that can print, using Logf, a format string
type Logger interface {
	Logf(format string, v ...any)
}

// subsystemLogger is a logger that handles only one file out of all that are opened by its logger
type subsystemLogger struct {
	filename string
	logger   *GatewayLogger
}

// Logf for a subsystem logger is just a wrap for the Logf of its internal logger, giving its only filename
func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Logf(s.filename, format, v...)
}

// logEntry is an helper struct that can be used to send a couple (filename, formatted string) onto the log channel
type logEntry struct {
	filename  string
	formatted string
}

// GatewayLogger writes to one log file per subsystem (presence, fanout, gateway, ...) from one single struct.
// It's safe to share amongst goroutines since it has an internal lock
type GatewayLogger struct {
	directory string // Directory holding the log files

	fileMapper map[string]*os.File    // Maps a filename to an OS file (used only to be able to deallocate it later)
	logMapper  map[string]*log.Logger // Maps a filename to the corresponding logger

	lock           sync.RWMutex
	clock          *SequenceClock                    // sequence clock, used to order lines across files
	currentLogFunc func(*log.Logger, string, ...any) // Current logging function (alternating between defaultLogf and nilLogf)

	inbox chan logEntry // Log channel, formatted strings are sent here instead of directly writing to files
	done  chan struct{} // Closed when Run returns, after which Logf drops entries
}

// NewGatewayLogger Creates and returns a GatewayLogger writing inside directory.
// When successful, error is nil
func NewGatewayLogger(directory string, logging bool) (*GatewayLogger, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, err
	}
	g := &GatewayLogger{
		directory:      directory,
		fileMapper:     make(map[string]*os.File),
		logMapper:      make(map[string]*log.Logger),
		currentLogFunc: nilLogf,
		inbox:          make(chan logEntry, 600),
		done:           make(chan struct{}),
		clock:          NewSequenceClock(),
	}

	if logging {
		g.currentLogFunc = defaultLogf
	}

	return g, nil
}

// RegisterSubsystem registers a new subsystem, returning a Logger that can write to the file <filename>.log.
// If successful, error is nil
func (g *GatewayLogger) RegisterSubsystem(filename string) (Logger, error) {
	file, err := os.OpenFile(filepath.Join(g.directory, filename+".log"), os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}

	g.lock.Lock()
	defer g.lock.Unlock()
	g.logMapper[filename] = log.New(file, fmt.Sprintf("[%s]: ", filename), log.Ldate|log.Ltime|log.Lmicroseconds)
	g.fileMapper[filename] = file
	return &subsystemLogger{filename, g}, nil
}

// GetSubsystemLogger retrieves a subsystem logger, if previously registerd.
// If successful, error is nil
func (g *GatewayLogger) GetSubsystemLogger(filename string) (Logger, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	if _, ok := g.logMapper[filename]; !ok {
		return nil, fmt.Errorf("The subsystem was not registered")
	}
	return &subsystemLogger{filename, g}, nil
}

// EnableLogging enables the logging done by this logger
func (g *GatewayLogger) EnableLogging() {
	g.lock.Lock()
	g.currentLogFunc = defaultLogf
	g.lock.Unlock()
}

// DisableLogging disables the logging done by this logger
func (g *GatewayLogger) DisableLogging() {
	g.lock.Lock()
	g.currentLogFunc = nilLogf
	g.lock.Unlock()
}

// Logf formats a string using format and v, and appends it to a logging channel, alongside the file, filename, it will be written to.
// Entries logged after Run returned are dropped.
func (g *GatewayLogger) Logf(filename, format string, v ...any) {
	entry := logEntry{filename, fmt.Sprintf("{%d}. %s", g.clock.Next(), fmt.Sprintf(format, v...))}
	select {
	case g.inbox <- entry:
	case <-g.done:
	}
}

// Run waits either on the log channel or ctx.Done()
// When ctx.Done(), the caller has shut down: pending entries are flushed and resources deallocated
// When a message arrives on the log channel, we write it accordingly
func (g *GatewayLogger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(g.done)
			g.drain()
			g.CloseAll()
			return
		case msg := <-g.inbox:
			g.actualWrite(msg.filename, msg.formatted)
		}
	}
}

// drain writes whatever is still buffered in the inbox
func (g *GatewayLogger) drain() {
	for {
		select {
		case msg := <-g.inbox:
			g.actualWrite(msg.filename, msg.formatted)
		default:
			return
		}
	}
}

// actualWrite is the function that writes the string formatted in the file filename
// When successful, error is nil
func (g *GatewayLogger) actualWrite(filename, formatted string) error {
	g.lock.Lock()
	logFunc := g.currentLogFunc
	logger, ok := g.logMapper[filename]
	g.lock.Unlock()

	if !ok {
		return fmt.Errorf("Logger is not setup for this filename")
	}
	if logFunc != nil {
		logFunc(logger, formatted)
	}
	return nil
}

// CloseAll closes all the open files that the loggers are using
func (g *GatewayLogger) CloseAll() {
	g.lock.Lock()
	defer g.lock.Unlock()

	for _, file := range g.fileMapper {
		file.Sync()
		file.Close()
	}
	clear(g.fileMapper)
	clear(g.logMapper)
}

// defaultLogf is a log function that writes to a logger l
func defaultLogf(l *log.Logger, format string, a ...any) {
	l.Print(format)
}

// nilLogf is a log function that does nothing, which gets called when logging is disabled
func nilLogf(*log.Logger, string, ...any) {}
