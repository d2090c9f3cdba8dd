package gdal

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// runner abstracts child process execution so the adapter is testable
// without the GDAL binaries installed.
type runner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) (commandResult, error)
}

type execRunner struct{}

// Run executes one command, streaming stdout and stderr line-by-line to
// onLine as they arrive. Full output is still captured for parsing and for
// error reporting.
func (execRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return commandResult{ExitCode: -1}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return commandResult{ExitCode: -1}, err
	}

	if err := cmd.Start(); err != nil {
		return commandResult{ExitCode: -1}, err
	}

	var (
		wg     sync.WaitGroup
		outBuf strings.Builder
		errBuf strings.Builder
	)

	stream := func(r *bufio.Scanner, buf *strings.Builder) {
		defer wg.Done()
		// GDAL emits progress dots without newlines; split on both so the
		// parser sees markers before the line completes.
		r.Split(scanLinesAndDots)
		for r.Scan() {
			line := r.Text()
			buf.WriteString(line)
			buf.WriteByte('\n')
			if onLine != nil {
				onLine(line)
			}
		}
	}

	wg.Add(2)
	go stream(bufio.NewScanner(stdout), &outBuf)
	go stream(bufio.NewScanner(stderr), &errBuf)
	wg.Wait()

	waitErr := cmd.Wait()

	result := commandResult{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		ExitCode: 0,
	}
	if waitErr != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, waitErr
	}

	return result, nil
}

// scanLinesAndDots is a bufio.SplitFunc that yields on newlines like
// bufio.ScanLines, but also flushes chunks ending in "..." so GDAL's
// unterminated progress markers reach the parser promptly.
func scanLinesAndDots(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			return i + 1, dropCR(data[:i]), nil
		}
		if data[i] == '.' && i >= 2 && data[i-1] == '.' && data[i-2] == '.' {
			return i + 1, data[:i+1], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), dropCR(data), nil
	}
	return 0, nil, nil
}

func dropCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[:len(data)-1]
	}
	return data
}
