/*
 * mule - Command-line front end for the M-Code interpreter
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/mule/mcode/config"
	"github.com/rcornwell/mule/mcode/loader"
	"github.com/rcornwell/mule/mcode/runtime"
	"github.com/rcornwell/mule/mcode/terminal"
	logger "github.com/rcornwell/mule/util/logger"
)

// includePaths accumulates every -i given on the command line, in order,
// the way the search path's repeatable option is supposed to work.
type includePaths struct {
	paths *[]string
}

func (p includePaths) Set(value string, _ getopt.Option) error {
	*p.paths = append(*p.paths, value)
	return nil
}

func (p includePaths) String() string {
	if p.paths == nil {
		return ""
	}
	return strings.Join(*p.paths, ":")
}

const version = "1.0"

func main() {
	os.Exit(run())
}

func run() int {
	var dashI []string
	optHelp := getopt.BoolLong("help", 'h', "Help")
	optVersion := getopt.BoolLong("version", 'V', "Print version")
	optVerbose := getopt.BoolLong("verbose", 'v', "Verbose logging")
	optTrace := getopt.BoolLong("trace", 't', "Instruction trace")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	getopt.FlagLong(includePaths{&dashI}, "include", 'i', "Object file include path (repeatable)")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		return 0
	}
	if *optVersion {
		fmt.Println("mule M-Code interpreter", version)
		return 0
	}

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: mule [-htvV] [-i path ...] file.obj")
		return 2
	}

	var logFile *os.File
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "mule: ", err)
			return 2
		}
		logFile = f
		defer f.Close()
	}

	debug := *optVerbose || *optTrace
	programLevel := new(slog.LevelVar)
	if debug {
		programLevel.Set(slog.LevelDebug)
	} else {
		programLevel.Set(slog.LevelInfo)
	}
	log := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, &debug))
	slog.SetDefault(log)

	mulercDirs, err := config.ReadMulerc(".mulerc")
	if err != nil {
		log.Warn(".mulerc could not be read", "error", err)
	}
	// Explicit -i paths take precedence over .mulerc defaults.
	searchPath := loader.BuildIncludePaths(append(dashI, mulercDirs...), os.Getenv("MULE_PATH"))

	term := terminal.NewStdio()
	rt := runtime.New(term, searchPath, log)
	rt.Machine.Trace = *optTrace

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan int, 1)
	go func() {
		done <- rt.Run(args[0])
	}()

	var status int
	select {
	case status = <-done:
	case <-sigChan:
		log.Info("interrupted")
		status = 130
	}

	rt.Shutdown(term)
	return status
}
