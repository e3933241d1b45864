/*
 * HPDisk - Main program.
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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/sync/errgroup"

	reader "github.com/rcornwell/hpdisk/command/reader"
	config "github.com/rcornwell/hpdisk/config/configparser"
	"github.com/rcornwell/hpdisk/emu/bus"
	core "github.com/rcornwell/hpdisk/emu/core"
	"github.com/rcornwell/hpdisk/hostlink"
	"github.com/rcornwell/hpdisk/util/debug"
	"github.com/rcornwell/hpdisk/util/image"
	logger "github.com/rcornwell/hpdisk/util/logger"

	_ "github.com/rcornwell/hpdisk/config/debugconfig"
	_ "github.com/rcornwell/hpdisk/config/driveinfo"
	_ "github.com/rcornwell/hpdisk/emu/amigo"
	_ "github.com/rcornwell/hpdisk/emu/ss80"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "hpdisk.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optListen := getopt.StringLong("listen", 'p', ":4040", "Host link address, empty disables")
	optTimeout := getopt.IntLong("timeout", 't', 1000, "Bus addressing timeout in milliseconds")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile io.Writer
	if *optLogFile != "" {
		file, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to create log file: "+err.Error())
			os.Exit(1)
		}
		defer file.Close()
		logFile = file
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(Logger)

	if err := run(*optConfig, *optListen, time.Duration(*optTimeout)*time.Millisecond); err != nil {
		Logger.Error(err.Error())
		_ = debug.Close()
		os.Exit(1)
	}
	_ = debug.Close()
	Logger.Info("HPDisk stopped.")
}

// Configure and run emulator until console quits.
func run(configFile, listen string, timeout time.Duration) error {
	slog.Info("HPDisk Started")

	if _, err := os.Stat(configFile); err != nil {
		return fmt.Errorf("configuration file %s can't be found: %w", configFile, err)
	}

	buf := bus.NewBuffer(0, timeout)
	defer buf.Close()
	emu := core.New(buf, image.FileStore{Dir: filepath.Dir(configFile)})
	if err := config.LoadConfigFile(emu, configFile); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// Start main emulator.
	g.Go(func() error {
		return emu.Start(ctx)
	})

	// Start host link.
	if listen != "" {
		link, err := hostlink.Listen(listen, buf.Host())
		if err != nil {
			cancel()
			return errors.Join(err, g.Wait())
		}
		g.Go(func() error {
			return link.Serve(ctx)
		})
	}

	msg := make(chan struct{})
	go func() {
		reader.ConsoleReader(emu)
		close(msg)
	}()

	// Wait on console quit or failure.
	select {
	case <-msg:
	case <-ctx.Done():
	}

	emu.Stop()
	cancel()
	return g.Wait()
}
