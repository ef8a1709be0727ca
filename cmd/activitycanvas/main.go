/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"activitycanvas/internal/config"
	"activitycanvas/internal/crash"
	applog "activitycanvas/internal/log"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/telemetry"
	"activitycanvas/internal/textlayout"
	"activitycanvas/internal/ui"
	"activitycanvas/internal/version"
)

func usage() {
	fmt.Println("Activity Canvas")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  activitycanvas version|-v|--version              Show version")
	fmt.Println("  activitycanvas new <file> [width height]          Create a blank activity")
	fmt.Println("  activitycanvas add <file> <kind> <x> <y> [src]    Add text|rect|circle|line|image at x,y")
	fmt.Println("  activitycanvas background <file> <color>          Set the background color")
	fmt.Println("  activitycanvas export <file> <out.svg|out.pdf>    Download the scene as SVG or PDF")
	fmt.Println("  activitycanvas print <file>                       Render a PDF and open it for printing")
	fmt.Println("  activitycanvas import-svg <in.svg> <out.json>     Convert a legacy SVG activity")
	fmt.Println("  activitycanvas bundle export <file> <out.zip>     Pack an activity with its images")
	fmt.Println("  activitycanvas bundle import <in.zip> <file>      Unpack a bundle into a self-contained activity")
	fmt.Println("  activitycanvas store put <id> <name> <file>       Save an activity in the local store")
	fmt.Println("  activitycanvas store get <id> <file>              Write a stored activity to <file>")
	fmt.Println("  activitycanvas store list|delete <id>             List or delete stored activities")
	fmt.Println("  activitycanvas store search <text>                Find activities by name or text")
	fmt.Println("  activitycanvas store prune <id> <keep>            Keep only the newest revisions")
	fmt.Println("  activitycanvas remote login [subject]             Fetch a backend token into the keychain")
	fmt.Println("  activitycanvas remote list|search|get|put|delete  Same as store, against the backend")
	fmt.Println("  activitycanvas serve [addr]                       Serve the store over HTTP (default :8080)")
	fmt.Println("  activitycanvas recover                            List crash recovery snapshots")
	fmt.Println("  activitycanvas ui [file]                          Launch the editor (build with -tags fyne)")
}

func main() {
	cfg, token, cfgErr := config.Load()
	applog.Init(cfg.Logging.Options())
	defer crash.Recover(nil)
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", cfgErr))
	}
	telemetry.SetDefault(telemetry.New(telemetry.FromEnv()))
	loadFonts(cfg.Editor.FontDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	var err error
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Activity Canvas")
		fmt.Println(version.String())
		return
	case "new":
		err = cmdNew(cfg, args[2:])
	case "add":
		err = cmdAdd(ctx, cfg, args[2:])
	case "background":
		err = cmdBackground(ctx, cfg, args[2:])
	case "export":
		err = cmdExport(ctx, cfg, args[2:])
	case "print":
		err = cmdPrint(ctx, cfg, args[2:])
	case "import-svg":
		err = cmdImportSVG(args[2:])
	case "bundle":
		err = cmdBundle(ctx, cfg, args[2:])
	case "store":
		err = cmdStore(ctx, cfg, args[2:])
	case "remote":
		err = cmdRemote(ctx, cfg, token, args[2:])
	case "serve":
		err = cmdServe(ctx, cfg, args[2:])
	case "recover":
		err = cmdRecover()
	case "ui":
		var path string
		if len(args) >= 3 {
			path = args[2]
		}
		err = ui.Run(cfg, path)
	default:
		usage()
		os.Exit(2)
	}
	telemetry.Flush(ctx)
	_ = applog.Close()
	if err != nil {
		if ue, ok := err.(usageError); ok {
			fmt.Println(string(ue))
			usage()
			os.Exit(2)
		}
		l.Error("command failed", slog.String("cmd", args[1]), slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// usageError is printed together with the usage text.
type usageError string

func (e usageError) Error() string { return string(e) }

func loadFonts(dir string) {
	if dir == "" {
		return
	}
	lib := textlayout.NewFontLibrary()
	n, err := lib.LoadDir(dir)
	if err != nil {
		applog.WithComponent("cli").Warn("font dir not loaded", slog.String("dir", dir), slog.Any("err", err))
	}
	if n > 0 {
		scene.Fonts = textlayout.OTProvider{Lib: lib}
	}
}
