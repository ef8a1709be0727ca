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
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"activitycanvas/internal/backend"
	"activitycanvas/internal/bundle"
	"activitycanvas/internal/commands"
	"activitycanvas/internal/config"
	"activitycanvas/internal/crash"
	"activitycanvas/internal/engine"
	"activitycanvas/internal/export"
	"activitycanvas/internal/imageload"
	"activitycanvas/internal/scene"
	"activitycanvas/internal/session"
	"activitycanvas/internal/snapshot"
	"activitycanvas/internal/store"
	"activitycanvas/internal/telemetry"
)

func newLoader(cfg config.AppConfig) *imageload.Loader {
	return imageload.New(imageload.Options{
		BaseURL:  cfg.Images.BaseURL,
		Timeout:  cfg.Images.Timeout(),
		MaxBytes: cfg.Images.MaxBytes,
	})
}

// openActivity starts a headless session on the activity at path. Files that
// do not parse are refused so a later save cannot replace them.
func openActivity(ctx context.Context, cfg config.AppConfig, path string) (*session.Session, error) {
	data, sc, err := snapshot.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("activity %s not found", path)
	}
	// Headless edits keep the size stored in the file.
	w, h := sc.Width, sc.Height
	if w <= 0 || h <= 0 {
		w, h = cfg.Editor.Width, cfg.Editor.Height
	}
	sess := session.New(session.Options{
		Surface:     &engine.Headless{},
		Snapshot:    data,
		Width:       w,
		Height:      h,
		Background:  cfg.Editor.Background,
		ImageLoader: newLoader(cfg),
		Style:       cfg.Editor.Style(),
	})
	if err := sess.Init(ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return sess, nil
}

func saveActivity(sess *session.Session, path string) error {
	snap, err := sess.Snapshot()
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(path, snap); err != nil {
		return err
	}
	telemetry.Event(telemetry.DocumentSaved, map[string]any{"bytes": len(snap)})
	return nil
}

func parseFloat(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, usageError(fmt.Sprintf("%s must be a number, got %q", name, v))
	}
	return f, nil
}

func cmdNew(cfg config.AppConfig, args []string) error {
	if len(args) < 1 {
		return usageError("new requires <file>")
	}
	w, h := cfg.Editor.Width, cfg.Editor.Height
	if len(args) >= 3 {
		var err error
		if w, err = parseFloat("width", args[1]); err != nil {
			return err
		}
		if h, err = parseFloat("height", args[2]); err != nil {
			return err
		}
	}
	if _, err := os.Stat(args[0]); err == nil {
		return fmt.Errorf("%s already exists", args[0])
	}
	snap, err := snapshot.Marshal(scene.New(w, h, cfg.Editor.Background))
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(args[0], snap); err != nil {
		return err
	}
	fmt.Println("Created activity", args[0])
	return nil
}

func cmdAdd(ctx context.Context, cfg config.AppConfig, args []string) error {
	if len(args) < 4 {
		return usageError("add requires <file> <kind> <x> <y> [src]")
	}
	x, err := parseFloat("x", args[2])
	if err != nil {
		return err
	}
	y, err := parseFloat("y", args[3])
	if err != nil {
		return err
	}
	sess, err := openActivity(ctx, cfg, args[0])
	if err != nil {
		return err
	}
	defer sess.Dispose()
	defer crash.Recover(sess)
	data := map[string]string{session.DropKeyShape: args[1]}
	if len(args) >= 5 {
		data[session.DropKeySrc] = args[4]
	}
	o, err := sess.HandleDrop(ctx, session.DropEvent{Data: data, X: x, Y: y})
	if err != nil {
		if strings.EqualFold(args[1], string(commands.ShapeImage)) {
			telemetry.Event(telemetry.ImageFailed, nil)
		}
		return err
	}
	if err := saveActivity(sess, args[0]); err != nil {
		return err
	}
	fmt.Printf("Added %s %s\n", o.Kind(), o.Base().ID)
	return nil
}

func cmdBackground(ctx context.Context, cfg config.AppConfig, args []string) error {
	if len(args) < 2 {
		return usageError("background requires <file> <color>")
	}
	sess, err := openActivity(ctx, cfg, args[0])
	if err != nil {
		return err
	}
	defer sess.Dispose()
	if err := commands.SetBackground(sess.Engine(), args[1]); err != nil {
		return err
	}
	return saveActivity(sess, args[0])
}

func cmdExport(ctx context.Context, cfg config.AppConfig, args []string) error {
	if len(args) < 2 {
		return usageError("export requires <file> <out.svg|out.pdf>")
	}
	sess, err := openActivity(ctx, cfg, args[0])
	if err != nil {
		return err
	}
	defer sess.Dispose()
	if err := sess.Download(ctx, args[1]); err != nil {
		return err
	}
	telemetry.Event(telemetry.Exported, map[string]any{"file": args[1]})
	fmt.Println("Wrote", args[1])
	return nil
}

func cmdPrint(ctx context.Context, cfg config.AppConfig, args []string) error {
	if len(args) < 1 {
		return usageError("print requires <file>")
	}
	sess, err := openActivity(ctx, cfg, args[0])
	if err != nil {
		return err
	}
	defer sess.Dispose()
	out, err := sess.Print(ctx, export.BrowserViewer{})
	if err != nil {
		return err
	}
	telemetry.Event(telemetry.Printed, nil)
	fmt.Println("Opened", out)
	return nil
}

func cmdImportSVG(args []string) error {
	if len(args) < 2 {
		return usageError("import-svg requires <in.svg> <out.json>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	sc, err := snapshot.ParseSVG(f)
	if err != nil {
		return err
	}
	snap, err := snapshot.Marshal(sc)
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(args[1], snap); err != nil {
		return err
	}
	fmt.Printf("Imported %d objects into %s\n", len(sc.Objects), args[1])
	return nil
}

func cmdBundle(ctx context.Context, cfg config.AppConfig, args []string) error {
	if len(args) < 3 {
		return usageError("bundle requires export <file> <out.zip> or import <in.zip> <file>")
	}
	switch args[0] {
	case "export":
		snap, err := snapshot.ReadFile(args[1])
		if err != nil {
			return err
		}
		n, err := bundle.Export(ctx, snap, newLoader(cfg), args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Packed %s with %d images\n", args[2], n)
	case "import":
		snap, err := bundle.Import(args[1])
		if err != nil {
			return err
		}
		return snapshot.WriteFile(args[2], snap)
	default:
		return usageError("unknown bundle command " + args[0])
	}
	return nil
}

func printActivities(rows [][]string) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tUPDATED")
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

func stamp(t time.Time) string { return t.Local().Format("2006-01-02 15:04") }

func cmdStore(ctx context.Context, cfg config.AppConfig, args []string) error {
	if len(args) < 1 {
		return usageError("store requires put|get|list|delete|search|prune")
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	switch args[0] {
	case "put":
		if len(args) < 4 {
			return usageError("store put requires <id> <name> <file>")
		}
		snap, err := snapshot.ReadFile(args[3])
		if err != nil {
			return err
		}
		a, err := st.Put(ctx, args[1], args[2], snap)
		if err != nil {
			return err
		}
		fmt.Printf("Stored %s version %d\n", a.ID, a.Version)
	case "get":
		if len(args) < 3 {
			return usageError("store get requires <id> <file>")
		}
		a, err := st.Get(ctx, args[1])
		if err != nil {
			return err
		}
		return snapshot.WriteFile(args[2], a.Snapshot)
	case "list":
		list, err := st.List(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(list))
		for _, a := range list {
			rows = append(rows, []string{a.ID, a.Name, strconv.FormatInt(a.Version, 10), stamp(a.UpdatedAt)})
		}
		printActivities(rows)
	case "delete":
		if len(args) < 2 {
			return usageError("store delete requires <id>")
		}
		return st.Delete(ctx, args[1])
	case "search":
		if len(args) < 2 {
			return usageError("store search requires <text>")
		}
		res, err := st.Search(ctx, store.SearchQuery{Text: strings.Join(args[1:], " ")})
		if err != nil {
			return err
		}
		for _, r := range res {
			fmt.Printf("%s\t%s\t%s\n", r.ID, r.Name, r.Snippet)
		}
	case "prune":
		if len(args) < 3 {
			return usageError("store prune requires <id> <keep>")
		}
		keep, err := strconv.Atoi(args[2])
		if err != nil {
			return usageError("keep must be a whole number")
		}
		n, err := st.Prune(ctx, args[1], keep)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d revisions\n", n)
	default:
		return usageError("unknown store command " + args[0])
	}
	return nil
}

func cmdRemote(ctx context.Context, cfg config.AppConfig, token string, args []string) error {
	if len(args) < 1 {
		return usageError("remote requires login|list|search|get|put|delete")
	}
	c := backend.NewClient(cfg.Backend.BaseURL, token, cfg.Backend.Timeout())
	switch args[0] {
	case "login":
		subject := "dev"
		if len(args) >= 2 {
			subject = args[1]
		}
		tok, err := c.IssueToken(ctx, subject, 24*time.Hour)
		if err != nil {
			return err
		}
		if err := config.Save(cfg, tok); err != nil {
			return err
		}
		fmt.Println("Token stored in the OS keychain")
	case "list", "search":
		var list []backend.Envelope
		var err error
		switch {
		case args[0] == "list":
			list, err = c.List(ctx)
		case len(args) < 2:
			return usageError("remote search requires <text>")
		default:
			list, err = c.Search(ctx, strings.Join(args[1:], " "))
		}
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(list))
		for _, e := range list {
			rows = append(rows, []string{e.ID, e.Name, strconv.FormatInt(e.Version, 10), stamp(e.UpdatedAt)})
		}
		printActivities(rows)
	case "get":
		if len(args) < 3 {
			return usageError("remote get requires <id> <file>")
		}
		e, err := c.Get(ctx, args[1])
		if err != nil {
			return err
		}
		return snapshot.WriteFile(args[2], snapshot.Snapshot(e.Snapshot))
	case "put":
		if len(args) < 4 {
			return usageError("remote put requires <id> <name> <file>")
		}
		snap, err := snapshot.ReadFile(args[3])
		if err != nil {
			return err
		}
		e, err := c.Put(ctx, args[1], args[2], snap)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %s version %d\n", e.ID, e.Version)
	case "delete":
		if len(args) < 2 {
			return usageError("remote delete requires <id>")
		}
		return c.Delete(ctx, args[1])
	default:
		return usageError("unknown remote command " + args[0])
	}
	return nil
}

func cmdServe(ctx context.Context, cfg config.AppConfig, args []string) error {
	addr := ":8080"
	if len(args) >= 1 {
		addr = args[0]
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	return backend.ListenAndServe(ctx, addr, backend.NewServer(st, os.Getenv("ACV_AUTH_SECRET")))
}

func cmdRecover() error {
	paths, err := crash.Recoveries()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No recovery snapshots")
		return nil
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
