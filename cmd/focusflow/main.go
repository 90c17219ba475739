package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"focusflow/internal/app"
	"focusflow/internal/schedule"
	"focusflow/internal/state"
	logx "focusflow/pkg/logx"
)

const usage = `usage: focusflow <command> [flags]

commands:
  run        start the daemon (reminders, HTTP API, Telegram bot)
  parse      import a schedule from a file or stdin
  now        show the current and next task
  status     list today's schedule
  task       set a task status: task <id> <pending|completed|skipped>
  settings   show or change settings
  export     write the export document
  clear      remove the schedule and settings
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "run":
		err = runDaemon(ctx, args)
	case "parse":
		err = runParse(ctx, args, os.Stdin, os.Stdout)
	case "now":
		err = runNow(ctx, args, os.Stdout)
	case "status":
		err = runStatus(ctx, args, os.Stdout)
	case "task":
		err = runTask(ctx, args, os.Stdout)
	case "settings":
		err = runSettings(ctx, args, os.Stdout)
	case "export":
		err = runExport(ctx, args, os.Stdout)
	case "clear":
		err = runClear(ctx, args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.String("config", "./focusflow.yaml", "path to config (json or yaml)")
	return fs, cfgPath
}

func cliLogger() logx.Logger { return logx.NewConsole("warn") }

func runDaemon(ctx context.Context, args []string) error {
	fs, cfgPath := newFlagSet("run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := app.NewApp(*cfgPath)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		reason = app.StopFatalError
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stopErr := a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		return errors.Join(a.Err(), stopErr)
	}
	return stopErr
}

func withOffline(ctx context.Context, cfgPath string, fn func(*app.Offline) error) error {
	off, err := app.OpenOffline(ctx, cfgPath, cliLogger())
	if err != nil {
		return err
	}
	defer off.Close()
	return fn(off)
}

func runParse(ctx context.Context, args []string, stdin io.Reader, out io.Writer) error {
	fs, cfgPath := newFlagSet("parse")
	format := fs.String("format", "text", "input dialect: text or json")
	strict := fs.Bool("strict", false, "fail on lines that are not schedule blocks")
	dryRun := fs.Bool("dry-run", false, "print the parsed blocks without saving")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := schedule.ParseFormat(*format)
	if err != nil {
		return err
	}

	in := stdin
	if p := fs.Arg(0); p != "" && p != "-" {
		file, err := os.Open(p)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	opts := schedule.ParseOptions{Strict: *strict}
	if *dryRun {
		res, err := schedule.Parse(f, raw, opts)
		if err != nil {
			return err
		}
		printBlocks(out, res.Blocks, false)
		printSkipped(out, res.Skipped)
		return nil
	}
	return withOffline(ctx, *cfgPath, func(off *app.Offline) error {
		res, err := off.Session.Import(ctx, f, raw, opts)
		if schedule.IsWarning(err) {
			printSkipped(out, res.Skipped)
			fmt.Fprintln(out, "warning:", err)
			return nil
		}
		if err != nil {
			return err
		}
		printBlocks(out, res.Blocks, off.Session.Settings().Use24HourFormat)
		printSkipped(out, res.Skipped)
		fmt.Fprintf(out, "imported %d blocks\n", len(res.Blocks))
		return nil
	})
}

func runNow(ctx context.Context, args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("now")
	at := fs.String("at", "", "evaluate at this clock time instead of now (e.g. 14:30 or 2:30 PM)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withOffline(ctx, *cfgPath, func(off *app.Offline) error {
		t := off.Now()
		if *at != "" {
			clk, err := schedule.Standardize(*at)
			if err != nil {
				return err
			}
			m := clk.Minutes()
			t = time.Date(t.Year(), t.Month(), t.Day(), m/60, m%60, 0, 0, t.Location())
		}
		settings := off.Session.Settings()
		r := off.Session.Resolve(t)
		fmt.Fprintln(out, schedule.FormatWallClock(t, settings.Use24HourFormat))
		if r.Current == nil {
			fmt.Fprintln(out, "No current task")
		} else {
			fmt.Fprintf(out, "Current: %s (%s - %s) %d%%, %s\n",
				r.Current.Task, r.Current.StartTime, r.Current.EndTime, r.Progress, r.Remaining)
		}
		if r.Next != nil {
			fmt.Fprintf(out, "Next:    %s at %s\n", r.Next.Task, r.Next.StartTime)
		}
		return nil
	})
}

func runStatus(ctx context.Context, args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withOffline(ctx, *cfgPath, func(off *app.Offline) error {
		blocks, settings := off.Session.Snapshot()
		fmt.Fprintf(out, "store: %s\n", storeName(off))
		if len(blocks) == 0 {
			fmt.Fprintln(out, "no schedule loaded")
		} else {
			printBlocks(out, blocks, settings.Use24HourFormat)
		}
		fmt.Fprintf(out, "notifications=%s 24h=%s dark=%s\n",
			onOff(settings.Notifications), onOff(settings.Use24HourFormat), onOff(settings.DarkMode))
		return nil
	})
}

func runTask(ctx context.Context, args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("task")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: task <id> <pending|completed|skipped>")
	}
	return withOffline(ctx, *cfgPath, func(off *app.Offline) error {
		b, err := off.Session.UpdateTaskStatus(ctx, fs.Arg(0), schedule.Status(fs.Arg(1)))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", b.Task, b.Status)
		return nil
	})
}

func runSettings(ctx context.Context, args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("settings")
	notify := fs.String("notifications", "", "on|off")
	use24 := fs.String("24h", "", "on|off")
	dark := fs.String("dark", "", "on|off")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var patch state.SettingsPatch
	for _, f := range []struct {
		name string
		raw  string
		dst  **bool
	}{
		{"notifications", *notify, &patch.Notifications},
		{"24h", *use24, &patch.Use24HourFormat},
		{"dark", *dark, &patch.DarkMode},
	} {
		if f.raw == "" {
			continue
		}
		v, err := parseOnOff(f.raw)
		if err != nil {
			return fmt.Errorf("-%s: %w", f.name, err)
		}
		*f.dst = &v
	}
	return withOffline(ctx, *cfgPath, func(off *app.Offline) error {
		s := off.Session.Settings()
		if !patch.Empty() {
			var err error
			if s, err = off.Session.UpdateSettings(ctx, patch); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "notifications=%s 24h=%s dark=%s\n",
			onOff(s.Notifications), onOff(s.Use24HourFormat), onOff(s.DarkMode))
		return nil
	})
}

func runExport(ctx context.Context, args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("export")
	dst := fs.String("o", "", "output file (default stdout; \"auto\" writes "+state.ExportFileName+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withOffline(ctx, *cfgPath, func(off *app.Offline) error {
		b, err := off.Session.ExportJSON()
		if err != nil {
			return err
		}
		switch *dst {
		case "":
			_, err = fmt.Fprintln(out, string(b))
			return err
		case "auto":
			*dst = state.ExportFileName
		}
		if err := os.WriteFile(*dst, b, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "exported to %s\n", *dst)
		return nil
	})
}

func runClear(ctx context.Context, args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("clear")
	yes := fs.Bool("yes", false, "confirm removal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("refusing to clear without -yes")
	}
	return withOffline(ctx, *cfgPath, func(off *app.Offline) error {
		if err := off.Session.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "cleared")
		return nil
	})
}

func printBlocks(out io.Writer, blocks []schedule.TimeBlock, use24 bool) {
	for _, b := range blocks {
		start, end := b.StartTime, b.EndTime
		if use24 {
			start, end = clock24(start), clock24(end)
		}
		fmt.Fprintf(out, "%-9s %8s - %-8s  %-9s %s  [%s]\n", b.Status, start, end, b.Category, b.Task, b.ID)
	}
}

func printSkipped(out io.Writer, skipped []schedule.SkippedLine) {
	for _, s := range skipped {
		fmt.Fprintf(out, "skipped line %d: %s\n", s.Line, s.Text)
	}
}

func clock24(raw string) string {
	c, err := schedule.Standardize(raw)
	if err != nil {
		return raw
	}
	return c.Format24()
}

func storeName(off *app.Offline) string {
	d := strings.TrimSpace(off.Config.Store.Driver)
	if d == "" {
		d = "file"
	}
	if d == "redis" {
		return d + " " + off.Config.Store.Redis.Addr
	}
	if off.Config.Store.Path != "" {
		return d + " " + off.Config.Store.Path
	}
	return d
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
