package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mixbah/pdfi/internal/client"
	"github.com/mixbah/pdfi/internal/services"
	"github.com/mixbah/pdfi/internal/session"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var errFilesFailed = errors.New("some files could not be summarized")

func (a *app) client() (*client.Client, error) {
	return client.New(a.server, a.http)
}

func (a *app) controller() (*session.Controller, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	return session.NewController(c, c, a.logger.Named("session"))
}

func (a *app) process(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	files := make([]session.File, 0, len(args))
	for _, path := range args {
		file, err := readFile(path)
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	controller, err := a.controller()
	if err != nil {
		return err
	}

	_, rejected := controller.Drop(ctx, files)
	for _, rejection := range rejected {
		fmt.Fprintf(a.stderr, "skipped %s\n", rejection.Error())
	}

	snap := controller.Snapshot()
	if err := session.RenderText(a.stdout, snap); err != nil {
		return err
	}

	for _, file := range snap.Files {
		if file.Status == session.StatusError {
			return errFilesFailed
		}
	}
	if len(snap.Files) == 0 && len(rejected) > 0 {
		return errFilesFailed
	}
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	page := flags.Int("page", services.DefaultHistoryPage, "page number")
	limit := flags.Int("limit", services.DefaultHistoryLimit, "entries per page")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	c, err := a.client()
	if err != nil {
		return err
	}
	history, err := c.History(ctx, *page, *limit)
	if err != nil {
		return err
	}

	return session.RenderText(a.stdout, session.Snapshot{History: history.Documents, Total: history.Total})
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	c, err := a.client()
	if err != nil {
		return err
	}

	var failed bool
	for _, id := range args {
		if err := c.DeleteDocument(ctx, id); err != nil {
			a.logger.Warn("delete document", zap.String("id", id), zap.Error(err))
			fmt.Fprintf(a.stderr, "%s: %v\n", id, err)
			failed = true
			continue
		}
		fmt.Fprintf(a.stdout, "deleted %s\n", id)
	}

	if failed {
		return errors.New("some entries could not be deleted")
	}
	return nil
}

func (a *app) clear(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	controller, err := a.controller()
	if err != nil {
		return err
	}
	if err := controller.RefreshHistory(ctx); err != nil {
		return err
	}

	deleted := controller.ClearHistory(ctx)
	fmt.Fprintf(a.stdout, "Deleted %d history entries\n", deleted)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	out := flags.String("o", fmt.Sprintf("history-%s.xlsx", time.Now().UTC().Format("20060102")), "output file")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	c, err := a.client()
	if err != nil {
		return err
	}

	return writeTo(*out, func(w io.Writer) error { return c.ExportHistory(ctx, w) })
}

func (a *app) download(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("download", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	out := flags.String("o", "", "output file, stdout when empty")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if flags.NArg() != 1 {
		return errUsage
	}

	c, err := a.client()
	if err != nil {
		return err
	}

	id := flags.Arg(0)
	if *out == "" {
		return c.Summary(ctx, id, a.stdout)
	}
	return writeTo(*out, func(w io.Writer) error { return c.Summary(ctx, id, w) })
}

// writeTo writes into a temporary file next to path and renames it once fill
// succeeded.
func writeTo(path string, fill func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdfi-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func readFile(path string) (session.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return session.File{}, err
	}

	return session.File{
		Name: filepath.Base(path),
		Type: fileType(path, data),
		Size: int64(len(data)),
		Data: data,
	}, nil
}

// fileType prefers the extension and falls back to content sniffing.
func fileType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil && services.IsSupportedType(mediaType) {
			return mediaType
		}
	}

	detected := mimetype.Detect(data).String()
	if mediaType, _, err := mime.ParseMediaType(detected); err == nil {
		return mediaType
	}
	return detected
}
