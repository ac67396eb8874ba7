// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/edrlab/lcp-client/pkg/engine"
)

// watchAndValidate monitors dir for dropped license/status files and
// validates each as it appears, adapted from cmd/lcpencrypt's
// watchFileChanges (the reference server's input-directory watcher),
// pointed at validation instead of encryption. cfgs is consulted fresh for
// every file, so a configuration reload takes effect on the next drop
// without restarting the watcher.
func watchAndValidate(ctx context.Context, dir string, cfgs *engineConfigHolder) error {
	return watchDir(ctx, dir, func(path string) {
		validateFileLogged(ctx, path, cfgs.get())
	})
}

// watchAndRecord is watchAndValidate's counterpart for -serve: each
// outcome is appended to history for the /status endpoint to report,
// instead of only being logged.
func watchAndRecord(ctx context.Context, dir string, cfgs *engineConfigHolder, history *outcomeHistory) error {
	return watchDir(ctx, dir, func(path string) {
		recordValidation(ctx, path, cfgs.get(), history)
	})
}

// watchDir drives onFile for every file already present in dir and for
// every subsequent create/write event, until ctx is cancelled.
func watchDir(ctx context.Context, dir string, onFile func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	log.WithField("dir", dir).Info("watching directory for license and status files")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		onFile(filepath.Join(dir, entry.Name()))
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("watcher stop requested")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}
			onFile(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")
		}
	}
}

func validateFileLogged(ctx context.Context, path string, cfg engine.Config) {
	if err := validateFile(ctx, path, cfg); err != nil {
		log.WithError(err).WithField("file", path).Error("validation failed")
	}
}
