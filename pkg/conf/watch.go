// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package conf

import (
	"context"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads configFile whenever it changes on disk and calls onReload
// with the new Config, until ctx is cancelled. Adapted from the reference
// server's cmd/lcpencrypt watchFileChanges, pointed at a single config file
// instead of an input directory.
func Watch(ctx context.Context, configFile string, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(configFile); err != nil {
		return err
	}

	log.WithField("file", configFile).Info("watching configuration file for changes")

	for {
		select {
		case <-ctx.Done():
			log.Info("configuration watcher stop requested")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := ReadConfig(configFile)
			if err != nil {
				log.WithError(err).Warn("failed to reload configuration, keeping the previous one")
				continue
			}
			onReload(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("configuration watcher error")
		}
	}
}
