// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Command lcpvalidate drives the license validation engine against a
// license or status document from the command line, grounded on the
// reference server's cmd/lcpchecker (flag parsing, logging setup) extended
// with the "-watch" and "-serve" modes cmd/lcpencrypt and cmd/lcpserver
// respectively demonstrate for this module's other long-running commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/edrlab/lcp-client/pkg/auth"
	"github.com/edrlab/lcp-client/pkg/cache"
	"github.com/edrlab/lcp-client/pkg/conf"
	"github.com/edrlab/lcp-client/pkg/contract"
	"github.com/edrlab/lcp-client/pkg/crypto"
	"github.com/edrlab/lcp-client/pkg/doc"
	"github.com/edrlab/lcp-client/pkg/engine"
)

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
}

func usage() {
	fmt.Println("Usage: lcpvalidate [-config file] [-passphrase] [-verbose] [-watch dir] [-serve addr] filepath|dir")
	flag.PrintDefaults()
}

// engineConfigHolder lets a background configuration watcher publish a
// freshly rebuilt engine.Config to every long-running run mode without
// tearing down whatever request or directory watch is in flight.
type engineConfigHolder struct {
	v atomic.Pointer[engine.Config]
}

func newEngineConfigHolder(cfg engine.Config) *engineConfigHolder {
	h := &engineConfigHolder{}
	h.v.Store(&cfg)
	return h
}

func (h *engineConfigHolder) get() engine.Config { return *h.v.Load() }
func (h *engineConfigHolder) set(cfg engine.Config) { h.v.Store(&cfg) }

func main() {
	configFile := flag.String("config", "", "path to the YAML configuration file")
	passphrase := flag.String("passphrase", "", "candidate passphrase to unlock the license")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	watchDir := flag.String("watch", "", "watch a directory for dropped license/status files instead of validating one file")
	serveAddr := flag.String("serve", "", "serve a read-only /status diagnostics endpoint at this address, reporting outcomes for files dropped into the directory positional argument")
	flag.Parse()

	if !*verbose {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.DebugLevel)
	}

	cfg := &conf.Config{}
	if *configFile != "" {
		loaded, err := conf.ReadConfig(*configFile)
		if err != nil {
			log.Fatal("failed to load configuration: ", err)
		}
		cfg = loaded
	}

	engineCfg, err := buildEngineConfig(cfg, *passphrase)
	if err != nil {
		log.Fatal("failed to assemble the validation engine: ", err)
	}
	holder := newEngineConfigHolder(engineCfg)

	if *configFile != "" {
		watchCtx, cancelWatch := context.WithCancel(context.Background())
		defer cancelWatch()
		go func() {
			err := conf.Watch(watchCtx, *configFile, func(reloaded *conf.Config) {
				rebuilt, err := buildEngineConfig(reloaded, *passphrase)
				if err != nil {
					log.WithError(err).Warn("reloaded configuration produced an invalid engine configuration, keeping the previous one")
					return
				}
				holder.set(rebuilt)
				log.Info("configuration reloaded")
			})
			if err != nil {
				log.WithError(err).Warn("configuration watcher stopped")
			}
		}()
	}

	switch {
	case *serveAddr != "":
		dir := flag.Arg(0)
		if dir == "" {
			usage()
			os.Exit(1)
		}
		if err := serve(context.Background(), *serveAddr, dir, holder); err != nil {
			log.Fatal("diagnostics server failed: ", err)
		}
	case *watchDir != "":
		if err := watchAndValidate(context.Background(), *watchDir, holder); err != nil {
			log.Fatal("watch mode failed: ", err)
		}
	default:
		path := flag.Arg(0)
		if path == "" {
			usage()
			os.Exit(1)
		}
		if err := validateFile(context.Background(), path, holder.get()); err != nil {
			os.Exit(1)
		}
	}
}

// buildEngineConfig wires the default, network-backed collaborators
// (pkg/netclient, pkg/auth, pkg/crypto, pkg/cache) into an engine.Config,
// the composition root every run mode below shares.
func buildEngineConfig(cfg *conf.Config, passphrase string) (engine.Config, error) {
	roots, err := loadCARoots(cfg.Certificate.CABundlePath)
	if err != nil {
		return engine.Config{}, err
	}
	lcp := crypto.NewDefaultLcpClient(roots)

	network := netHTTPNetwork()
	crl := netHTTPCrl(network, cfg.StatusCrlUrl, cfg.NetworkTimeout())
	device := netHTTPDevice(cfg)

	if cfg.Cache.Dsn != "" {
		store, err := cache.Open(cfg.Cache.Dsn)
		if err != nil {
			return engine.Config{}, fmt.Errorf("opening device registration cache: %w", err)
		}
		device = &cache.CachingDeviceService{
			Inner:    device,
			Store:    store,
			DeviceID: cfg.Device.ID,
			Name:     cfg.Device.Name,
		}
	}

	var candidates []string
	if passphrase != "" {
		candidates = append(candidates, passphrase)
	}

	return engine.Config{
		Network:        network,
		Crl:            crl,
		Device:         device,
		Passphrases:    auth.NewStaticPassphraseService(lcp, candidates...),
		Lcp:            lcp,
		Authentication: auth.BearerAuthentication{Token: cfg.Auth.Token},
		ParseLicense:   doc.ParseLicenseView,
		ParseStatus:    doc.ParseStatusView,
		Production:     cfg.Production,
		NetworkTimeout: cfg.NetworkTimeout(),
		OnLicenseValidated: func(license contract.LicenseView) {
			log.WithField("license_id", license.ID()).Info("license parsed and schema-validated")
		},
	}, nil
}

// validateFile runs the engine once against the document at path, printing
// the outcome, in the spirit of the reference checker's one-shot CLI.
func validateFile(ctx context.Context, path string, cfg engine.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("failed to read ", path, ": ", err)
		return err
	}

	fmt.Println("Validating", path)

	documents, err := runValidation(ctx, data, cfg)
	if err != nil {
		log.Error("validation failed: ", err)
		return err
	}
	if !documents.IsUsable() {
		log.WithField("reason", documents.StatusError).Warn("license is valid but unusable under its current status")
		return nil
	}
	log.WithField("license_id", documents.License.ID()).Info("license is valid and usable")
	return nil
}

// runValidation drives the engine to completion against data and returns
// its outcome, the synchronous core both the one-shot CLI and the
// directory-watching run modes (-watch, -serve) build on.
func runValidation(ctx context.Context, data []byte, cfg engine.Config) (*engine.ValidatedDocuments, error) {
	e := engine.NewEngine(cfg, nil)
	done := make(chan struct{})
	var documents *engine.ValidatedDocuments
	var outcomeErr error
	e.Validate(ctx, inputFor(data), func(d *engine.ValidatedDocuments, err error) {
		defer close(done)
		documents, outcomeErr = d, err
	})
	<-done
	return documents, outcomeErr
}

func inputFor(data []byte) contract.Input {
	if doc.LooksLikeStatusDocument(data) {
		return contract.StatusInput(data)
	}
	return contract.LicenseInput(data)
}
