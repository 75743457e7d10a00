// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"os"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"

	"p4go/p4"
)

func main() {
	fsdebug := flag.Bool("fs-debug", false, "switch on FS debugging")
	p4port := flag.String("p4-server", "", "address for P4 server (default from P4PORT/P4CONFIG)")
	p4binary := flag.String("p4-binary", "p4", "binary for P4 commandline client")
	p4user := flag.String("p4-user", "", "P4 user (default from P4USER/P4CONFIG)")
	p4client := flag.String("p4-client", "", "P4 client (default from P4CLIENT/P4CONFIG)")
	backingDir := flag.String("backing", "", "directory to store file contents.")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if len(flag.Args()) != 1 {
		logrus.Fatal("Usage: p4fs MOUNT-POINT")
	}
	mountpoint := flag.Arg(0)

	wd, _ := os.Getwd()
	cfg, err := p4.LoadConfig(wd)
	if err != nil {
		logrus.Fatalf("reading P4CONFIG: %v", err)
	}
	if *p4port != "" {
		cfg.Port = *p4port
	}
	if *p4user != "" {
		cfg.User = *p4user
	}
	if *p4client != "" {
		cfg.Client = *p4client
	}
	cfg.Binary = *p4binary

	server, err := p4.Connect(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("connecting to %s: %v", cfg.Port, err)
	}
	server.SetProgram("p4fs", "1.0")

	if *backingDir == "" {
		d, err := os.MkdirTemp("", "p4fs")
		if err != nil {
			logrus.Fatalf("TempDir failed: %v", err)
		}
		*backingDir = d
		defer os.RemoveAll(d)
	}
	cache, err := openCache(*backingDir)
	if err != nil {
		logrus.Fatalf("opening cache: %v", err)
	}
	defer cache.Close()

	p4fs := NewP4Fs(server, cache)
	mount, err := fs.Mount(mountpoint, p4fs.Root(), &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:  *fsdebug,
			FsName: cfg.Port,
			Name:   "p4fs",
		},
	})
	if err != nil {
		logrus.Fatalf("mount failed: %v", err)
	}
	logrus.WithField("mountpoint", mountpoint).Info("starting FUSE.")
	mount.Wait()
}
