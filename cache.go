// Copyright 2012 Google Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/steveyen/gkvlite"
)

// contentCache keeps file contents in a single gkvlite store in the
// backing directory, keyed by "//depot/path#rev". Revisions never
// change, so entries are never invalidated.
type contentCache struct {
	mu    sync.Mutex
	file  *os.File
	store *gkvlite.Store
	coll  *gkvlite.Collection
}

const cacheFile = "content.gkvlite"

func openCache(dir string) (*contentCache, error) {
	file, err := os.OpenFile(filepath.Join(dir, cacheFile), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	store, err := gkvlite.NewStore(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &contentCache{
		file:  file,
		store: store,
		coll:  store.SetCollection("content", nil),
	}, nil
}

// get returns the cached content of key. Values carry a one byte
// marker so empty files are told apart from misses.
func (c *contentCache) get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.coll.Get([]byte(key))
	if err != nil || v == nil {
		return nil, false, err
	}
	return v[1:], true, nil
}

func (c *contentCache) put(key string, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := make([]byte, 0, len(content)+1)
	v = append(v, 1)
	v = append(v, content...)
	if err := c.coll.Set([]byte(key), v); err != nil {
		return err
	}
	return c.store.Flush()
}

func (c *contentCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Close()
	return c.file.Close()
}
