// Package memimg 把字体文件载入内存并在文件变化时热更新，加速绘图
package memimg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// Fonts caches parsed TrueType fonts keyed by file base name.
type Fonts struct {
	mu    sync.RWMutex
	fonts map[string]*truetype.Font
}

func NewFonts() *Fonts {
	return &Fonts{fonts: make(map[string]*truetype.Font)}
}

func isFontFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ttf")
}

// LoadDir 解析目录下所有 .ttf 文件
func (f *Fonts) LoadDir(directory string) error {
	return filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isFontFile(path) {
			return nil
		}
		return f.load(path)
	})
}

func (f *Fonts) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ft, err := truetype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	f.mu.Lock()
	f.fonts[filepath.Base(path)] = ft
	f.mu.Unlock()
	return nil
}

func (f *Fonts) remove(path string) {
	f.mu.Lock()
	delete(f.fonts, filepath.Base(path))
	f.mu.Unlock()
}

// Face 返回指定字号的字体，未载入时返回 false
func (f *Fonts) Face(name string, size float64) (font.Face, bool) {
	f.mu.RLock()
	ft, exists := f.fonts[name]
	f.mu.RUnlock()
	if !exists {
		return nil, false
	}
	return truetype.NewFace(ft, &truetype.Options{Size: size}), true
}

// Watch reloads fonts in directory as files change until ctx is done.
func (f *Fonts) Watch(ctx context.Context, directory string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(directory); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isFontFile(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				if err := f.load(event.Name); err != nil {
					// 文件可能还没写完，下一次 Write 事件会再试
					log.Debug("font reload failed", "file", event.Name, "err", err)
					continue
				}
				log.Info("font reloaded", "file", filepath.Base(event.Name))
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				f.remove(event.Name)
				log.Info("font removed", "file", filepath.Base(event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("font watcher", "err", err)
		}
	}
}
