package ui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// initWatcher watches the directory holding path. Editors often replace a
// file instead of writing it, so watching the file itself misses saves.
func initWatcher(path string) tea.Cmd {
	return func() tea.Msg {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Error("error creating fsnotify watcher", "error", err)
			return nil
		}
		dir := filepath.Dir(path)
		if err := w.Add(dir); err != nil {
			log.Error("error adding dir to fsnotify watcher", "error", err)
			_ = w.Close()
			return nil
		}
		log.Info("fsnotify watching dir", "dir", dir)
		return watcherMsg(w)
	}
}

// watchFile blocks until path is written again and returns its new text.
func (m model) watchFile() tea.Cmd {
	w, path, reload := m.watcher, m.cfg.Path, m.cfg.Reload
	if w == nil || reload == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return nil
				}
				if event.Name != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
				text, err := reload()
				if err != nil {
					return errMsg{err}
				}
				return reloadMsg(text)
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				log.Debug("fsnotify error", "path", path, "error", err)
			}
		}
	}
}

func (m model) unwatchFile() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Close(); err != nil {
		log.Error("fsnotify fail to close watcher", "error", err)
		return
	}
	log.Debug("fsnotify watcher closed", "path", m.cfg.Path)
}
