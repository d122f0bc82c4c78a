package prompt

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/log"
)

const defaultCharacter = "Grey Sphynx Cat"

// Terms holds the randomly selected descriptor terms used to seed a
// random image prompt.
type Terms struct {
	Themes    []string
	Character string
	Styles    []string
}

// Flatten lists every selected term individually.
func (t Terms) Flatten() []string {
	var all []string
	all = append(all, t.Themes...)
	if t.Character != "" {
		all = append(all, t.Character)
	}
	all = append(all, t.Styles...)
	return all
}

// Library loads the theme, character, and style term files and serves
// random selections from them. When watching is enabled, edits to the
// files are picked up without a restart.
type Library struct {
	conf       *config.PromptConfig
	log        log.Logger
	mu         sync.RWMutex
	themes     []string
	characters []string
	styles     []string
	watcher    *fsnotify.Watcher
	closed     chan struct{}
	closedOnce sync.Once
}

func NewLibrary(conf *config.PromptConfig, log log.Logger) (*Library, error) {
	l := &Library{
		conf:   conf,
		log:    log.WithPrefix("prompt"),
		closed: make(chan struct{}),
	}
	l.Reload()
	if conf.Watch {
		if err := l.startWatcher(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Reload re-reads all three term files. A missing or empty file
// yields an empty term list for its category.
func (l *Library) Reload() {
	themes := loadTermFile(l.conf.ThemesFile, l.log)
	characters := loadTermFile(l.conf.CharactersFile, l.log)
	styles := loadTermFile(l.conf.StylesFile, l.log)

	l.mu.Lock()
	l.themes = themes
	l.characters = characters
	l.styles = styles
	l.mu.Unlock()
	l.log.Debugf("loaded %d theme(s), %d character(s), %d style(s)", len(themes), len(characters), len(styles))
}

// RandomTerms selects 1-3 themes, possibly a character concept, and
// 1-4 artistic styles. The character slot is skipped 5% of the time
// and biased towards the house cat.
func (l *Library) RandomTerms() Terms {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var terms Terms
	if len(l.themes) > 0 {
		terms.Themes = sample(l.themes, 1+rand.Intn(3))
	}
	if len(l.characters) > 0 {
		randVal := rand.Float64()
		switch {
		case randVal < 0.05:
		case randVal < 0.33:
			terms.Character = defaultCharacter
		default:
			terms.Character = l.characters[rand.Intn(len(l.characters))]
		}
	}
	if len(l.styles) > 0 {
		terms.Styles = sample(l.styles, 1+rand.Intn(4))
	}
	return terms
}

func (l *Library) Close() {
	l.closedOnce.Do(func() {
		close(l.closed)
	})
}

func (l *Library) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		l.log.Errorf("failed to create term file watcher: %s", err)
		return err
	}
	watched := make(map[string]struct{})
	for _, file := range []string{l.conf.ThemesFile, l.conf.CharactersFile, l.conf.StylesFile} {
		if file == "" {
			continue
		}
		dir := filepath.Dir(file)
		if _, ok := watched[dir]; ok {
			continue
		}
		if err := w.Add(dir); err != nil {
			l.log.Errorf("failed to watch %s: %s", dir, err)
			_ = w.Close()
			return err
		}
		watched[dir] = struct{}{}
	}
	l.watcher = w
	l.log.Reportf("watching term files for changes")
	go func() {
		for {
			select {
			case event := <-w.Events:
				if event.Has(fsnotify.Write) && l.isTermFile(event.Name) {
					l.log.Debugf("%s changed, reloading", event.Name)
					l.Reload()
				}
			case err := <-w.Errors:
				l.log.Errorf("%s", err)
			case <-l.closed:
				_ = w.Close()
				l.log.Reportf("shutdown complete")
				return
			}
		}
	}()
	return nil
}

func (l *Library) isTermFile(path string) bool {
	for _, file := range []string{l.conf.ThemesFile, l.conf.CharactersFile, l.conf.StylesFile} {
		if file != "" && filepath.Clean(path) == filepath.Clean(file) {
			return true
		}
	}
	return false
}

func loadTermFile(path string, log log.Logger) []string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("failed to read term file %s: %s", path, err)
		return nil
	}
	var terms []string
	for _, term := range strings.Split(string(data), ",") {
		term = strings.TrimSpace(term)
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func sample(items []string, count int) []string {
	if count > len(items) {
		count = len(items)
	}
	perm := rand.Perm(len(items))
	selected := make([]string, count)
	for i := 0; i < count; i++ {
		selected[i] = items[perm[i]]
	}
	return selected
}
