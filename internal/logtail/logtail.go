// Package logtail follows the log files of the zone components and
// mirrors them onto the launcher's output, surviving log rotation.
package logtail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/onedata/onezone-launcher/internal/config"
)

// Source is one followed log directory.
type Source struct {
	Prefix string
	Dir    string
}

// Components returns the log sources of a zone installation.
func Components() []Source {
	return []Source{
		{Prefix: "[oz_panel]", Dir: "/var/log/oz_panel"},
		{Prefix: "[cluster_manager]", Dir: "/var/log/cluster_manager"},
		{Prefix: "[oz_worker]", Dir: "/var/log/oz_worker"},
	}
}

type cursor struct {
	prefix  string
	path    string
	file    *os.File
	reader  *bufio.Reader
	info    os.FileInfo
	partial string
}

// Tailer incrementally copies new log lines of all sources to its
// writer. One Tailer keeps its cursors between passes, so Dump after
// Follow (or repeated Dumps) never repeats lines.
type Tailer struct {
	w        io.Writer
	cursors  []*cursor
	interval time.Duration
}

// New builds a Tailer for the <level>.log files of the sources. The
// level config.LogNone disables tailing entirely.
func New(w io.Writer, level string, sources ...Source) *Tailer {
	t := &Tailer{
		w:        w,
		interval: time.Second,
	}
	if level == config.LogNone {
		return t
	}
	for _, src := range sources {
		t.cursors = append(t.cursors, &cursor{
			prefix: src.Prefix,
			path:   filepath.Join(src.Dir, level+".log"),
		})
	}
	return t
}

// WithInterval changes the poll interval. For unit testing only.
func (t *Tailer) WithInterval(d time.Duration) *Tailer {
	t.interval = d
	return t
}

// Dump copies the lines accumulated since the previous pass.
func (t *Tailer) Dump() {
	for _, c := range t.cursors {
		c.drain(t.w)
	}
}

// Follow copies new lines on every interval until ctx is cancelled.
func (t *Tailer) Follow(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	defer t.close()

	for {
		select {
		case <-ctx.Done():
			t.Dump()
			return
		case <-ticker.C:
			t.Dump()
		}
	}
}

func (t *Tailer) close() {
	for _, c := range t.cursors {
		c.reset()
	}
}

func (c *cursor) drain(w io.Writer) {
	info, err := os.Stat(c.path)
	if err != nil {
		c.reset()
		return
	}

	// rotation: the path points to a different file now
	if c.file == nil || !os.SameFile(c.info, info) {
		c.reset()
		f, err := os.Open(c.path)
		if err != nil {
			return
		}
		c.file = f
		c.reader = bufio.NewReader(f)
		c.info = info
	}

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			// keep an unterminated tail line for the next pass
			c.partial += line
			return
		}
		fmt.Fprintf(w, "%s %s%s", c.prefix, c.partial, line)
		c.partial = ""
	}
}

func (c *cursor) reset() {
	if c.file != nil {
		_ = c.file.Close()
	}
	c.file = nil
	c.reader = nil
	c.info = nil
	c.partial = ""
}
