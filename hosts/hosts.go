// Package hosts serves address records from a hosts formatted file.
//
// The table is rebuilt wholesale on every reload and published with an
// atomic pointer swap, concurrent lookups always observe a complete
// snapshot.
package hosts

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/miekg/dns"
	"github.com/semihalev/zlog/v2"
)

type table struct {
	// Keys are absolute lower case domain names.
	byNameV4 map[string][]net.IP
	byNameV6 map[string][]net.IP
}

func newTable() *table {
	return &table{
		byNameV4: make(map[string][]net.IP),
		byNameV6: make(map[string][]net.IP),
	}
}

// Len returns the total number of addresses in the table.
func (t *table) len() int {
	l := 0
	for _, v4 := range t.byNameV4 {
		l += len(v4)
	}
	for _, v6 := range t.byNameV6 {
		l += len(v6)
	}
	return l
}

// File watches and serves a hosts file.
type File struct {
	path string

	table atomic.Pointer[table]

	// mtime and size are only touched by the watch goroutine
	mtime time.Time
	size  int64

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// New return a hosts file handle, nil when the file cannot be read.
func New(path string) *File {
	if path == "" {
		return nil
	}

	f := &File{
		path:   path,
		stopCh: make(chan struct{}),
	}
	f.table.Store(newTable())

	if err := f.Reload(); err != nil {
		zlog.Error("Hosts file read failed", "path", path, "error", err.Error())
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		zlog.Error("Hosts file watcher failed", "error", err.Error())
		return f
	}
	f.watcher = watcher

	// Watch the directory, not the file, editors and bind mounts replace
	// the file instead of writing in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		zlog.Error("Hosts file watch failed", "path", path, "error", err.Error())
		_ = watcher.Close()
		f.watcher = nil
		return f
	}

	go f.watch()

	return f
}

// Len return the total number of addresses currently served.
func (f *File) Len() int {
	return f.table.Load().len()
}

// LookupHost looks up the addresses of the given ip family (4 or 6) for name.
// The returned slice is a copy.
func (f *File) LookupHost(name string, family int) []net.IP {
	t := f.table.Load()

	var ips []net.IP
	switch family {
	case 4:
		ips = t.byNameV4[absDomainName(name)]
	case 6:
		ips = t.byNameV6[absDomainName(name)]
	}

	if len(ips) == 0 {
		return nil
	}

	ipsCp := make([]net.IP, len(ips))
	copy(ipsCp, ips)
	return ipsCp
}

// Reload parses the file and swaps in the new table.
func (f *File) Reload() error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}

	defer func() {
		if err := file.Close(); err != nil {
			zlog.Warn("Hosts file close failed", "error", err.Error())
		}
	}()

	if stat, err := file.Stat(); err == nil {
		f.mtime = stat.ModTime()
		f.size = stat.Size()
	}

	t := parse(file)
	f.table.Store(t)

	zlog.Debug("Parsed hosts file", "path", f.path, "entries", t.len())

	return nil
}

// Stop stops the file watcher.
func (f *File) Stop() {
	close(f.stopCh)
}

func (f *File) watch() {
	defer func() {
		if err := f.watcher.Close(); err != nil {
			zlog.Warn("Hosts file watcher close failed", "error", err.Error())
		}
	}()

	// fsnotify can miss events on some filesystems, check periodically too
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) == filepath.Clean(f.path) {
				f.checkAndReload()
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			zlog.Error("Hosts file watcher error", "error", err.Error())

		case <-ticker.C:
			f.checkAndReload()
		}
	}
}

func (f *File) checkAndReload() {
	stat, err := os.Stat(f.path)
	if err != nil {
		return
	}

	if f.mtime.Equal(stat.ModTime()) && f.size == stat.Size() {
		return
	}

	if err := f.Reload(); err != nil {
		zlog.Error("Hosts file reload failed", "path", f.path, "error", err.Error())
	}
}

// parse reads address name [alias...] lines into a fresh table. Comments
// and blank lines are ignored, malformed lines are skipped with a warning.
func parse(r io.Reader) *table {
	t := newTable()

	lineno := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineno++

		line := scanner.Bytes()
		if i := bytes.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := bytes.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if len(fields) < 2 {
			zlog.Warn("Hosts file line skipped", "line", lineno, "reason", "missing hostname")
			continue
		}

		addr := parseLiteralIP(string(fields[0]))
		if addr == nil {
			zlog.Warn("Hosts file line skipped", "line", lineno, "reason", "invalid address")
			continue
		}

		ver := ipVersion(string(fields[0]))
		for i := 1; i < len(fields); i++ {
			name := absDomainName(string(fields[i]))
			switch ver {
			case 4:
				t.byNameV4[name] = append(t.byNameV4[name], addr)
			case 6:
				t.byNameV6[name] = append(t.byNameV6[name], addr)
			}
		}
	}

	return t
}

func parseLiteralIP(addr string) net.IP {
	if i := strings.Index(addr, "%"); i >= 0 {
		// discard ipv6 zone
		addr = addr[0:i]
	}

	return net.ParseIP(addr)
}

// ipVersion returns what IP version was used textually
func ipVersion(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.':
			return 4
		case ':':
			return 6
		}
	}
	return 0
}

func absDomainName(name string) string {
	return strings.ToLower(dns.Fqdn(name))
}
