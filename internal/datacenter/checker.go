// Package datacenter keeps hosting-provider ranges and threat IP lists in
// memory so visits from them can be flagged as non-human traffic.
package datacenter

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Format describes how a source body is laid out.
type Format int

const (
	// FormatCIDR is one CIDR per line.
	FormatCIDR Format = iota
	// FormatIP is one address per line.
	FormatIP
	// FormatIpsum is "ip<whitespace>score" per line.
	FormatIpsum
	// FormatOCI is Oracle's public_ip_ranges.json.
	FormatOCI
	// FormatCSV carries the CIDR in the first column.
	FormatCSV
)

// Source is one list the checker loads. Sources with Static entries are
// never fetched.
type Source struct {
	Name   string
	URL    string
	Format Format
	Static []string
}

const (
	RefreshInterval = 24 * time.Hour
	fetchTimeout    = 30 * time.Second
)

var akamaiCIDR = []string{
	"23.32.0.0/11", "23.192.0.0/11", "2.16.0.0/13", "104.64.0.0/10",
	"184.24.0.0/13", "23.0.0.0/12", "95.100.0.0/15", "92.122.0.0/15",
	"184.50.0.0/15", "88.221.0.0/16", "23.64.0.0/14", "72.246.0.0/15",
	"96.16.0.0/15", "96.6.0.0/15", "69.192.0.0/16", "23.72.0.0/13",
	"173.222.0.0/15", "118.214.0.0/16", "184.84.0.0/14",
}

var scalewayCIDR = []string{
	"62.210.0.0/16", "195.154.0.0/16", "212.129.0.0/18", "62.4.0.0/19",
	"212.83.128.0/19", "212.83.160.0/19", "212.47.224.0/19", "163.172.0.0/16",
	"51.15.0.0/16", "151.115.0.0/16", "51.158.0.0/15",
}

// DefaultSources covers the large hosting providers, Tor exits and two
// community threat feeds.
var DefaultSources = []Source{
	{Name: "datacenters", URL: "https://raw.githubusercontent.com/jhassine/server-ip-addresses/master/data/datacenters.txt", Format: FormatCIDR},
	{Name: "oci", URL: "https://docs.cloud.oracle.com/en-us/iaas/tools/public_ip_ranges.json", Format: FormatOCI},
	{Name: "digitalocean", URL: "https://www.digitalocean.com/geo/google.csv", Format: FormatCSV},
	{Name: "vultr", URL: "https://geofeed.constant.com/?text", Format: FormatCIDR},
	{Name: "akamai", Format: FormatCIDR, Static: akamaiCIDR},
	{Name: "scaleway", Format: FormatCIDR, Static: scalewayCIDR},
	{Name: "tor", URL: "https://check.torproject.org/torbulkexitlist", Format: FormatIP},
	{Name: "ipsum", URL: "https://raw.githubusercontent.com/stamparm/ipsum/master/ipsum.txt", Format: FormatIpsum},
	{Name: "greensnow", URL: "https://blocklist.greensnow.co/greensnow.txt", Format: FormatIP},
}

// Checker answers membership queries against the loaded lists. Lookups
// are safe for concurrent use.
type Checker struct {
	sources []Source
	client  *http.Client
	log     *zap.Logger

	mu       sync.RWMutex
	prefixes []netip.Prefix
	addrs    map[netip.Addr]struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New builds an empty checker over sources. Call Refresh or Start to load it.
func New(sources []Source, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		sources: sources,
		client:  &http.Client{Timeout: fetchTimeout},
		log:     log.Named("datacenter"),
		addrs:   make(map[netip.Addr]struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start loads every source in the background and reloads them each interval.
func (c *Checker) Start(interval time.Duration) {
	c.startOnce.Do(func() { go c.run(interval) })
}

// Shutdown stops the background refresh and waits for it to exit.
func (c *Checker) Shutdown() {
	c.stopOnce.Do(func() { close(c.stop) })
	started := true
	c.startOnce.Do(func() { started = false })
	if started {
		<-c.done
	}
}

// Contains reports whether addr is inside a loaded range or on a loaded list.
func (c *Checker) Contains(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.addrs[addr]; ok {
		return true
	}
	for _, p := range c.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IsBlocked is Contains for a textual address. Unparseable input is not blocked.
func (c *Checker) IsBlocked(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	return c.Contains(addr)
}

// Size returns the number of loaded prefixes and individual addresses.
func (c *Checker) Size() (prefixes, addrs int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.prefixes), len(c.addrs)
}

func (c *Checker) run(interval time.Duration) {
	defer close(c.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	_ = c.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Refresh(ctx)
		case <-c.stop:
			return
		}
	}
}

// Refresh loads every source concurrently. A failing source keeps the
// previous generation in place when nothing at all could be loaded. The
// returned error joins the per-source failures.
func (c *Checker) Refresh(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     []error
		prefixes []netip.Prefix
		addrs    = make(map[netip.Addr]struct{})
	)

	for _, src := range c.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			p, a, err := c.load(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			}
			prefixes = append(prefixes, p...)
			for _, addr := range a {
				addrs[addr] = struct{}{}
			}
		}(src)
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		c.log.Warn("partial refresh", zap.Error(err))
	}

	c.mu.Lock()
	if len(prefixes) > 0 {
		c.prefixes = prefixes
	}
	if len(addrs) > 0 {
		c.addrs = addrs
	}
	c.mu.Unlock()

	c.log.Info("lists loaded", zap.Int("prefixes", len(prefixes)), zap.Int("addrs", len(addrs)))
	return err
}

func (c *Checker) load(ctx context.Context, src Source) ([]netip.Prefix, []netip.Addr, error) {
	if len(src.Static) > 0 {
		p, err := parsePrefixes(strings.NewReader(strings.Join(src.Static, "\n")))
		return p, nil, err
	}

	body, err := c.fetch(ctx, src.URL)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	switch src.Format {
	case FormatCIDR:
		p, err := parsePrefixes(body)
		return p, nil, err
	case FormatOCI:
		p, err := parseOCI(body)
		return p, nil, err
	case FormatCSV:
		p, err := parseCSV(body)
		return p, nil, err
	case FormatIP:
		a, err := parseAddrs(body, false)
		return nil, a, err
	case FormatIpsum:
		a, err := parseAddrs(body, true)
		return nil, a, err
	}
	return nil, nil, fmt.Errorf("unknown format %d", src.Format)
}

func (c *Checker) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parsePrefixes reads one CIDR per line, skipping blanks, comments and junk.
func parsePrefixes(r io.Reader) ([]netip.Prefix, error) {
	var out []netip.Prefix
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := netip.ParsePrefix(line)
		if err != nil {
			continue
		}
		out = append(out, p.Masked())
	}
	return out, scanner.Err()
}

// parseAddrs reads one address per line. With firstField set only the
// first whitespace-separated field is considered.
func parseAddrs(r io.Reader, firstField bool) ([]netip.Addr, error) {
	var out []netip.Addr
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if firstField {
			fields := strings.Fields(line)
			line = fields[0]
		}
		addr, err := netip.ParseAddr(line)
		if err != nil {
			continue
		}
		out = append(out, addr.Unmap())
	}
	return out, scanner.Err()
}

func parseOCI(r io.Reader) ([]netip.Prefix, error) {
	var data struct {
		Regions []struct {
			Cidrs []struct {
				Cidr string `json:"cidr"`
			} `json:"cidrs"`
		} `json:"regions"`
	}
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, err
	}

	var cidrs []string
	for _, region := range data.Regions {
		for _, c := range region.Cidrs {
			cidrs = append(cidrs, c.Cidr)
		}
	}
	return parsePrefixes(strings.NewReader(strings.Join(cidrs, "\n")))
}

func parseCSV(r io.Reader) ([]netip.Prefix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var cidrs []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > 0 {
			cidrs = append(cidrs, record[0])
		}
	}
	return parsePrefixes(strings.NewReader(strings.Join(cidrs, "\n")))
}
