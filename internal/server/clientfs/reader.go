// Package clientfs reads the flat-file clients directory maintained by the
// external management script: one <name>.conf plus one <name>_public.key
// per provisioned client.
package clientfs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/awg-tools/portal/pkg/utils"
)

// addressRegex matches the Address directive inside a generated config.
// Only the IPv4 literal is captured; a trailing /mask is left behind.
var addressRegex = regexp.MustCompile(`Address\s*=\s*([0-9.]+)`)

// Entry is one complete conf/key pair found on disk.
type Entry struct {
	Name      string
	IPAddress string
	PublicKey string
}

type Reader struct {
	dir string
}

func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

func (r *Reader) Dir() string {
	return r.dir
}

// Scan enumerates every *.conf file and its companion public key file.
// A missing directory is created and reported as zero clients. A single
// unreadable or malformed entry is logged and skipped; it never aborts
// the scan.
func (r *Reader) Scan() ([]Entry, error) {
	if err := r.ensureDir(); err != nil {
		return nil, err
	}

	names, err := r.ListConfNames()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, name := range names {
		entry, err := r.readEntry(name)
		if err != nil {
			log.Printf("Warning: skipping client %s: %v", name, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListConfNames returns the base names of all .conf files in the clients
// directory. Names that fail validation are skipped: they cannot have been
// produced by the management script and must not become path components.
func (r *Reader) ListConfNames() ([]string, error) {
	if err := r.ensureDir(); err != nil {
		return nil, err
	}

	files, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients directory: %w", err)
	}

	var names []string
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".conf") {
			continue
		}
		name := strings.TrimSuffix(f.Name(), ".conf")
		if err := utils.ValidateClientName(name); err != nil {
			log.Printf("Warning: ignoring config file with invalid name %q: %v", f.Name(), err)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ReadConfig returns the raw config text for a client. The name must have
// been validated by the caller before it becomes a path component.
func (r *Reader) ReadConfig(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name+".conf"))
	if err != nil {
		return "", fmt.Errorf("failed to read config for %s: %w", name, err)
	}
	return string(data), nil
}

// ReadSanitizedConfig returns the config text with comment lines removed.
// This is the form served over the API and encoded into QR codes.
func (r *Reader) ReadSanitizedConfig(name string) (string, error) {
	raw, err := r.ReadConfig(name)
	if err != nil {
		return "", err
	}
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), nil
}

// ReadPublicKey returns the trimmed public key for a client.
func (r *Reader) ReadPublicKey(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name+"_public.key"))
	if err != nil {
		return "", fmt.Errorf("failed to read public key for %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ParseAddress extracts the first IPv4 literal from an Address line.
// Returns the empty string when no address is present.
func ParseAddress(config string) string {
	m := addressRegex.FindStringSubmatch(config)
	if m == nil {
		return ""
	}
	return m[1]
}

func (r *Reader) readEntry(name string) (Entry, error) {
	config, err := r.ReadConfig(name)
	if err != nil {
		return Entry{}, err
	}
	publicKey, err := r.ReadPublicKey(name)
	if err != nil {
		return Entry{}, err
	}

	ip := ParseAddress(config)
	if ip == "" {
		return Entry{}, fmt.Errorf("no Address line in config for %s", name)
	}
	if publicKey == "" {
		return Entry{}, fmt.Errorf("empty public key file for %s", name)
	}

	return Entry{Name: name, IPAddress: ip, PublicKey: publicKey}, nil
}

func (r *Reader) ensureDir() error {
	if _, err := os.Stat(r.dir); os.IsNotExist(err) {
		log.Printf("Clients directory %s does not exist, creating it", r.dir)
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return fmt.Errorf("failed to create clients directory: %w", err)
		}
	} else if err != nil {
		return err
	}
	return nil
}
