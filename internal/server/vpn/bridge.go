// Package vpn drives the VPN daemon's command-line surface. The daemon runs
// inside a container and is reachable only through docker exec; key material
// and config files are produced by its management script, never by this
// process.
package vpn

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
)

const manageScript = "/app/scripts/manage-clients.sh"

type Bridge struct {
	containerName string
	interfaceName string
}

func NewBridge(containerName, interfaceName string) *Bridge {
	return &Bridge{
		containerName: containerName,
		interfaceName: interfaceName,
	}
}

// AddClient provisions key material and a config file for a new client.
// The name and ip must already be validated; they are passed as positional
// argv entries, never through a shell.
func (b *Bridge) AddClient(ctx context.Context, name, ip string) error {
	args := []string{manageScript, "add", name}
	if ip != "" {
		args = append(args, ip)
	}
	return b.execInContainer(ctx, args...)
}

// RemoveClient deletes the client's files under the clients directory.
func (b *Bridge) RemoveClient(ctx context.Context, name string) error {
	return b.execInContainer(ctx, manageScript, "remove", name)
}

// DumpPeers queries the daemon's runtime state and returns one PeerStat per
// connected peer.
func (b *Bridge) DumpPeers(ctx context.Context) ([]PeerStat, error) {
	out, err := b.output(ctx, "awg", "show", b.interfaceName, "dump")
	if err != nil {
		return nil, err
	}
	return ParseDump(out), nil
}

func (b *Bridge) execInContainer(ctx context.Context, args ...string) error {
	_, err := b.output(ctx, args...)
	return err
}

func (b *Bridge) output(ctx context.Context, args ...string) (string, error) {
	argv := append([]string{"exec", b.containerName}, args...)
	cmd := exec.CommandContext(ctx, "docker", argv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stdout.Len() > 0 {
		log.Printf("Script output: %s", stdout.String())
	}
	if stderr.Len() > 0 {
		log.Printf("Script stderr: %s", stderr.String())
	}
	if err != nil {
		return "", fmt.Errorf("command in container %s failed: %w (stderr: %s)",
			b.containerName, err, stderr.String())
	}
	return stdout.String(), nil
}
