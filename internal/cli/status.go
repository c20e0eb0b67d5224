package cli

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anchorhq/anchor/internal/daemon"
	"github.com/anchorhq/anchor/internal/persist"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon liveness and graph stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			paths := daemon.Paths{Dir: cfg.ConfigDir}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Anchor Status\n")
			fmt.Fprintf(out, "=============\n\n")

			if pid, alive := daemonAlive(paths.PIDFile()); alive {
				fmt.Fprintf(out, "  Daemon:   running (pid %d)\n", pid)
				if pingDaemon(paths.Socket()) {
					fmt.Fprintf(out, "  Socket:   %s (responding)\n", paths.Socket())
				} else {
					fmt.Fprintf(out, "  Socket:   %s (not responding)\n", paths.Socket())
				}
			} else {
				fmt.Fprintf(out, "  Daemon:   not running\n")
			}

			g, err := persist.Load(cfg.SnapshotPath())
			if err != nil {
				fmt.Fprintf(out, "  Snapshot: none (%v)\n", err)
				return nil
			}
			stats := g.Stats()
			fmt.Fprintf(out, "  Snapshot: %s\n\n", cfg.SnapshotPath())
			fmt.Fprintf(out, "  Files:         %d\n", stats.LiveFiles)
			fmt.Fprintf(out, "  Symbols:       %d\n", stats.LiveSymbols)
			fmt.Fprintf(out, "  Edges:         %d\n", stats.TotalEdges)
			fmt.Fprintf(out, "  Unique names:  %d\n", stats.UniqueNames)
			return nil
		},
	}
	return cmd
}

// daemonAlive reads the pid file and checks the process exists.
func daemonAlive(pidFile string) (int, bool) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return pid, false
	}
	return pid, true
}

// pingDaemon sends one ping request over the socket.
func pingDaemon(socket string) bool {
	conn, err := net.DialTimeout("unix", socket, time.Second)
	if err != nil {
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(time.Second))

	if _, err := fmt.Fprintf(conn, `{"type":"ping"}`+"\n"); err != nil {
		return false
	}
	scanner := bufio.NewScanner(conn)
	return scanner.Scan() && strings.Contains(scanner.Text(), "pong")
}
