package tunnel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

var (
	// ErrNotInstalled is returned when the tunnel binary is not on PATH.
	ErrNotInstalled = errors.New("ngrok not found")
	// ErrNoURL is returned when neither the agent API nor the logs yield a public URL.
	ErrNoURL = errors.New("failed to establish tunnel")
)

// InstallHint is printed when ngrok is missing.
const InstallHint = `Please install ngrok:
   curl -s https://ngrok-agent.s3.amazonaws.com/ngrok.asc | sudo tee /etc/apt/trusted.gpg.d/ngrok.asc >/dev/null
   echo 'deb https://ngrok-agent.s3.amazonaws.com buster main' | sudo tee /etc/apt/sources.list.d/ngrok.list
   sudo apt update && sudo apt install ngrok`

// Config controls how the tunnel process is launched and discovered.
type Config struct {
	Binary           string
	Port             int
	APIURL           string
	StartupWait      time.Duration
	APITimeout       time.Duration
	DiscoveryTimeout time.Duration
	StopGrace        time.Duration
}

func (c Config) stopGrace() time.Duration {
	if c.StopGrace > 0 {
		return c.StopGrace
	}
	return 5 * time.Second
}

// DefaultConfig returns the ngrok settings for a local port.
func DefaultConfig(port int) Config {
	return Config{
		Binary:           "ngrok",
		Port:             port,
		APIURL:           "http://127.0.0.1:4040/api/tunnels",
		StartupWait:      2 * time.Second,
		APITimeout:       10 * time.Second,
		DiscoveryTimeout: 15 * time.Second,
		StopGrace:        5 * time.Second,
	}
}

// Manager owns a single tunnel process. It is started once and stopped once.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	cmd      *exec.Cmd
	logsDone chan struct{} // closed once the stdout reader hits EOF
	url      string
}

// New creates a Manager. Nothing is spawned until Start.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// PublicURL returns the discovered public URL, or "" if there is none.
func (m *Manager) PublicURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

// Start launches the tunnel and waits for its public URL, first from the
// agent API and then from the process's JSON log lines.
func (m *Manager) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.cmd != nil {
		m.mu.Unlock()
		return "", errors.New("tunnel already started")
	}

	cmd := exec.Command(m.cfg.Binary,
		"http", strconv.Itoa(m.cfg.Port),
		"--log=stdout",
		"--log-format=json",
		"--host-header=rewrite",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrNotInstalled
		}
		return "", fmt.Errorf("start %s: %w", m.cfg.Binary, err)
	}
	found := make(chan string, 1)
	logsDone := make(chan struct{})
	go func() {
		defer close(logsDone)
		watchLogs(stdout, found)
	}()
	m.cmd = cmd
	m.logsDone = logsDone
	m.mu.Unlock()

	slog.Info("tunnel.spawned", "binary", m.cfg.Binary, "pid", cmd.Process.Pid, "port", m.cfg.Port)

	if err := sleepCtx(ctx, m.cfg.StartupWait); err != nil {
		return "", err
	}

	u, apiErr := FetchPublicURL(ctx, m.cfg.APIURL, m.cfg.APITimeout)
	if apiErr != nil {
		slog.Warn("tunnel.api", "url", m.cfg.APIURL, "err", apiErr)
		timer := time.NewTimer(m.cfg.DiscoveryTimeout)
		defer timer.Stop()
		select {
		case u = <-found:
		case <-timer.C:
			return "", ErrNoURL
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	m.url = u
	m.mu.Unlock()
	slog.Info("tunnel.established", "url", u)
	return u, nil
}

// Stop terminates the tunnel process if one was started. The stdout reader
// is drained before Wait closes the pipe under it.
func (m *Manager) Stop() error {
	m.mu.Lock()
	cmd, logsDone := m.cmd, m.logsDone
	m.cmd, m.logsDone = nil, nil
	m.url = ""
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-logsDone:
	case <-time.After(m.cfg.stopGrace()):
		// a child that inherited stdout can hold the pipe open
		slog.Warn("tunnel.logs_open", "binary", m.cfg.Binary)
		_ = cmd.Process.Kill()
	}
	err := cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("wait %s: %w", m.cfg.Binary, err)
	}
	slog.Info("tunnel.stopped")
	return nil
}

type tunnelsResponse struct {
	Tunnels []struct {
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
	} `json:"tunnels"`
}

// FetchPublicURL asks the local ngrok agent API for its first tunnel.
func FetchPublicURL(ctx context.Context, apiURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("agent api status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var tr tunnelsResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	if len(tr.Tunnels) == 0 || tr.Tunnels[0].PublicURL == "" {
		return "", errors.New("agent api reported no tunnels")
	}
	return tr.Tunnels[0].PublicURL, nil
}

// watchLogs drains r until EOF and hands the first URL it sees to found.
func watchLogs(r io.Reader, found chan<- string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if u := URLFromLogLine(scanner.Text()); u != "" {
			select {
			case found <- u:
			default:
			}
		}
	}
}

// URLFromLogLine extracts a tunnel URL from one log line, either a JSON
// object with a "url" field or a logfmt line with url=.
func URLFromLogLine(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return ""
		}
		u, _ := entry["url"].(string)
		return u
	}
	for _, field := range strings.Fields(line) {
		if v, ok := strings.CutPrefix(field, "url="); ok {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
