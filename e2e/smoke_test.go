//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/gorilla/websocket"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."               // relative to ./e2e
const mainPkgRel = "./cmd/serverwatch" // cobra entrypoint

const readingJSON = `{"tanggal":"2025-03-04T09:15","petugas":"Sari","suhu":"23,5","kelembaban":55,` +
	`"status_ac":"Normal","status_ups":"Normal","status_listrik":"Normal","status_server":"Online"}`

func TestSmoke_Local(t *testing.T) {
	bin := buildBinary(t, repoRootPath(t))
	addr := pickFreeAddr(t)

	cmd := startServer(t, bin,
		"HTTP_ADDR="+addr,
		"BACKEND=local",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "serverwatch.db"),
	)
	base := "http://" + addr
	client := &http.Client{Timeout: 5 * time.Second}
	waitForOK(t, client, base+"/healthz", 10*time.Second)

	ws := dialWS(t, addr)
	postReading(t, client, base)
	expectEvent(t, ws)
	expectReadings(t, client, base, 1)
	expectExport(t, client, base)

	stopServer(t, cmd)
}

func TestSmoke_Hosted(t *testing.T) {
	dsn := startPostgres(t)
	bin := buildBinary(t, repoRootPath(t))
	addr := pickFreeAddr(t)

	cmd := startServer(t, bin,
		"HTTP_ADDR="+addr,
		"BACKEND=hosted",
		"DATABASE_URL="+dsn,
	)
	base := "http://" + addr
	client := &http.Client{Timeout: 5 * time.Second}
	waitForOK(t, client, base+"/healthz", 15*time.Second)

	ws := dialWS(t, addr)
	postReading(t, client, base)
	// delivered through LISTEN/NOTIFY
	expectEvent(t, ws)
	expectReadings(t, client, base, 1)

	// A second process writing to the same database is seen by the dashboard.
	out, err := runCLI(bin, []string{"BACKEND=hosted", "DATABASE_URL=" + dsn},
		"readings", "submit", "--petugas", "Budi", "--suhu", "22", "--kelembaban", "50")
	if err != nil {
		t.Fatalf("cli submit: %v\n%s", err, out)
	}
	expectEvent(t, ws)
	expectReadings(t, client, base, 2)

	stopServer(t, cmd)
}

func TestSmoke_MQTT(t *testing.T) {
	broker, port := startMosquitto(t)
	bin := buildBinary(t, repoRootPath(t))
	addr := pickFreeAddr(t)
	dbPath := filepath.Join(t.TempDir(), "serverwatch.db")

	mqttEnv := []string{
		"MQTT_ENABLED=true",
		"MQTT_BROKER=" + broker,
		"MQTT_PORT=" + port,
		"MQTT_TOPIC=serverroom/readings",
	}
	cmd := startServer(t, bin, append(mqttEnv,
		"HTTP_ADDR="+addr,
		"BACKEND=local",
		"SQLITE_PATH="+dbPath,
	)...)
	base := "http://" + addr
	client := &http.Client{Timeout: 5 * time.Second}
	waitForOK(t, client, base+"/healthz", 10*time.Second)
	// The subscription is made from the connect callback.
	time.Sleep(500 * time.Millisecond)

	out, err := runCLI(bin, append(mqttEnv, "BACKEND=local", "SQLITE_PATH="+filepath.Join(t.TempDir(), "unused.db")),
		"readings", "submit", "--via", "mqtt", "--petugas", "Sensor-1", "--suhu", "24", "--kelembaban", "45")
	if err != nil {
		t.Fatalf("cli publish: %v\n%s", err, out)
	}

	deadline := time.Now().Add(10 * time.Second)
	for countReadings(t, client, base) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("reading published over mqtt was not stored")
		}
		time.Sleep(200 * time.Millisecond)
	}

	stopServer(t, cmd)
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	port := nat.Port("5432/tcp")

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{string(port)},
		Env: map[string]string{
			"POSTGRES_USER":     "serverwatch",
			"POSTGRES_PASSWORD": "serverwatch",
			"POSTGRES_DB":       "serverwatch",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(port),
		).WithDeadline(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	return fmt.Sprintf("postgres://serverwatch:serverwatch@%s:%s/serverwatch?sslmode=disable", host, mapped.Port())
}

func startMosquitto(t *testing.T) (string, string) {
	t.Helper()
	ctx := context.Background()
	port := nat.Port("1883/tcp")

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(port)},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(30 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("mosquitto host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("mosquitto port: %v", err)
	}
	return host, mapped.Port()
}

func startServer(t *testing.T, bin string, env ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(bin, "serve")
	cmd.Env = append(os.Environ(), append([]string{"APP_ENV=dev", "LOG_LEVEL=info", "STATIC_DIR=" + t.TempDir()}, env...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

func runCLI(bin string, env []string, args ...string) (string, error) {
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), append([]string{"APP_ENV=prod", "LOG_LEVEL=error"}, env...)...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func dialWS(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	// Let the hub register the client before anything is published.
	time.Sleep(100 * time.Millisecond)
	return conn
}

func postReading(t *testing.T, client *http.Client, base string) {
	t.Helper()
	resp, err := client.Post(base+"/api/v1/readings", "application/json", bytes.NewBufferString(readingJSON))
	if err != nil {
		t.Fatalf("POST reading: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST reading status=%d want=%d", resp.StatusCode, http.StatusCreated)
	}
}

func expectEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ws: %v", err)
	}
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil || ev.Type != "readings.changed" {
		t.Fatalf("event = %s (%v)", msg, err)
	}
}

func countReadings(t *testing.T, client *http.Client, base string) int {
	t.Helper()
	resp, err := client.Get(base + "/api/v1/readings")
	if err != nil {
		t.Fatalf("GET readings: %v", err)
	}
	defer resp.Body.Close()
	var history []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode readings: %v", err)
	}
	return len(history)
}

func expectReadings(t *testing.T, client *http.Client, base string, want int) {
	t.Helper()
	if got := countReadings(t, client, base); got != want {
		t.Fatalf("readings=%d want=%d", got, want)
	}
}

func expectExport(t *testing.T, client *http.Client, base string) {
	t.Helper()
	resp, err := client.Get(base + "/export.xlsx")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status=%d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Monitoring_Server_") {
		t.Fatalf("Content-Disposition=%q", cd)
	}
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	tmp := t.TempDir()
	out := filepath.Join(tmp, "serverwatch")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
