//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."   // relative to ./e2e
const mainPkgRel = "./cmd" // main.go lives in cmd/

// TestSmoke_IngestAndRead boots the real binary against a SQLite file
// provisioned by a container, ingests one reading over HTTP, reads it back,
// and shuts down cleanly on SIGTERM.
func TestSmoke_IngestAndRead(t *testing.T) {
	repoRoot := repoRootPath(t)

	sqlitePath := startSQLite(t)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,

		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+sqlitePath,

		// Point MQTT at a closed port so the subscriber fails fast; the
		// server must still come up without a broker.
		"MQTT_BROKER=127.0.0.1",
		"MQTT_PORT=1",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 10*time.Second)

	// No data yet.
	resp, err := client.Get(base + "/api/sensor-data/latest")
	if err != nil {
		t.Fatalf("GET latest: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("latest before ingest: status=%d want=%d", resp.StatusCode, http.StatusNotFound)
	}

	// Ingest one reading.
	payload := `{"temperature":23.4,"humidity":51.0,"airQualityVoltage":0.82,"airQualityLevel":"Good"}`
	resp, err = client.Post(base+"/api/sensor-data", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST sensor-data: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ingest: status=%d want=%d", resp.StatusCode, http.StatusCreated)
	}

	// Read it back.
	resp, err = client.Get(base + "/api/sensor-data/latest")
	if err != nil {
		t.Fatalf("GET latest: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("latest after ingest: status=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	var reading struct {
		Temperature float64 `json:"temperature"`
		Level       string  `json:"air_quality_level"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if reading.Temperature != 23.4 || reading.Level != "Good" {
		t.Fatalf("latest mismatch: %+v", reading)
	}

	// Module health endpoint reflects the stored reading.
	resp, err = client.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "healthy" {
		t.Fatalf("health.status=%v want=healthy", health["status"])
	}
	if health["total_readings"] != float64(1) {
		t.Fatalf("health.total_readings=%v want=1", health["total_readings"])
	}

	stopServer(t, cmd)
}

// TestSmoke_MQTTIngest publishes a reading through a real broker and verifies
// it lands in the HTTP API.
func TestSmoke_MQTTIngest(t *testing.T) {
	repoRoot := repoRootPath(t)

	sqlitePath := startSQLite(t)
	brokerHost, brokerPort := startMosquitto(t)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,

		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+sqlitePath,

		"MQTT_BROKER="+brokerHost,
		"MQTT_PORT="+brokerPort,
		"MQTT_TOPIC=vayu/telemetry",
		"MQTT_CLIENT_ID=vayu-server-e2e",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr
	waitForOK(t, client, base+"/healthz", 15*time.Second)

	publishReading(t, brokerHost, brokerPort,
		`{"temperature":19.5,"humidity":62.0,"airQualityVoltage":1.4,"airQualityLevel":"Moderate"}`)

	// The subscriber stores readings asynchronously; poll for arrival.
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := client.Get(base + "/api/sensor-data/latest")
		if err == nil && resp.StatusCode == http.StatusOK {
			var reading struct {
				Temperature float64 `json:"temperature"`
				Level       string  `json:"air_quality_level"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
				t.Fatalf("decode latest: %v", err)
			}
			_ = resp.Body.Close()
			if reading.Temperature != 19.5 || reading.Level != "Moderate" {
				t.Fatalf("latest mismatch: %+v", reading)
			}
			break
		}
		if err == nil {
			_ = resp.Body.Close()
		}
		if time.Now().After(deadline) {
			t.Fatal("published reading never appeared in the API")
		}
		time.Sleep(200 * time.Millisecond)
	}

	stopServer(t, cmd)
}

func startMosquitto(t *testing.T) (host, port string) {
	t.Helper()

	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{"1883/tcp"},
		Entrypoint:   []string{"sh", "-c"},
		Cmd: []string{
			"printf 'listener 1883\\nallow_anonymous true\\n' > /mosquitto/config/mosquitto.conf && " +
				"exec mosquitto -c /mosquitto/config/mosquitto.conf",
		},
		WaitingFor: wait.ForListeningPort(nat.Port("1883/tcp")).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err = c.Host(ctx)
	if err != nil {
		t.Fatalf("mosquitto host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port("1883/tcp"))
	if err != nil {
		t.Fatalf("mosquitto port: %v", err)
	}
	return host, mapped.Port()
}

func publishReading(t *testing.T, host, port, payload string) {
	t.Helper()

	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + net.JoinHostPort(host, port)).
		SetClientID("vayu-e2e-publisher")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("connect publisher: %v", token.Error())
	}
	defer client.Disconnect(250)

	if token := client.Publish("vayu/telemetry", 1, false, payload); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("publish: %v", token.Error())
	}
}

func startSQLite(t *testing.T) string {
	t.Helper()

	// Host temp dir that will contain the DB file
	hostDir := t.TempDir()
	dbPath := filepath.Join(hostDir, "vayu.db")

	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:      "nouchka/sqlite3:latest",
		WorkingDir: "/data",
		// Create the DB file and keep container alive
		Entrypoint: []string{"sh", "-c"},
		Cmd: []string{
			"sqlite3 /data/vayu.db \"PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;\" && " +
				"echo 'sqlite ready' && " +
				"tail -f /dev/null",
		},

		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Binds = append(hc.Binds, hostDir+":/data")
		},
		WaitingFor: wait.ForLog("sqlite ready").WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start sqlite container: %v", err)
	}

	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("sqlite db file not created: %v", err)
	}

	return dbPath
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
	out := filepath.Join(tmp, "vayu-server")

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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
