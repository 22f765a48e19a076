package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pranshuparmar/portman/internal/config"
	"github.com/pranshuparmar/portman/internal/errors"
	"github.com/pranshuparmar/portman/internal/query"
	"github.com/pranshuparmar/portman/pkg/model"
)

type fakeInventory struct {
	records []model.PortRecord
}

func (f *fakeInventory) Snapshot() (model.Snapshot, error) {
	return model.NewSnapshot(time.Now(), f.records), nil
}

func (f *fakeInventory) Filter(s model.Snapshot, p query.Predicate) []model.PortRecord {
	return query.Filter(s.Records(), p)
}

func (f *fakeInventory) PortInUse(port uint16) (bool, error) {
	for _, r := range f.records {
		if r.LocalPort == port {
			return true, nil
		}
	}
	return false, nil
}

var testSockets = []model.PortRecord{
	{Protocol: model.TCP, LocalAddress: "0.0.0.0:8080", LocalPort: 8080, RemoteAddress: "0.0.0.0:0", State: "LISTEN", PID: 42, ProcessName: "nginx", Tags: []string{}},
	{Protocol: model.UDP, LocalAddress: "0.0.0.0:1500", LocalPort: 1500, RemoteAddress: "-", State: "UDP", Tags: []string{}},
}

type harness struct {
	ledgerPath string
	stdout     bytes.Buffer
}

// run executes the command line against a fresh app sharing the harness ledger.
func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.stdout.Reset()

	a := newApp()
	a.stdout = &h.stdout
	a.newInventory = func(string, *slog.Logger) Inventory {
		return &fakeInventory{records: testSockets}
	}

	root := newRootCmd(a)
	root.SetArgs(append([]string{"--ledger", h.ledgerPath}, args...))
	return root.Execute()
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	return &harness{ledgerPath: filepath.Join(t.TempDir(), "reservations.json")}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "reserve", "9090", "api"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	data, err := os.ReadFile(h.ledgerPath)
	if err != nil {
		t.Fatalf("ledger not written: %v", err)
	}
	if !strings.Contains(string(data), `"9090": "api"`) {
		t.Errorf("ledger file = %s", data)
	}

	if err := h.run(t, "reservations", "--json"); err != nil {
		t.Fatalf("reservations: %v", err)
	}
	var all map[string]string
	if err := json.Unmarshal(h.stdout.Bytes(), &all); err != nil {
		t.Fatalf("decoding %q: %v", h.stdout.String(), err)
	}
	if all["9090"] != "api" {
		t.Errorf("reservations = %v", all)
	}

	if err := h.run(t, "release", "9090"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := h.run(t, "reservations"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "No reservations.") {
		t.Errorf("after release: %q", h.stdout.String())
	}
}

func TestRefusalExitCodes(t *testing.T) {
	h := newHarness(t)
	if err := h.run(t, "reserve", "9090", "api"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"already reserved", []string{"reserve", "9090", "other"}, errors.ExitAlreadyReserved},
		{"port in use", []string{"reserve", "8080", "web"}, errors.ExitPortInUse},
		{"not reserved", []string{"release", "7000"}, errors.ExitNotReserved},
		{"port zero", []string{"reserve", "0", "x"}, errors.ExitInvalidInput},
		{"bad port", []string{"status", "http"}, errors.ExitInvalidInput},
		{"bad range", []string{"list", "--port-start", "2000", "--port-end", "1000"}, errors.ExitInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.run(t, tt.args...)
			if got := errors.GetExitCode(err); got != tt.want {
				t.Errorf("exit code = %d, want %d (err: %v)", got, tt.want, err)
			}
		})
	}
}

func TestListFilters(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "list", "--protocol", "udp", "--port-start", "1024", "--port-end", "2048", "--json"); err != nil {
		t.Fatal(err)
	}
	var records []model.PortRecord
	if err := json.Unmarshal(h.stdout.Bytes(), &records); err != nil {
		t.Fatalf("decoding %q: %v", h.stdout.String(), err)
	}
	if len(records) != 1 || records[0].LocalPort != 1500 {
		t.Errorf("records = %+v", records)
	}

	if err := h.run(t, "reserve", "9999", "api"); err != nil {
		t.Fatal(err)
	}
	if err := h.run(t, "list", "--no-color"); err != nil {
		t.Fatal(err)
	}
	out := h.stdout.String()
	if !strings.Contains(out, "nginx") || !strings.Contains(out, "2 sockets") {
		t.Errorf("table output = %q", out)
	}
}

func TestStatusJSON(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "status", "8080", "--json"); err != nil {
		t.Fatal(err)
	}
	var st statusResult
	if err := json.Unmarshal(h.stdout.Bytes(), &st); err != nil {
		t.Fatalf("decoding %q: %v", h.stdout.String(), err)
	}
	if st.Reserved || len(st.Sockets) != 1 || st.Sockets[0].ProcessName != "nginx" {
		t.Errorf("status = %+v", st)
	}
}

func TestEphemeralLeavesNoFile(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "--ephemeral", "reserve", "9090", "api"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(h.ledgerPath); !os.IsNotExist(err) {
		t.Errorf("ephemeral run wrote %s (stat err %v)", h.ledgerPath, err)
	}
}

func TestInvalidLedgerExtension(t *testing.T) {
	h := newHarness(t)
	h.ledgerPath = filepath.Join(t.TempDir(), "reservations.txt")

	err := h.run(t, "reservations")
	if got := errors.GetExitCode(err); got != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d (err: %v)", got, errors.ExitConfigError, err)
	}
}

func TestConfigFileLedgerPath(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "ledger.yaml")
	cfgPath := filepath.Join(dir, "portman.yaml")
	if err := os.WriteFile(cfgPath, []byte("ledger_path: "+ledgerPath+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	a := newApp()
	a.stdout = &h.stdout
	a.newInventory = func(string, *slog.Logger) Inventory { return &fakeInventory{} }
	root := newRootCmd(a)
	root.SetArgs([]string{"--config", cfgPath, "reserve", "7000", "db"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(ledgerPath)
	if err != nil {
		t.Fatalf("yaml ledger not written: %v", err)
	}
	if !strings.Contains(string(data), "7000: db") {
		t.Errorf("yaml ledger = %q", data)
	}
}

func TestSetVersionBuildCommitString(t *testing.T) {
	defer func(v string) { versionString = v }(versionString)

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"", "", "", "dev"},
		{"v1.2.0", "", "", "v1.2.0"},
		{"v1.2.0", "abc123", "", "v1.2.0 (abc123)"},
		{"v1.2.0", "abc123", "2026-01-02", "v1.2.0 (abc123, built 2026-01-02)"},
	}
	for _, tt := range tests {
		SetVersionBuildCommitString(tt.version, tt.commit, tt.date)
		if versionString != tt.want {
			t.Errorf("SetVersionBuildCommitString(%q, %q, %q) = %q, want %q",
				tt.version, tt.commit, tt.date, versionString, tt.want)
		}
	}
}
