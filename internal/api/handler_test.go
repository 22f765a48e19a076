package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pranshuparmar/portman/internal/ledger"
	"github.com/pranshuparmar/portman/internal/query"
	"github.com/pranshuparmar/portman/internal/store"
	"github.com/pranshuparmar/portman/pkg/model"
)

type fakeInventory struct {
	records []model.PortRecord
	err     error
}

func (f *fakeInventory) Snapshot() (model.Snapshot, error) {
	return model.NewSnapshot(time.Now(), f.records), f.err
}

func (f *fakeInventory) Filter(s model.Snapshot, p query.Predicate) []model.PortRecord {
	return query.Filter(s.Records(), p)
}

func (f *fakeInventory) PortInUse(port uint16) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, r := range f.records {
		if r.LocalPort == port {
			return true, nil
		}
	}
	return false, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAPI(t *testing.T, inv *fakeInventory, opts ...ledger.Option) (*httptest.Server, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(inv, append([]ledger.Option{ledger.WithLogger(quiet())}, opts...)...)
	srv := httptest.NewServer(NewHandler(inv, l, quiet()).Routes())
	t.Cleanup(srv.Close)
	return srv, l
}

func post(t *testing.T, url, body string) (int, Response) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode, out
}

func TestReserveRelease(t *testing.T) {
	srv, l := newTestAPI(t, &fakeInventory{})

	status, resp := post(t, srv.URL+"/reserve", `{"port":9090,"service":"api"}`)
	if status != http.StatusOK || resp.Status != "reserved" {
		t.Fatalf("reserve = %d %+v", status, resp)
	}
	if !l.IsReserved(9090) {
		t.Error("ledger should hold 9090")
	}

	status, resp = post(t, srv.URL+"/reserve", `[9090,"other"]`)
	if status != http.StatusBadRequest || resp.Error != CodeAlreadyReserved {
		t.Errorf("second reserve = %d %+v", status, resp)
	}

	status, resp = post(t, srv.URL+"/release", `9090`)
	if status != http.StatusOK || resp.Status != "released" {
		t.Errorf("release = %d %+v", status, resp)
	}

	status, resp = post(t, srv.URL+"/release", `{"port":9090}`)
	if status != http.StatusBadRequest || resp.Error != CodeNotReserved {
		t.Errorf("second release = %d %+v", status, resp)
	}
}

func TestReserve_Refusals(t *testing.T) {
	inv := &fakeInventory{records: []model.PortRecord{{Protocol: model.TCP, LocalAddress: "0.0.0.0:8080", LocalPort: 8080, State: "LISTEN"}}}
	srv, _ := newTestAPI(t, inv)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"port in use", `{"port":8080,"service":"x"}`, http.StatusBadRequest, CodePortInUse},
		{"port zero", `{"port":0,"service":"x"}`, http.StatusBadRequest, CodeInvalid},
		{"blank service", `[9000," "]`, http.StatusBadRequest, CodeInvalid},
		{"malformed", `{"port":`, http.StatusBadRequest, CodeInvalid},
		{"tuple too short", `[9000]`, http.StatusBadRequest, CodeInvalid},
		{"port out of range", `{"port":70000,"service":"x"}`, http.StatusBadRequest, CodeInvalid},
		{"empty body", ``, http.StatusBadRequest, CodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := post(t, srv.URL+"/reserve", tt.body)
			if status != tt.wantStatus || resp.Error != tt.wantCode {
				t.Errorf("got %d %+v, want %d %s", status, resp, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestReserve_PlatformUnavailable(t *testing.T) {
	srv, _ := newTestAPI(t, &fakeInventory{err: errors.New("no procfs")})

	status, resp := post(t, srv.URL+"/reserve", `{"port":9000,"service":"x"}`)
	if status != http.StatusServiceUnavailable || resp.Error != CodePlatformUnavailable {
		t.Errorf("got %d %+v", status, resp)
	}
}

func TestReserve_PersistenceWarning(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.Err = errors.New("read-only file system")
	srv, l := newTestAPI(t, &fakeInventory{}, ledger.WithStore(mem))

	status, resp := post(t, srv.URL+"/reserve", `{"port":9090,"service":"api"}`)
	if status != http.StatusOK || resp.Status != "reserved" {
		t.Fatalf("got %d %+v", status, resp)
	}
	if !strings.Contains(resp.Warning, "read-only file system") {
		t.Errorf("warning = %q", resp.Warning)
	}
	if !l.IsReserved(9090) {
		t.Error("reservation should stand despite the warning")
	}
}

func TestStatusAndReservations(t *testing.T) {
	srv, l := newTestAPI(t, &fakeInventory{})
	if err := l.Reserve(9090, "api"); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/status/9090")
	if err != nil {
		t.Fatal(err)
	}
	var st StatusResponse
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if !st.Reserved || st.Service != "api" || st.Status != "reserved" {
		t.Errorf("status = %+v", st)
	}

	resp, _ = http.Get(srv.URL + "/status/1234")
	st = StatusResponse{}
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if st.Reserved || st.Status != "available" {
		t.Errorf("status = %+v", st)
	}

	resp, _ = http.Get(srv.URL + "/status/notaport")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad port status = %d", resp.StatusCode)
	}

	resp, _ = http.Get(srv.URL + "/reservations")
	var all map[string]string
	json.NewDecoder(resp.Body).Decode(&all)
	resp.Body.Close()
	if len(all) != 1 || all["9090"] != "api" {
		t.Errorf("reservations = %v", all)
	}
}

func TestPorts(t *testing.T) {
	inv := &fakeInventory{records: []model.PortRecord{
		{Protocol: model.UDP, LocalAddress: "0.0.0.0:1000", LocalPort: 1000, State: "UDP"},
		{Protocol: model.UDP, LocalAddress: "0.0.0.0:1500", LocalPort: 1500, State: "UDP"},
		{Protocol: model.TCP, LocalAddress: "0.0.0.0:1600", LocalPort: 1600, State: "LISTEN", ProcessName: "nginx"},
	}}
	srv, _ := newTestAPI(t, inv)

	get := func(path string) (int, []model.PortRecord) {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var out []model.PortRecord
		json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	if status, out := get("/ports?protocol=udp&port_start=1024&port_end=2048"); status != 200 || len(out) != 1 || out[0].LocalPort != 1500 {
		t.Errorf("filtered = %d %v", status, out)
	}
	if _, out := get("/ports?process_name=NGINX"); len(out) != 1 || out[0].LocalPort != 1600 {
		t.Errorf("by process = %v", out)
	}
	if _, out := get("/ports"); len(out) != 3 {
		t.Errorf("unfiltered = %v", out)
	}
	if status, _ := get("/ports?port_start=x"); status != http.StatusBadRequest {
		t.Errorf("bad predicate status = %d", status)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestAPI(t, &fakeInventory{})
	resp, err := http.Get(srv.URL + "/reserve")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /reserve = %d", resp.StatusCode)
	}
}

func TestServer_ShutsDownOnCancel(t *testing.T) {
	inv := &fakeInventory{}
	l := ledger.New(inv, ledger.WithLogger(quiet()))
	s := NewServer("127.0.0.1:0", NewHandler(inv, l, quiet()), quiet())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
