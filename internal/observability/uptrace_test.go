package observability

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/riskibarqy/best-odds/internal/config"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
)

func TestInitUptrace_Disabled(t *testing.T) {
	cfg := config.Config{
		UptraceEnabled: false,
		ServiceName:    "best-odds-api",
		ServiceVersion: "dev",
		AppEnv:         config.EnvDev,
	}

	shutdown, err := InitUptrace(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("init uptrace: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown uptrace: %v", err)
	}
}

func TestInitUptrace_EnabledWithoutDSNIsNoop(t *testing.T) {
	cfg := config.Config{UptraceEnabled: true, UptraceDSN: "  "}

	shutdown, err := InitUptrace(cfg, nil)
	if err != nil {
		t.Fatalf("init uptrace: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown uptrace: %v", err)
	}
}

func TestInitPyroscope_Disabled(t *testing.T) {
	stop, err := InitPyroscope(config.Config{PyroscopeEnabled: false}, logging.NewNop())
	if err != nil {
		t.Fatalf("init pyroscope: %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop pyroscope: %v", err)
	}
}

func TestStartPprofServer_Disabled(t *testing.T) {
	srv, err := StartPprofServer(config.Config{PprofEnabled: false}, logging.NewNop())
	if err != nil {
		t.Fatalf("start pprof: %v", err)
	}
	if srv != nil {
		t.Fatalf("expected nil server when disabled")
	}
	if err := StopPprofServer(srv, nil, 0); err != nil {
		t.Fatalf("stop pprof: %v", err)
	}
}

func TestStartPprofServer_ServesIndexAndStops(t *testing.T) {
	cfg := config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}

	srv, err := StartPprofServer(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("start pprof: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr + "/debug/pprof/")
	if err != nil {
		t.Fatalf("get pprof index: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from pprof index, got %d", resp.StatusCode)
	}

	if err := StopPprofServer(srv, logging.NewNop(), time.Second); err != nil {
		t.Fatalf("stop pprof: %v", err)
	}
}

func TestStartPprofServer_TakenPortFails(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	srv, err := StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: listener.Addr().String()}, logging.NewNop())
	if err == nil {
		_ = StopPprofServer(srv, nil, time.Second)
		t.Fatalf("expected bind error for taken port")
	}
}
