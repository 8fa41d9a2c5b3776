package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"workservice/internal/logger"
)

func init() {
	_ = logger.Init(logger.Config{Level: "disabled"})
}

// --- Default Config Tests ---

func TestDefaultConfig_BindsLoopback8080(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.Server.Address(); got != "127.0.0.1:8080" {
		t.Errorf("expected default address 127.0.0.1:8080, got %q", got)
	}
	if cfg.Server.Greeting != "Hello friendWorks!\r\n" {
		t.Errorf("unexpected default greeting %q", cfg.Server.Greeting)
	}
	if cfg.Server.ShutdownTimeout != 0 {
		t.Errorf("expected immediate close by default, got ShutdownTimeout=%v", cfg.Server.ShutdownTimeout)
	}
}

func TestDefaultConfig_ServiceIdentity(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Service.Name != "work_application_service" {
		t.Errorf("expected Service.Name=work_application_service, got %q", cfg.Service.Name)
	}
	if cfg.Service.UserStopCode != 130 {
		t.Errorf("expected UserStopCode=130, got %d", cfg.Service.UserStopCode)
	}
	if cfg.DrainTimeout != 0 {
		t.Errorf("expected DrainTimeout=0, got %v", cfg.DrainTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestServerConfig_AddressIPv6(t *testing.T) {
	s := ServerConfig{Host: "::1", Port: 9000}
	if got := s.Address(); got != "[::1]:9000" {
		t.Errorf("expected [::1]:9000, got %q", got)
	}
}

// --- Parse Tests ---

func TestParse_OverridesAndDurations(t *testing.T) {
	input := `{
		"Service": {"Name": "work_api", "UserStopCode": 200},
		"Server": {
			"Host": "0.0.0.0",
			"Port": 9090,
			"ShutdownTimeout": "5s",
			"ReadHeaderTimeout": "2s",
			"MaxConnections": 64
		},
		"DrainTimeout": "1500ms"
	}`

	cfg, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Service.Name != "work_api" {
		t.Errorf("expected Service.Name=work_api, got %q", cfg.Service.Name)
	}
	if cfg.Service.DisplayName != "Work Application Service" {
		t.Errorf("DisplayName default lost: %q", cfg.Service.DisplayName)
	}
	if cfg.Service.UserStopCode != 200 {
		t.Errorf("expected UserStopCode=200, got %d", cfg.Service.UserStopCode)
	}
	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Errorf("expected 0.0.0.0:9090, got %q", cfg.Server.Address())
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("expected ShutdownTimeout=5s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.ReadHeaderTimeout != 2*time.Second {
		t.Errorf("expected ReadHeaderTimeout=2s, got %v", cfg.Server.ReadHeaderTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout default lost: %v", cfg.Server.WriteTimeout)
	}
	if cfg.Server.MaxConnections != 64 {
		t.Errorf("expected MaxConnections=64, got %d", cfg.Server.MaxConnections)
	}
	if cfg.DrainTimeout != 1500*time.Millisecond {
		t.Errorf("expected DrainTimeout=1.5s, got %v", cfg.DrainTimeout)
	}
}

func TestParse_EmptyObjectKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Server.Address() != DefaultConfig().Server.Address() {
		t.Errorf("expected default address, got %q", cfg.Server.Address())
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte(`{"Server": {"IdleTimeout": "forever"}}`))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "Server.IdleTimeout") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"Server": {"Port": }`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if !strings.Contains(err.Error(), "failed to parse config JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"port too large", `{"Server": {"Port": 70000}}`, "Server.Port"},
		{"negative port", `{"Server": {"Port": -1}}`, "Server.Port"},
		{"stop code below user range", `{"Service": {"UserStopCode": 4}}`, "UserStopCode"},
		{"negative connection limit", `{"Server": {"MaxConnections": -3}}`, "MaxConnections"},
		{"negative drain", `{"DrainTimeout": "-1s"}`, "DrainTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatalf("expected validation error for %s", tt.input)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Service.Name = ""
	cfg.Server.Host = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"Service.Name", "Server.Host"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

// --- Load Tests ---

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadSplit_ReadsBothFiles(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "WorkService.json")
	logPath := filepath.Join(dir, "Logging.json")

	if err := os.WriteFile(cfgPath, []byte(`{"Server": {"Port": 18080}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(logPath, []byte(`{"Level": "debug", "Format": "fixed", "Console": false}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, lc, err := LoadSplit(cfgPath, logPath)
	if err != nil {
		t.Fatalf("LoadSplit failed: %v", err)
	}
	if cfg.Server.Port != 18080 {
		t.Errorf("expected Port=18080, got %d", cfg.Server.Port)
	}
	if lc.Level != "debug" || lc.Format != "fixed" {
		t.Errorf("unexpected logging config %+v", lc)
	}
	if lc.Console {
		t.Error("explicit Console=false was ignored")
	}
	if !lc.Compress {
		t.Error("Compress default lost")
	}
}

func TestLoadSplit_BadConfigIsWrapped(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "WorkService.json")
	if err := os.WriteFile(cfgPath, []byte(`{`), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := LoadSplit(cfgPath, filepath.Join(dir, "Logging.json"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "failed to load config:") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseLogging_Defaults(t *testing.T) {
	lc, err := ParseLogging([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParseLogging failed: %v", err)
	}
	def := logger.DefaultConfig()
	if *lc != def {
		t.Errorf("expected defaults %+v, got %+v", def, *lc)
	}
}
