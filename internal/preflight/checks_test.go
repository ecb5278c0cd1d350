package preflight

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"
)

func TestCheck_String(t *testing.T) {
	tests := []struct {
		name  string
		check Check
		want  []string
	}{
		{
			name:  "passed_with_required",
			check: Check{Name: "fds", Required: 100, Actual: 200, Passed: true},
			want:  []string{"✓", "200", "100"},
		},
		{
			name:  "failed_check",
			check: Check{Name: "fds", Required: 100, Actual: 50},
			want:  []string{"✗"},
		},
		{
			name:  "warning_check",
			check: Check{Name: "server", Passed: true, Warning: true, Message: "warning message"},
			want:  []string{"⚠", "warning message"},
		},
		{
			name:  "passed_with_message_only",
			check: Check{Name: "metrics_listen", Passed: true, Message: "all good"},
			want:  []string{"✓", "all good"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.check.String()
			for _, w := range tt.want {
				if !strings.Contains(s, w) {
					t.Errorf("String() = %q, missing %q", s, w)
				}
			}
		})
	}
}

func TestCheckFileDescriptors(t *testing.T) {
	c := checkFileDescriptors()
	if c.Name != "file_descriptors" {
		t.Errorf("Name = %q", c.Name)
	}
	if !c.Warning && c.Actual <= 0 {
		t.Errorf("Actual = %d, want > 0", c.Actual)
	}
}

func TestCheckListenAddr(t *testing.T) {
	t.Run("free", func(t *testing.T) {
		if c := checkListenAddr("127.0.0.1:0"); !c.Passed {
			t.Errorf("free address failed: %s", c.Message)
		}
	})

	t.Run("in use", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer ln.Close()

		c := checkListenAddr(ln.Addr().String())
		if c.Passed {
			t.Error("address in use should fail")
		}
	})
}

func TestCheckServer(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer ln.Close()
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				conn.Close()
			}
		}()

		c := checkServer(ln.Addr().String(), time.Second)
		if !c.Passed || c.Warning {
			t.Errorf("reachable server: %+v", c)
		}
	})

	t.Run("unreachable is a warning", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		c := checkServer(addr, 500*time.Millisecond)
		if !c.Passed || !c.Warning {
			t.Errorf("unreachable server should pass with warning: %+v", c)
		}
		if !strings.Contains(c.Message, addr) {
			t.Errorf("message should mention %s: %q", addr, c.Message)
		}
	})
}

func TestRunAll(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	result := RunAll(Options{
		ServerAddr:  "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MetricsAddr: ln.Addr().String(),
	})

	names := map[string]bool{}
	for _, c := range result.Checks {
		names[c.Name] = true
	}
	for _, want := range []string{"file_descriptors", "metrics_listen", "server"} {
		if !names[want] {
			t.Errorf("missing check %s", want)
		}
	}
	if result.Passed {
		t.Error("metrics address in use should fail the run")
	}

	failed := result.Failed()
	if len(failed) == 0 || failed[0].Name != "metrics_listen" {
		t.Errorf("Failed() = %+v", failed)
	}
}

func TestRunAll_SkipsUnsetChecks(t *testing.T) {
	result := RunAll(Options{})
	if len(result.Checks) != 1 {
		t.Errorf("checks = %d, want only file_descriptors", len(result.Checks))
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, &Result{
		Checks: []Check{
			{Name: "metrics_listen", Message: "cannot listen"},
			{Name: "server", Passed: true, Warning: true, Message: "unreachable"},
		},
	})

	out := buf.String()
	for _, want := range []string{"Preflight checks:", "cannot listen", "Fix: choose another -metrics", "CHANMON_SERVER"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSuggestFix(t *testing.T) {
	for _, name := range []string{"file_descriptors", "metrics_listen", "server"} {
		if suggestFix(name) == "" {
			t.Errorf("suggestFix(%q) is empty", name)
		}
	}
	if suggestFix("unknown") != "" {
		t.Error("unknown check should have no suggestion")
	}
}
