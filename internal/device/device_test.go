package device

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"os/exec"
	"testing"
)

// mockExecCommand returns a command that re-runs the test binary as a
// helper printing output and exiting with exitCode.
func mockExecCommand(output string, exitCode int) func(context.Context, string, ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			"MOCK_OUTPUT=" + output,
			"MOCK_EXIT_CODE=" + string(rune('0'+exitCode)),
		}
		return cmd
	}
}

// TestHelperProcess is not a real test. It is used as a helper process
// by mockExecCommand to simulate getprop and ps.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	_, _ = os.Stdout.WriteString(os.Getenv("MOCK_OUTPUT"))
	if os.Getenv("MOCK_EXIT_CODE") == "1" {
		os.Exit(1)
	}
	os.Exit(0)
}

func TestGetprop_Property(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		exitCode int
		want     string
		wantOK   bool
	}{
		{name: "value", output: "5555\n", want: "5555", wantOK: true},
		{name: "carriage return", output: "5555\r\n", want: "5555", wantOK: true},
		{name: "first line only", output: "abc\ndef\n", want: "abc", wantOK: true},
		{name: "empty", output: "\n", wantOK: false},
		{name: "no output", output: "", wantOK: false},
		{name: "command fails", output: "", exitCode: 1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Getprop{execCommand: mockExecCommand(tt.output, tt.exitCode)}
			got, ok := g.Property(context.Background(), "service.adb.tcp.port")
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Property() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestProcessTable_FindProcess(t *testing.T) {
	procs := []ProcessInfo{
		{Pid: 1, Name: "init", Cmdline: "/init"},
		{Pid: 311, Name: "logd", Cmdline: "/system/bin/logd"},
		{Pid: 420, Name: "adbd-helper", Cmdline: "/sbin/adbd --root_seclabel=u:r:su:s0"},
	}
	table := &ProcessTable{
		listProcesses: func(context.Context) ([]ProcessInfo, error) { return procs, nil },
		execCommand:   mockExecCommand("", 1),
	}

	if pid, ok := table.FindProcess(context.Background(), "adbd"); !ok || pid != 420 {
		t.Errorf("FindProcess(adbd) = (%d, %v), want (420, true)", pid, ok)
	}
	if pid, ok := table.FindProcess(context.Background(), "logd"); !ok || pid != 311 {
		t.Errorf("FindProcess(logd) = (%d, %v), want (311, true)", pid, ok)
	}
	if _, ok := table.FindProcess(context.Background(), "zygote"); ok {
		t.Error("FindProcess(zygote) should not find anything")
	}
}

func TestProcessTable_FallsBackToPs(t *testing.T) {
	psOut := "USER     PID   PPID  VSIZE  RSS     WCHAN    PC        NAME\n" +
		"root      1337  1     4588   216   ffffffff 00000000 S /sbin/adbd\n"
	table := &ProcessTable{
		listProcesses: func(context.Context) ([]ProcessInfo, error) { return nil, errors.New("permission denied") },
		execCommand:   mockExecCommand(psOut, 0),
	}

	if pid, ok := table.FindProcess(context.Background(), "adbd"); !ok || pid != 1337 {
		t.Errorf("FindProcess() = (%d, %v), want (1337, true)", pid, ok)
	}
}

func TestParsePsOutput(t *testing.T) {
	tests := []struct {
		name   string
		out    string
		want   int
		wantOK bool
	}{
		{name: "header only", out: "USER PID PPID NAME\n", wantOK: false},
		{name: "match", out: "shell  842 1 /system/bin/adbd\n", want: 842, wantOK: true},
		{name: "non numeric pid", out: "shell  x 1 /system/bin/adbd\n", wantOK: false},
		{name: "name without slash", out: "shell  842 1 adbd\n", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePsOutput([]byte(tt.out), "adbd")
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parsePsOutput() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseInterfaceSpec(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		prefer6 bool
		wantOK  bool
	}{
		{spec: "eth0", name: "eth0", wantOK: true},
		{spec: "eth0:4", name: "eth0", wantOK: true},
		{spec: "eth0:6", name: "eth0", prefer6: true, wantOK: true},
		{spec: "eth0:5", wantOK: false},
		{spec: "eth0:", wantOK: false},
		{spec: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			name, prefer6, ok := ParseInterfaceSpec(tt.spec)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (name != tt.name || prefer6 != tt.prefer6) {
				t.Errorf("got (%q, %v), want (%q, %v)", name, prefer6, tt.name, tt.prefer6)
			}
		})
	}
}

func TestSelectAddress(t *testing.T) {
	tests := []struct {
		name    string
		addrs   []string
		prefer6 bool
		want    string
	}{
		{
			name:  "last ipv4 wins",
			addrs: []string{"fe80::1%wlan0/64", "10.0.0.2/24", "10.0.0.3/24"},
			want:  "10.0.0.3",
		},
		{
			name:    "last ipv6 wins",
			addrs:   []string{"fe80::1/64", "10.0.0.2/24", "2001:db8::7/64"},
			prefer6: true,
			want:    "2001:db8::7",
		},
		{
			name:    "no ipv6 keeps first seen",
			addrs:   []string{"10.0.0.2/24", "10.0.0.3/24"},
			prefer6: true,
			want:    "10.0.0.2",
		},
		{
			name:  "no ipv4 keeps first seen",
			addrs: []string{"fe80::1/64", "2001:db8::7/64"},
			want:  "fe80::1",
		},
		{
			name:  "zone stripped",
			addrs: []string{"fe80::abcd%eth0"},
			want:  "fe80::abcd",
		},
		{name: "none", addrs: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectAddress(tt.addrs, tt.prefer6); got != tt.want {
				t.Errorf("SelectAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatIPv4(t *testing.T) {
	if got := FormatIPv4(0x0501a8c0); got != "192.168.1.5" {
		t.Errorf("FormatIPv4() = %q, want 192.168.1.5", got)
	}
	addr := netip.MustParseAddr("10.20.30.40")
	if got := FormatIPv4(PackIPv4(addr)); got != "10.20.30.40" {
		t.Errorf("FormatIPv4(PackIPv4()) = %q", got)
	}
}

func TestNetResolver_Resolve(t *testing.T) {
	ifaces := []Interface{
		{Name: "lo", Addrs: []string{"127.0.0.1/8", "::1/128"}},
		{Name: "wlan0", Addrs: []string{"fe80::2/64", "192.168.1.5/24"}},
		{Name: "rmnet0", Addrs: nil},
	}
	r := &NetResolver{
		WifiInterface: "wlan0",
		interfaces:    func(context.Context) ([]Interface, error) { return ifaces, nil },
	}
	ctx := context.Background()

	tests := []struct {
		spec   string
		want   string
		wantOK bool
	}{
		{spec: WifiSpec, want: "192.168.1.5", wantOK: true},
		{spec: "wlan0:6", want: "fe80::2", wantOK: true},
		{spec: "lo", want: "127.0.0.1", wantOK: true},
		{spec: "rmnet0", wantOK: false},
		{spec: "eth9", wantOK: false},
		{spec: "lo:x", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, ok := r.Resolve(ctx, tt.spec)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.spec, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	r.WifiInterface = "rmnet0"
	if r.Resolves(WifiSpec) {
		t.Error("WiFi without an IPv4 address should not resolve")
	}
}
