package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/transport/hubspot"
	"github.com/westmoney/batchsync/internal/usecase/batchsync"
)

type recordingClient struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
	cfg    hubspot.Config
}

func (c *recordingClient) Apply(_ context.Context, id string, _ field.Field, _ field.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, id)
	return c.failOn[id]
}

func testDeps(client *recordingClient) Deps {
	return Deps{
		NewClient: func(cfg hubspot.Config) batchsync.Client {
			client.cfg = cfg
			return client
		},
		NewID: func() string { return "01TESTBATCH" },
		Now:   func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		LookupEnv: func(key string) (string, bool) {
			if key == "HUBSPOT_TOKEN" {
				return "pat-env", true
			}
			return "", false
		},
	}
}

func execCmd(t *testing.T, deps Deps, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmdWithDeps(deps)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

var fastFlags = []string{"--base-delay", "1ms", "--max-delay", "2ms", "--max-attempts", "2"}

func decodeReport(t *testing.T, s string) Report {
	t.Helper()
	var r Report
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		t.Fatalf("decode report: %v\n%s", err, s)
	}
	return r
}

func TestRun_PartialFailureExitsZero(t *testing.T) {
	client := &recordingClient{failOn: map[string]error{
		"c2": batch.Terminal("contact not found", nil),
	}}
	args := append([]string{"run", "--field", "whatsapp_consent", "--value", "granted", "--ids", "c1,c2,c3"}, fastFlags...)

	out, _, err := execCmd(t, testDeps(client), "", args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code := ExitCode(err); code != ExitOK {
		t.Errorf("exit code: got %d", code)
	}

	r := decodeReport(t, out)
	if r.BatchID != "01TESTBATCH" || r.Total != 3 || r.Success != 2 || r.Failed != 1 {
		t.Errorf("unexpected report: %+v", r)
	}
	if len(r.Errors) != 1 || r.Errors[0].ID != "c2" || r.Errors[0].Kind != "terminal" {
		t.Errorf("errors: %+v", r.Errors)
	}
	if client.cfg.Token != "pat-env" {
		t.Errorf("token from env: got %q", client.cfg.Token)
	}
}

func TestRun_FailOnError(t *testing.T) {
	client := &recordingClient{failOn: map[string]error{"c1": batch.Terminal("forbidden", nil)}}
	args := append([]string{"run", "--fail-on-error", "--field", "lifecycle_stage", "--value", "lead", "--ids", "c1"}, fastFlags...)

	_, _, err := execCmd(t, testDeps(client), "", args...)
	if code := ExitCode(err); code != ExitFailures {
		t.Fatalf("exit code: got %d (err %v)", code, err)
	}
}

func TestRun_ValidationExitsOne(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown field", []string{"run", "--field", "nope", "--value", "x", "--ids", "c1"}},
		{"bad value", []string{"run", "--field", "whatsapp_consent", "--value", "maybe", "--ids", "c1"}},
		{"no targets", []string{"run", "--field", "whatsapp_consent", "--value", "granted"}},
		{"missing required flag", []string{"run", "--field", "whatsapp_consent"}},
		{"bad policy", []string{"run", "--field", "whatsapp_consent", "--value", "granted", "--ids", "c1", "--max-attempts", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &recordingClient{}
			_, _, err := execCmd(t, testDeps(client), "", tt.args...)
			if code := ExitCode(err); code != ExitInvalid {
				t.Fatalf("exit code: got %d (err %v)", code, err)
			}
			if len(client.calls) != 0 {
				t.Errorf("no calls expected, got %v", client.calls)
			}
		})
	}
}

func TestRun_MissingToken(t *testing.T) {
	deps := testDeps(&recordingClient{})
	deps.LookupEnv = func(string) (string, bool) { return "", false }

	_, _, err := execCmd(t, deps, "", "run", "--field", "whatsapp_consent", "--value", "granted", "--ids", "c1")
	if code := ExitCode(err); code != ExitInvalid {
		t.Fatalf("exit code: got %d", code)
	}
	if !strings.Contains(err.Error(), "HUBSPOT_TOKEN") {
		t.Errorf("error should mention HUBSPOT_TOKEN: %v", err)
	}
}

func TestRun_IDsFromStdin(t *testing.T) {
	client := &recordingClient{}
	stdin := "# exported contacts\nc1\n\n  c2  \nc1\n"

	out, _, err := execCmd(t, testDeps(client), stdin,
		"run", "--token", "pat-flag", "--field", "whatsapp_consent_status", "--value", "opted_in", "--ids-file", "-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r := decodeReport(t, out); r.Total != 2 || r.Success != 2 {
		t.Errorf("duplicates should collapse: %+v", r)
	}
	if client.cfg.Token != "pat-flag" {
		t.Errorf("flag token should win: got %q", client.cfg.Token)
	}
}

func TestRetry_RerunsOnlyFailures(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")

	client := &recordingClient{failOn: map[string]error{
		"c2": batch.Retryable("rate limited", nil),
		"c3": batch.Terminal("invalid email", nil),
	}}
	args := append([]string{"run", "--out", first, "--field", "whatsapp_consent", "--value", "revoked", "--ids", "c1,c2,c3"}, fastFlags...)
	if _, _, err := execCmd(t, testDeps(client), "", args...); err != nil {
		t.Fatalf("first run: %v", err)
	}

	retryClient := &recordingClient{}
	out, _, err := execCmd(t, testDeps(retryClient), "", append([]string{"retry", "--from", first}, fastFlags...)...)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}

	r := decodeReport(t, out)
	if r.ParentID != "01TESTBATCH" {
		t.Errorf("parent id: got %q", r.ParentID)
	}
	if r.Field != "whatsapp_consent" || r.Value != "revoked" || r.Total != 2 || r.Success != 2 {
		t.Errorf("unexpected retry report: %+v", r)
	}
	if len(retryClient.calls) != 2 {
		t.Errorf("retry calls: got %v", retryClient.calls)
	}
}

func TestRetry_NothingToRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.json")
	clean := Report{BatchID: "01X", Field: "whatsapp_consent", Value: "granted", Total: 1, Success: 1, Errors: []ReportError{}}
	data, _ := json.Marshal(clean)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	client := &recordingClient{}
	out, errOut, err := execCmd(t, testDeps(client), "", "retry", "--from", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" || !strings.Contains(errOut, "nothing to retry") {
		t.Errorf("stdout %q stderr %q", out, errOut)
	}
	if len(client.calls) != 0 {
		t.Errorf("no calls expected")
	}
}

func TestRetry_BadFile(t *testing.T) {
	_, _, err := execCmd(t, testDeps(&recordingClient{}), "", "retry", "--from", filepath.Join(t.TempDir(), "missing.json"))
	if code := ExitCode(err); code != ExitInvalid {
		t.Fatalf("exit code: got %d", code)
	}
}

func TestFields(t *testing.T) {
	out, _, err := execCmd(t, testDeps(&recordingClient{}), "", "fields")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range field.All() {
		if !strings.Contains(out, f.String()+": ") {
			t.Errorf("missing %s in output:\n%s", f, out)
		}
	}
}

func TestVersion(t *testing.T) {
	out, _, err := execCmd(t, testDeps(&recordingClient{}), "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "syncctl dev") {
		t.Errorf("version output: %q", out)
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != ExitOK {
		t.Error("nil should be ExitOK")
	}
	if ExitCode(errors.New("cobra usage error")) != ExitInvalid {
		t.Error("plain error should be ExitInvalid")
	}
	wrapped := &ExitError{Code: ExitFailures, Err: errors.New("2 failed")}
	if ExitCode(wrapped) != ExitFailures {
		t.Error("ExitError code not honored")
	}
}

func TestSaveReport_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	want := Report{
		BatchID: "01B", Field: "whatsapp_consent", Value: "granted", Total: 2, Success: 1, Failed: 1,
		Errors: []ReportError{{ID: "c2", Kind: "terminal", Message: "404", Attempts: 1}},
	}
	if err := saveReport(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := readReport(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.BatchID != want.BatchID || len(got.Errors) != 1 || got.Errors[0].ID != "c2" {
		t.Errorf("round trip: got %+v", got)
	}
}

func TestSaveReport_WriteErrorSurfaces(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	if err := saveReport("/dev/full", Report{BatchID: "01B"}); err == nil {
		t.Fatal("expected error writing to a full device")
	}
}
