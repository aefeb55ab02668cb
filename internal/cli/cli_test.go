package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/credential"
)

type harness struct {
	t       *testing.T
	config  string
	secrets credential.SecretStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	body := "database:\n  path: " + filepath.Join(dir, "taskflow.db") + "\n"
	if err := os.WriteFile(config, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return &harness{t: t, config: config, secrets: credential.NewMemory()}
}

// run executes one command line in a fresh process-like environment that
// shares the database and secrets with earlier runs.
func (h *harness) run(args ...string) (stdout, stderr string, err error) {
	h.t.Helper()
	env := &Env{
		secrets: h.secrets,
		opts:    []app.Option{app.WithLogger(zap.NewNop())},
	}
	cmd := newRootCmd(env)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", h.config}, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v\nstderr: %s", args, err, errOut)
	}
	return out
}

func (h *harness) signUp() {
	h.t.Helper()
	h.mustRun("auth", "signup", "--email", "cli@example.com", "--password", "hunter22hunter")
}

// addTask creates a task and returns its id.
func (h *harness) addTask(args ...string) string {
	h.t.Helper()
	out := h.mustRun(append([]string{"--json", "task", "add"}, args...)...)
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		h.t.Fatalf("decoding %q: %v", out, err)
	}
	if resp.Data.ID == "" {
		h.t.Fatalf("no id in %q", out)
	}
	return resp.Data.ID
}

func TestCommandsRequireSession(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("task", "list")
	if err != errNotSignedIn {
		t.Fatalf("expected errNotSignedIn; got %v", err)
	}
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	h.signUp()

	if out := h.mustRun("auth", "whoami"); !strings.Contains(out, "cli@example.com") {
		t.Fatalf("whoami = %q", out)
	}
	h.mustRun("auth", "logout")
	if _, _, err := h.run("auth", "whoami"); err != errNotSignedIn {
		t.Fatalf("expected errNotSignedIn after logout; got %v", err)
	}

	if _, _, err := h.run("auth", "login", "--email", "cli@example.com", "--password", "wrong-password"); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	h.mustRun("auth", "login", "--email", "cli@example.com", "--password", "hunter22hunter")
	if out := h.mustRun("auth", "whoami"); !strings.Contains(out, "cli@example.com") {
		t.Fatalf("whoami after login = %q", out)
	}
}

func TestTaskLifecycle(t *testing.T) {
	h := newHarness(t)
	h.signUp()

	h.mustRun("category", "add", "Errands", "--color", "green")
	id := h.addTask("Buy", "stamps", "--priority", "high", "--category", "errands")

	out := h.mustRun("task", "list")
	for _, want := range []string{shortID(id), "Buy stamps", "high", "Errands"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list missing %q:\n%s", want, out)
		}
	}

	_, notices, err := h.run("task", "done", shortID(id))
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if !strings.Contains(notices, "Task Completed") {
		t.Fatalf("expected completion notice on stderr; got %q", notices)
	}

	if out := h.mustRun("task", "list", "--pending"); !strings.Contains(out, "No tasks.") {
		t.Fatalf("expected no pending tasks:\n%s", out)
	}

	h.mustRun("task", "edit", shortID(id), "--title", "Buy more stamps", "--clear-category")
	h.mustRun("task", "rm", shortID(id))
	if out := h.mustRun("task", "list"); !strings.Contains(out, "No tasks.") {
		t.Fatalf("expected deleted task hidden:\n%s", out)
	}
	if out := h.mustRun("task", "list", "--deleted"); !strings.Contains(out, "(deleted)") {
		t.Fatalf("expected deleted marker:\n%s", out)
	}

	h.mustRun("task", "restore", shortID(id))
	out = h.mustRun("task", "show", shortID(id))
	if !strings.Contains(out, "Buy more stamps") || !strings.Contains(out, "completed") {
		t.Fatalf("unexpected show output:\n%s", out)
	}
}

func TestTaskCreateNotice(t *testing.T) {
	h := newHarness(t)
	h.signUp()

	_, notices, err := h.run("task", "add", "Water plants")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(notices, "New Task Created") {
		t.Fatalf("expected creation notice; got %q", notices)
	}

	h.mustRun("prefs", "set", "--reminders=false")
	if _, notices, _ = h.run("task", "add", "Feed cat"); strings.Contains(notices, "New Task Created") {
		t.Fatalf("expected no notice with reminders off; got %q", notices)
	}
}

func TestTaskValidation(t *testing.T) {
	h := newHarness(t)
	h.signUp()

	if _, _, err := h.run("task", "add", "x", "--priority", "urgent"); err == nil {
		t.Fatalf("expected invalid priority to fail")
	}
	if _, _, err := h.run("task", "add", "x", "--due", "next tuesday"); err == nil {
		t.Fatalf("expected invalid due date to fail")
	}
	if _, _, err := h.run("task", "done", "does-not-exist"); err == nil {
		t.Fatalf("expected unknown id to fail")
	}
}

func TestSubtasks(t *testing.T) {
	h := newHarness(t)
	h.signUp()
	id := h.addTask("Pack")

	h.mustRun("subtask", "add", shortID(id), "socks")
	h.mustRun("subtask", "add", shortID(id), "charger")

	out := h.mustRun("--json", "subtask", "list", shortID(id))
	var resp struct {
		Data []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Title != "socks" {
		t.Fatalf("unexpected subtasks: %+v", resp.Data)
	}

	if out := h.mustRun("subtask", "toggle", shortID(id), shortID(resp.Data[0].ID)); !strings.Contains(out, "(1/2)") {
		t.Fatalf("toggle output = %q", out)
	}
	if out := h.mustRun("subtask", "list", shortID(id)); !strings.Contains(out, "1/2 done (50%)") {
		t.Fatalf("list output:\n%s", out)
	}

	h.mustRun("subtask", "rm", shortID(id), shortID(resp.Data[1].ID))
	if out := h.mustRun("subtask", "list", shortID(id)); !strings.Contains(out, "1/1 done (100%)") {
		t.Fatalf("list after rm:\n%s", out)
	}
}

func TestNotificationsCheck(t *testing.T) {
	h := newHarness(t)
	h.signUp()

	if out := h.mustRun("notifications", "check"); !strings.Contains(out, "No reminders due.") {
		t.Fatalf("expected nothing due:\n%s", out)
	}

	soon := time.Now().Add(30 * time.Minute).Format("2006-01-02 15:04")
	past := time.Now().Add(-2 * time.Hour).Format("2006-01-02 15:04")
	h.addTask("Call dentist", "--due", soon)
	h.addTask("Pay rent", "--due", past)

	out, notices, err := h.run("notifications", "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{"Task Due Soon", "Call dentist", "Task Overdue", "Pay rent"} {
		if !strings.Contains(out, want) {
			t.Fatalf("check output missing %q:\n%s", want, out)
		}
	}
	if notices != "" {
		t.Fatalf("expected reported items not repeated on stderr; got %q", notices)
	}
}

func TestPrefs(t *testing.T) {
	h := newHarness(t)

	h.mustRun("prefs", "set", "--minutes", "15", "--completions=false")
	out := h.mustRun("--json", "prefs", "show")
	var resp struct {
		Data struct {
			TaskCompletions bool `json:"taskCompletions"`
			ReminderMinutes int  `json:"reminderMinutes"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Data.TaskCompletions || resp.Data.ReminderMinutes != 15 {
		t.Fatalf("preferences not persisted: %+v", resp.Data)
	}

	if _, _, err := h.run("prefs", "set"); err == nil {
		t.Fatalf("expected empty set to fail")
	}
	if _, _, err := h.run("prefs", "set", "--minutes", "0"); err == nil {
		t.Fatalf("expected zero minutes to fail")
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.signUp()
	id := h.addTask("One")
	h.addTask("Two")
	h.mustRun("task", "done", shortID(id))

	out := h.mustRun("--json", "stats")
	var resp struct {
		Data struct {
			Total          int     `json:"total"`
			Completed      int     `json:"completed"`
			CompletionRate float64 `json:"completion_rate"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if resp.Data.Total != 2 || resp.Data.Completed != 1 || resp.Data.CompletionRate != 50 {
		t.Fatalf("unexpected stats: %+v", resp.Data)
	}
}

func TestConfigMailboxPassword(t *testing.T) {
	h := newHarness(t)
	h.mustRun("config", "mailbox-password", "--password", "s3cret")

	got, err := h.secrets.Get(app.MailboxPasswordKey)
	if err != nil || got != "s3cret" {
		t.Fatalf("stored password = %q, %v", got, err)
	}

	if _, _, err := h.run("config", "init"); err == nil {
		t.Fatalf("expected init to refuse an existing file")
	}
}

func TestParseDue(t *testing.T) {
	d, err := parseDue("2026-11-02")
	if err != nil {
		t.Fatalf("parseDue: %v", err)
	}
	if d.Hour() != 23 || d.Minute() != 59 || d.Day() != 2 {
		t.Fatalf("bare date should mean end of day; got %v", d)
	}

	d, err = parseDue("2026-11-02 09:30")
	if err != nil || d.Hour() != 9 || d.Minute() != 30 {
		t.Fatalf("parseDue with time = %v, %v", d, err)
	}
}

func TestResolveID(t *testing.T) {
	ids := []string{"abc123", "abd456", "xyz789"}
	self := func(s string) string { return s }

	if got, err := resolveID(ids, self, "task", "abc"); err != nil || got != "abc123" {
		t.Fatalf("prefix = %q, %v", got, err)
	}
	if _, err := resolveID(ids, self, "task", "ab"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguity error; got %v", err)
	}
	if _, err := resolveID(ids, self, "task", "q"); err == nil {
		t.Fatalf("expected not found")
	}
}
