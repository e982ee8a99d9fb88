package release

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

// Helper function to create a git repo for testing
func createTestRepo(t *testing.T, dir string) {
	t.Helper()

	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@test.com")
	runGit(t, dir, "config", "user.name", "Test User")

	testFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(testFile, []byte("# Test Repo"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func addCommit(t *testing.T, dir, name, message string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(message), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", message)
}

func TestCheckReportsHistoryOnce(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)
	runGit(t, dir, "tag", "-a", "v0.1.0", "-m", "first release")

	insp := NewInspector(dir, 20)
	ctx := context.Background()

	events := insp.Check(ctx)
	var tags, commits int
	for _, ev := range events {
		switch ev.Kind {
		case KindTag:
			tags++
			if ev.RefName != "v0.1.0" {
				t.Errorf("tag ref = %q, want v0.1.0", ev.RefName)
			}
			if ev.Revision == "" {
				t.Error("tag event missing revision")
			}
		case KindCommit:
			commits++
			if ev.Message != "Initial commit" {
				t.Errorf("commit message = %q", ev.Message)
			}
		}
	}
	if tags != 1 || commits != 1 {
		t.Fatalf("got %d tags, %d commits, want 1 each", tags, commits)
	}

	// Everything already seen: second check is empty.
	if again := insp.Check(ctx); len(again) != 0 {
		t.Errorf("second check returned %d events, want 0", len(again))
	}
}

func TestCheckPicksUpNewActivity(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)

	insp := NewInspector(dir, 20)
	ctx := context.Background()
	insp.Prime(ctx)

	addCommit(t, dir, "feature.md", "Add feature notes")
	runGit(t, dir, "tag", "v0.2.0")

	events := insp.Check(ctx)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}

	var sawTag, sawCommit bool
	for _, ev := range events {
		switch ev.Kind {
		case KindTag:
			sawTag = ev.RefName == "v0.2.0"
		case KindCommit:
			sawCommit = ev.Message == "Add feature notes"
		}
	}
	if !sawTag || !sawCommit {
		t.Errorf("missing expected events: %+v", events)
	}
}

func TestCheckCommitsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)
	addCommit(t, dir, "a.md", "second commit")
	addCommit(t, dir, "b.md", "third commit")

	insp := NewInspector(dir, 20)
	events := insp.Check(context.Background())

	var messages []string
	for _, ev := range events {
		if ev.Kind == KindCommit {
			messages = append(messages, ev.Message)
		}
	}
	want := []string{"Initial commit", "second commit", "third commit"}
	if len(messages) != len(want) {
		t.Fatalf("got %d commits, want %d", len(messages), len(want))
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("commit[%d] = %q, want %q", i, messages[i], want[i])
		}
	}
}

func TestCheckNonRepoDirectory(t *testing.T) {
	insp := NewInspector(t.TempDir(), 20)
	if events := insp.Check(context.Background()); events != nil {
		t.Errorf("non-repo check returned %+v, want nil", events)
	}
}

func TestCheckDepthLimit(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)
	addCommit(t, dir, "a.md", "second commit")
	addCommit(t, dir, "b.md", "third commit")

	insp := NewInspector(dir, 2)
	var commits int
	for _, ev := range insp.Check(context.Background()) {
		if ev.Kind == KindCommit {
			commits++
		}
	}
	if commits != 2 {
		t.Errorf("got %d commits with depth 2, want 2", commits)
	}
}

func TestConcurrentChecks(t *testing.T) {
	dir := t.TempDir()
	createTestRepo(t, dir)

	insp := NewInspector(dir, 20)
	ctx := context.Background()

	// Concurrent callers collapse onto one inspection. Callers sharing a
	// flight all see its events; callers landing on a later flight see
	// nothing new. Nobody errors or double-reports within a flight.
	results := make(chan int, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- len(insp.Check(ctx))
		}()
	}
	wg.Wait()
	close(results)

	sawEvents := false
	for n := range results {
		if n > 1 {
			t.Errorf("caller saw %d events, want at most 1", n)
		}
		if n == 1 {
			sawEvents = true
		}
	}
	if !sawEvents {
		t.Error("no caller observed the initial commit")
	}
}
