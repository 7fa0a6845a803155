package transfer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"baler/internal/testsupport"
)

func setHelperCommand(t *testing.T, mode string, captured *[][]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append(*captured, append([]string{name}, args...))
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("RCLONE_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestRcloneListParsesObjects(t *testing.T) {
	var captured [][]string
	setHelperCommand(t, "lsjson", &captured)

	cfg := testsupport.NewConfig(t)
	cfg.Store.Source = "remote:media/incoming"
	client := NewRclone(cfg)

	objects, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 files, got %d", len(objects))
	}
	if objects[0].Path != "season1/episode1.mkv" {
		t.Fatalf("expected sorted paths, got %q first", objects[0].Path)
	}
	if objects[1].Name != "movie.mkv" || objects[1].Size != 1000 {
		t.Fatalf("unexpected object: %+v", objects[1])
	}

	if len(captured) != 1 {
		t.Fatalf("expected 1 command, got %d", len(captured))
	}
	args := captured[0]
	want := []string{"rclone", "lsjson", "--recursive", "--files-only", "remote:media/incoming"}
	if len(args) != len(want) {
		t.Fatalf("unexpected args: %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: got %q, want %q", i, args[i], want[i])
		}
	}
}

func TestRcloneRetrieveInvokesCopyto(t *testing.T) {
	var captured [][]string
	setHelperCommand(t, "success", &captured)

	cfg := testsupport.NewConfig(t)
	client := NewRclone(cfg)

	if err := client.Retrieve(context.Background(), "remote:media/movie.mkv", "/tmp/staging/movie.mkv"); err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}

	if len(captured) != 1 {
		t.Fatalf("expected 1 command, got %d", len(captured))
	}
	args := captured[0]
	if args[1] != "copyto" || args[2] != "remote:media/movie.mkv" || args[3] != "/tmp/staging/movie.mkv" {
		t.Fatalf("unexpected copyto args: %v", args)
	}
}

func TestRclonePublishJoinsDestination(t *testing.T) {
	var captured [][]string
	setHelperCommand(t, "success", &captured)

	cfg := testsupport.NewConfig(t)
	cfg.Store.Destination = "remote:media/encoded/"
	client := NewRclone(cfg)

	if err := client.Publish(context.Background(), "/tmp/out/movie.mkv", "season1/movie.mkv"); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	args := captured[0]
	if args[3] != "remote:media/encoded/season1/movie.mkv" {
		t.Fatalf("unexpected destination: %v", args)
	}
}

func TestRcloneSurfacesStderr(t *testing.T) {
	setHelperCommand(t, "failure", nil)

	cfg := testsupport.NewConfig(t)
	client := NewRclone(cfg)

	err := client.Retrieve(context.Background(), "remote:media/movie.mkv", "/tmp/movie.mkv")
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if got := err.Error(); !strings.Contains(got, "directory not found") {
		t.Fatalf("expected stderr detail in error, got %q", got)
	}
}

func TestRcloneRetrieveRequiresArguments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := NewRclone(cfg)

	if err := client.Retrieve(context.Background(), "", "/tmp/x"); err == nil {
		t.Fatal("expected error for empty locator")
	}
	if err := client.Retrieve(context.Background(), "remote:x", ""); err == nil {
		t.Fatal("expected error for empty local path")
	}
}

func TestJoinLocator(t *testing.T) {
	cases := []struct {
		root string
		rel  string
		want string
	}{
		{"remote:media", "a/b.mkv", "remote:media/a/b.mkv"},
		{"remote:media/", "/a.mkv", "remote:media/a.mkv"},
		{"/mnt/source", "clip.mkv", "/mnt/source/clip.mkv"},
		{"remote:media", "", "remote:media"},
	}
	for _, tc := range cases {
		if got := JoinLocator(tc.root, tc.rel); got != tc.want {
			t.Fatalf("JoinLocator(%q, %q) = %q, want %q", tc.root, tc.rel, got, tc.want)
		}
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("RCLONE_HELPER_MODE") {
	case "lsjson":
		fmt.Println(`[
  {"Path":"movie.mkv","Name":"movie.mkv","Size":1000,"ModTime":"2026-01-02T10:00:00Z","IsDir":false},
  {"Path":"season1","Name":"season1","Size":-1,"ModTime":"2026-01-01T00:00:00Z","IsDir":true},
  {"Path":"season1/episode1.mkv","Name":"episode1.mkv","Size":500,"ModTime":"2026-01-03T08:30:00Z","IsDir":false}
]`)
		os.Exit(0)
	case "success":
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "2026/01/02 10:00:00 ERROR : directory not found")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
