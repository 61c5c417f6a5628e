package dictionary

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewLocalUsesBuiltInList(t *testing.T) {
	l := NewLocal()
	if l.Len() < 100 {
		t.Fatalf("expected built-in list, got %d words", l.Len())
	}
	for _, w := range []string{"apple", "Quartz", " zebra "} {
		if ok, _ := l.Lookup(context.Background(), w); !ok {
			t.Fatalf("expected %q to be known", w)
		}
	}
	if ok, _ := l.Lookup(context.Background(), "xqzvt"); ok {
		t.Fatal("expected unknown word")
	}
}

func TestLoadLocalSkipsCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("# list\nAlpha\n\nbeta\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := LoadLocal(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 words, got %d", l.Len())
	}
	if ok, _ := l.Lookup(context.Background(), "alpha"); !ok {
		t.Fatal("alpha missing")
	}
}

func TestLoadLocalMissingFile(t *testing.T) {
	if _, err := LoadLocal(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("alpha\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := LoadLocal(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := l.Watch(ctx); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := os.WriteFile(path, []byte("alpha\ngamma\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ok, _ := l.Lookup(ctx, "gamma"); ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("word list was not reloaded")
}
