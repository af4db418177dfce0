package repl

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/manash/visionary/internal/display"
	"github.com/manash/visionary/internal/generation"
	"github.com/manash/visionary/internal/history"
	"github.com/manash/visionary/internal/image"
	"github.com/manash/visionary/internal/notify"
	"github.com/manash/visionary/internal/storage"
	"github.com/manash/visionary/pkg/models"
)

type mockProvider struct {
	generateFunc func(ctx context.Context, req *models.Request) (*models.Response, error)
	calls        int
}

func (m *mockProvider) Name() models.ProviderType {
	return models.ProviderFal
}

func (m *mockProvider) Generate(ctx context.Context, req *models.Request) (*models.Response, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &models.Response{
		Images: []models.ImageRef{{URL: fmt.Sprintf("https://fal.media/files/%d.png", m.calls)}},
	}, nil
}

func testREPL(t *testing.T, input string, p *mockProvider) (*REPL, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	store := history.Open(context.Background(), storage.NewMemory())
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	r := New(&Config{
		In:       strings.NewReader(input),
		Out:      out,
		Err:      errBuf,
		Session:  generation.NewSession(p, store),
		Renderer: display.New(out),
		Fetcher:  image.NewFetcher(),
		Notifier: notify.New(time.Minute),
	})
	return r, out, errBuf
}

func TestREPL_QuitStopsLoop(t *testing.T) {
	r, out, _ := testREPL(t, "quit\ngenerate never runs\n", &mockProvider{})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Goodbye!") {
		t.Error("Run() output missing goodbye message")
	}
}

func TestREPL_UnknownCommand(t *testing.T) {
	r, _, errBuf := testREPL(t, "teleport\nquit\n", &mockProvider{})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(errBuf.String(), "unknown command: teleport") {
		t.Errorf("stderr = %q, want unknown command error", errBuf.String())
	}
}

func TestREPL_GenerateAddsToHistory(t *testing.T) {
	p := &mockProvider{}
	r, out, _ := testREPL(t, "generate a red fox\nquit\n", p)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if p.calls != 1 {
		t.Errorf("backend calls = %d, want 1", p.calls)
	}

	list := r.session.History().List()
	if len(list) != 1 {
		t.Fatalf("history len = %d, want 1", len(list))
	}
	if list[0].Prompt != "a red fox" {
		t.Errorf("history head prompt = %q, want %q", list[0].Prompt, "a red fox")
	}
	if !strings.Contains(out.String(), "https://fal.media/files/1.png") {
		t.Error("output missing generated image URL")
	}
}

func TestREPL_GenerateRequiresPrompt(t *testing.T) {
	p := &mockProvider{}
	r, _, errBuf := testREPL(t, "generate\nquit\n", p)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.calls != 0 {
		t.Errorf("backend calls = %d, want 0 for empty prompt", p.calls)
	}
	if !strings.Contains(errBuf.String(), "usage: generate <prompt>") {
		t.Errorf("stderr = %q, want usage error", errBuf.String())
	}
}

func TestREPL_GenerateFailureKeepsHistory(t *testing.T) {
	p := &mockProvider{
		generateFunc: func(context.Context, *models.Request) (*models.Response, error) {
			return nil, fmt.Errorf("backend down")
		},
	}
	r, _, errBuf := testREPL(t, "generate a red fox\nquit\n", p)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := r.session.History().Len(); got != 0 {
		t.Errorf("history len = %d, want 0 after failure", got)
	}
	if !strings.Contains(errBuf.String(), "generation failed") {
		t.Errorf("stderr = %q, want generation failure", errBuf.String())
	}
}

func TestREPL_HistoryCommand(t *testing.T) {
	r, out, _ := testREPL(t, "generate a red fox\nhistory\nquit\n", &mockProvider{})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "a red fox") {
		t.Error("history output missing prompt")
	}
}

func TestREPL_HistoryEmpty(t *testing.T) {
	r, out, _ := testREPL(t, "history\nquit\n", &mockProvider{})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "No images in history yet") {
		t.Error("history output missing empty-state message")
	}
}

func TestREPL_DeleteFiresNotification(t *testing.T) {
	r, out, _ := testREPL(t, "generate a red fox\nquit\n", &mockProvider{})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	id := r.session.History().List()[0].ID

	r2 := New(&Config{
		In:       strings.NewReader("delete " + id + "\nquit\n"),
		Out:      out,
		Err:      &bytes.Buffer{},
		Session:  r.session,
		Renderer: display.New(out),
		Fetcher:  image.NewFetcher(),
		Notifier: notify.New(time.Minute),
	})
	out.Reset()
	if err := r2.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := r.session.History().Len(); got != 0 {
		t.Errorf("history len = %d, want 0 after delete", got)
	}
	if !strings.Contains(out.String(), RemovedMessage) {
		t.Errorf("output = %q, want removal notification", out.String())
	}

	// The live notification shows up ahead of the next prompt.
	if note, ok := r2.notifier.Current(); !ok || note.Message != RemovedMessage {
		t.Errorf("notifier.Current() = %v, %v; want live removal notification", note, ok)
	}
}

func TestREPL_DeleteUnknownID(t *testing.T) {
	r, _, errBuf := testREPL(t, "delete nope\nquit\n", &mockProvider{})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(errBuf.String(), "no history entry matches") {
		t.Errorf("stderr = %q, want no-match error", errBuf.String())
	}
}

func TestREPL_DeleteByPrefix(t *testing.T) {
	r, _, _ := testREPL(t, "generate a red fox\nquit\n", &mockProvider{})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	id := r.session.History().List()[0].ID

	img, err := r.resolveEntry(id[:8])
	if err != nil {
		t.Fatalf("resolveEntry(%q) error = %v", id[:8], err)
	}
	if img.ID != id {
		t.Errorf("resolveEntry() id = %q, want %q", img.ID, id)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"generate a red fox", []string{"generate", "a", "red", "fox"}},
		{`delete "some id"`, []string{"delete", "some id"}},
		{"  history  ", []string{"history"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := parseCommand(tt.line)
		if len(got) != len(tt.want) {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.line, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseCommand(%q)[%d] = %q, want %q", tt.line, i, got[i], tt.want[i])
			}
		}
	}
}
