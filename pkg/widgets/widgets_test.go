package widgets

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/random-panda/pkg/app"
)

// recordHandler keeps every log record for inspection.
type recordHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h *recordHandler) WithGroup(string) slog.Handler           { return h }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func (h *recordHandler) messages(level slog.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range h.records {
		if r.Level == level {
			out = append(out, r.Message)
		}
	}
	return out
}

// fakeFacts answers call n (1-based) with reply(n).
type fakeFacts struct {
	calls atomic.Int32
	reply func(n int) (string, error)
}

func (f *fakeFacts) Fact(ctx context.Context) (string, error) {
	n := int(f.calls.Add(1))
	return f.reply(n)
}

// fakeImages answers link call n with link(n) and downloads with picture.
type fakeImages struct {
	linkCalls  atomic.Int32
	imageCalls atomic.Int32
	link       func(n int) (string, error)
	picture    func(link string) (image.Image, error)
}

func (f *fakeImages) ImageLink(ctx context.Context) (string, error) {
	n := int(f.linkCalls.Add(1))
	return f.link(n)
}

func (f *fakeImages) Image(ctx context.Context, link string) (image.Image, error) {
	f.imageCalls.Add(1)
	if f.picture == nil {
		return solid(4, 4), nil
	}
	return f.picture(link)
}

// fakeRenderer draws every cell as '#'.
type fakeRenderer struct {
	calls int
	err   error
}

func (r *fakeRenderer) Render(source string, img image.Image, cols, rows int) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = strings.Repeat("#", cols)
	}
	return strings.Join(lines, "\n"), nil
}

func solid(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}
	return img
}

// run executes cmd and every command batched inside it, returning the
// resulting messages in order.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// runOne executes cmd and requires exactly one message.
func runOne(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	msgs := run(cmd)
	if len(msgs) != 1 {
		t.Fatalf("command produced %d messages, want 1: %#v", len(msgs), msgs)
	}
	return msgs[0]
}

func testOptions(h *recordHandler) Options {
	return Options{Context: context.Background(), Logger: slog.New(h)}
}

func constFact(s string) *fakeFacts {
	return &fakeFacts{reply: func(int) (string, error) { return s, nil }}
}

func constLink(s string) *fakeImages {
	return &fakeImages{link: func(int) (string, error) { return s, nil }}
}

var errNetwork = errors.New("network unreachable")

func TestSequence(t *testing.T) {
	s := sequence{}
	a, b := s.next(), s.next()
	if a != 1 || b != 2 || s.pending != 2 {
		t.Fatalf("next = %d,%d pending %d", a, b, s.pending)
	}
	if !s.done(a) {
		t.Error("without latestOnly every completion applies")
	}

	s = sequence{latestOnly: true}
	a, b = s.next(), s.next()
	if s.done(a) {
		t.Error("superseded completion should be stale")
	}
	if !s.done(b) {
		t.Error("latest completion should apply")
	}
	if s.pending != 0 {
		t.Errorf("pending = %d, want 0", s.pending)
	}
}

// The end-to-end panda scenario, driven through the composition root.
func TestPandaScenario(t *testing.T) {
	h := &recordHandler{}
	opts := testOptions(h)
	facts := constFact("Pandas eat bamboo.")
	images := constLink("http://x/panda.jpg")
	renderer := &fakeRenderer{}

	nav := NewNavBar(opts)
	fact := NewFactWidget(facts, opts)
	bg := NewBackgroundWidget(images, renderer, 0, opts)
	m := app.NewAppModel(app.DefaultConfig(), nav, fact, bg)

	update := func(msg tea.Msg) tea.Cmd {
		updated, cmd := m.Update(msg)
		m = updated.(app.AppModel)
		return cmd
	}

	// Mount: exactly one image link fetch, no fact fetch.
	for _, msg := range run(m.Init()) {
		for _, next := range run(update(msg)) {
			update(next)
		}
	}
	if got := images.linkCalls.Load(); got != 1 {
		t.Fatalf("image link calls on mount = %d, want 1", got)
	}
	if got := facts.calls.Load(); got != 0 {
		t.Fatalf("fact calls on mount = %d, want 0", got)
	}
	if bg.ImageURL() != "http://x/panda.jpg" {
		t.Errorf("background source = %q", bg.ImageURL())
	}
	if bg.Picture() == nil {
		t.Error("picture should be downloaded after the link resolves")
	}

	// The fact shortcut.
	for _, msg := range run(update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})) {
		update(msg)
	}
	if fact.Fact() != "Pandas eat bamboo." {
		t.Errorf("displayed fact = %q", fact.Fact())
	}

	update(tea.WindowSizeMsg{Width: 60, Height: 20})
	view := m.View()
	for _, want := range []string{"Random Panda", "panda fact", "Pandas eat bamboo.", "Panda Background", "####"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if n := h.count(slog.LevelError); n != 0 {
		t.Errorf("error records = %d, want 0", n)
	}
}

func TestFactNotFetchedOnMount(t *testing.T) {
	facts := constFact("x")
	w := NewFactWidget(facts, Options{})
	if cmd := w.Init(); cmd != nil {
		t.Error("fact widget must not fetch on mount")
	}
	if w.Fact() != "" {
		t.Errorf("initial fact = %q, want empty", w.Fact())
	}
	if facts.calls.Load() != 0 {
		t.Error("no fact request should have been made")
	}
}

func TestFactKeysRequest(t *testing.T) {
	facts := constFact("x")
	w := NewFactWidget(facts, Options{})
	for _, k := range []tea.KeyMsg{{Type: tea.KeyEnter}, {Type: tea.KeySpace, Runes: []rune(" ")}} {
		if cmd := w.HandleKey(k); cmd == nil {
			t.Errorf("%q should request a fact", k.String())
		}
	}
	if cmd := w.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}); cmd != nil {
		t.Error("other keys should do nothing")
	}
	if w.Pending() != 2 {
		t.Errorf("pending = %d, want 2", w.Pending())
	}
}

func TestFactLastCompletedWins(t *testing.T) {
	facts := &fakeFacts{reply: func(n int) (string, error) {
		return []string{"", "first", "second"}[n], nil
	}}
	w := NewFactWidget(facts, Options{})

	cmd1 := w.RequestFact()
	cmd2 := w.RequestFact()
	msg1 := runOne(t, cmd1)
	msg2 := runOne(t, cmd2)

	// The second request completes first; the first completes last.
	w.Update(msg2)
	if w.Fact() != "second" {
		t.Errorf("after first completion fact = %q", w.Fact())
	}
	w.Update(msg1)
	if w.Fact() != "first" {
		t.Errorf("last completion should win, fact = %q", w.Fact())
	}
	if w.Pending() != 0 {
		t.Errorf("pending = %d, want 0", w.Pending())
	}
}

func TestFactLatestOnlyDropsStale(t *testing.T) {
	facts := &fakeFacts{reply: func(n int) (string, error) {
		return []string{"", "first", "second"}[n], nil
	}}
	w := NewFactWidget(facts, Options{LatestOnly: true})

	cmd1 := w.RequestFact()
	cmd2 := w.RequestFact()
	msg1 := runOne(t, cmd1)
	msg2 := runOne(t, cmd2)

	w.Update(msg2)
	w.Update(msg1)
	if w.Fact() != "second" {
		t.Errorf("latest request should win, fact = %q", w.Fact())
	}
}

func TestFactTriggerWhilePendingKeepsBoth(t *testing.T) {
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	facts := &fakeFacts{reply: func(n int) (string, error) {
		started.Done()
		<-release
		return "fact", nil
	}}
	w := NewFactWidget(facts, Options{})

	cmd1 := w.RequestFact()
	cmd2 := w.RequestFact()
	results := make(chan tea.Msg, 2)
	go func() { results <- cmd1() }()
	go func() { results <- cmd2() }()
	started.Wait()
	close(release)

	for i := 0; i < 2; i++ {
		msg := <-results
		if ev, ok := msg.(app.FactLoadedEvent); !ok || ev.Err != nil {
			t.Fatalf("request %d: %#v", i, msg)
		}
		w.Update(msg)
	}
	if facts.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", facts.calls.Load())
	}
	if w.Fact() != "fact" || w.Pending() != 0 {
		t.Errorf("fact = %q pending = %d", w.Fact(), w.Pending())
	}
}

func TestFactFailureKeepsFactAndLogsOnce(t *testing.T) {
	h := &recordHandler{}
	facts := &fakeFacts{reply: func(n int) (string, error) {
		if n == 1 {
			return "Pandas eat bamboo.", nil
		}
		return "", errNetwork
	}}
	w := NewFactWidget(facts, testOptions(h))

	w.Update(runOne(t, w.RequestFact()))
	w.Update(runOne(t, w.RequestFact()))

	if w.Fact() != "Pandas eat bamboo." {
		t.Errorf("failure changed fact to %q", w.Fact())
	}
	if n := h.count(slog.LevelError); n != 1 {
		t.Errorf("error records = %d, want 1", n)
	}
}

func TestFactFailureDuringShutdownIsQuiet(t *testing.T) {
	h := &recordHandler{}
	ctx, cancel := context.WithCancel(context.Background())
	facts := &fakeFacts{reply: func(int) (string, error) { return "", context.Canceled }}
	w := NewFactWidget(facts, Options{Context: ctx, Logger: slog.New(h)})

	cmd := w.RequestFact()
	cancel()
	w.Update(runOne(t, cmd))
	if n := h.count(slog.LevelError); n != 0 {
		t.Errorf("error records = %d, want 0 after shutdown", n)
	}
}

func TestFactIgnoresOtherEvents(t *testing.T) {
	w := NewFactWidget(constFact("x"), Options{})
	w.Update(app.ImageLinkLoadedEvent{Seq: 1, Link: "http://x/panda.jpg"})
	if w.Fact() != "" {
		t.Errorf("fact widget applied a foreign event: %q", w.Fact())
	}
}

func TestFactView(t *testing.T) {
	w := NewFactWidget(constFact("x"), Options{})
	if got := w.View(40, 5); !strings.Contains(got, "panda fact") || strings.Count(got, "\n") != 0 {
		t.Errorf("empty view = %q, want only the button", got)
	}
	if w.HeightFor(40) != 1 {
		t.Errorf("empty HeightFor = %d, want 1", w.HeightFor(40))
	}

	w.Update(app.FactLoadedEvent{Seq: 1, Fact: "Giant pandas spend up to fourteen hours a day eating."})
	if h := w.HeightFor(20); h < 4 {
		t.Errorf("HeightFor(20) = %d, want button, blank and at least two wrapped lines", h)
	}
	view := w.View(20, w.HeightFor(20))
	if !strings.Contains(view, "fourteen") {
		t.Errorf("view missing fact: %q", view)
	}
}

func TestBackgroundFetchesOnceOnMount(t *testing.T) {
	images := constLink("http://x/panda.jpg")
	w := NewBackgroundWidget(images, &fakeRenderer{}, 0, Options{})

	cmd := w.Init()
	if cmd == nil {
		t.Fatal("background must fetch on mount")
	}
	if w.ImageURL() != "" {
		t.Error("no link before the request resolves")
	}
	if view := w.View(40, 10); strings.Contains(view, "\n") {
		t.Errorf("only the button should show before the link resolves, got %q", view)
	}

	msg := runOne(t, cmd)
	if images.linkCalls.Load() != 1 {
		t.Errorf("link calls = %d, want 1", images.linkCalls.Load())
	}
	download := w.Update(msg)
	if w.ImageURL() != "http://x/panda.jpg" {
		t.Errorf("ImageURL = %q", w.ImageURL())
	}
	if download == nil {
		t.Fatal("an adopted link should start a download")
	}
	w.Update(runOne(t, download))
	if w.Picture() == nil {
		t.Error("picture should be set after download")
	}
}

func TestBackgroundRefreshKeys(t *testing.T) {
	w := NewBackgroundWidget(constLink("l"), nil, 0, Options{})
	if w.HandleKey(tea.KeyMsg{Type: tea.KeyEnter}) == nil {
		t.Error("enter should refresh")
	}
	if w.Trigger() == nil {
		t.Error("Trigger should refresh")
	}
	if w.Pending() != 2 {
		t.Errorf("pending = %d, want 2", w.Pending())
	}
}

func TestBackgroundLastCompletedWins(t *testing.T) {
	images := &fakeImages{link: func(n int) (string, error) {
		return []string{"", "http://x/a.jpg", "http://x/b.jpg"}[n], nil
	}}
	w := NewBackgroundWidget(images, nil, 0, Options{})

	cmd1, cmd2 := w.Refresh(), w.Refresh()
	msg1, msg2 := runOne(t, cmd1), runOne(t, cmd2)
	w.Update(msg2)
	w.Update(msg1)
	if w.ImageURL() != "http://x/a.jpg" {
		t.Errorf("ImageURL = %q, want the last completed link", w.ImageURL())
	}
}

func TestBackgroundStalePictureIsDropped(t *testing.T) {
	images := &fakeImages{link: func(n int) (string, error) {
		return []string{"", "http://x/a.jpg", "http://x/b.jpg"}[n], nil
	}}
	w := NewBackgroundWidget(images, nil, 0, Options{})

	downloadA := w.Update(runOne(t, w.Refresh()))
	downloadB := w.Update(runOne(t, w.Refresh()))

	w.Update(runOne(t, downloadA))
	if w.Picture() != nil {
		t.Error("picture for a superseded link must not be shown")
	}
	w.Update(runOne(t, downloadB))
	if w.Picture() == nil {
		t.Error("picture for the current link should be shown")
	}
}

func TestBackgroundLinkFailureKeepsImageAndLogsOnce(t *testing.T) {
	h := &recordHandler{}
	images := &fakeImages{link: func(n int) (string, error) {
		if n == 1 {
			return "http://x/panda.jpg", nil
		}
		return "", errNetwork
	}}
	w := NewBackgroundWidget(images, nil, 0, testOptions(h))

	w.Update(runOne(t, w.Init()))
	if cmd := w.Update(runOne(t, w.Refresh())); cmd != nil {
		t.Error("a failed link request should not start a download")
	}
	if w.ImageURL() != "http://x/panda.jpg" {
		t.Errorf("failure changed ImageURL to %q", w.ImageURL())
	}
	if n := h.count(slog.LevelError); n != 1 {
		t.Errorf("error records = %d, want 1: %v", n, h.messages(slog.LevelError))
	}
}

func TestBackgroundDownloadFailureLogsOnce(t *testing.T) {
	h := &recordHandler{}
	images := constLink("http://x/panda.jpg")
	images.picture = func(string) (image.Image, error) { return nil, errNetwork }
	w := NewBackgroundWidget(images, nil, 0, testOptions(h))

	w.Update(runOne(t, w.Update(runOne(t, w.Init()))))
	if w.Picture() != nil {
		t.Error("failed download should leave no picture")
	}
	if w.ImageURL() != "http://x/panda.jpg" {
		t.Errorf("ImageURL = %q", w.ImageURL())
	}
	if n := h.count(slog.LevelError); n != 1 {
		t.Errorf("error records = %d, want 1", n)
	}
}

func TestBackgroundRefreshDownloadFailureKeepsPicture(t *testing.T) {
	h := &recordHandler{}
	images := &fakeImages{link: func(n int) (string, error) {
		return []string{"", "http://x/a.jpg", "http://x/b.jpg"}[n], nil
	}}
	images.picture = func(link string) (image.Image, error) {
		if link == "http://x/b.jpg" {
			return nil, errNetwork
		}
		return solid(4, 4), nil
	}
	renderer := &fakeRenderer{}
	w := NewBackgroundWidget(images, renderer, 0, testOptions(h))

	w.Update(runOne(t, w.Update(runOne(t, w.Init()))))
	first := w.Picture()
	if first == nil {
		t.Fatal("first picture should be downloaded")
	}

	download := w.Update(runOne(t, w.Refresh()))
	if download == nil {
		t.Fatal("a new link should start a download")
	}
	if w.Picture() != first || w.ShownURL() != "http://x/a.jpg" {
		t.Error("old picture should stay while the new one downloads")
	}

	w.Update(runOne(t, download))
	if w.ImageURL() != "http://x/b.jpg" {
		t.Errorf("ImageURL = %q, want the newest link", w.ImageURL())
	}
	if w.Picture() != first || w.ShownURL() != "http://x/a.jpg" {
		t.Errorf("failed download replaced the picture: shown %q", w.ShownURL())
	}
	if n := h.count(slog.LevelError); n != 1 {
		t.Errorf("error records = %d, want 1: %v", n, h.messages(slog.LevelError))
	}

	lines := strings.Split(w.View(12, 3), "\n")
	if len(lines) != 3 || lines[1] != strings.Repeat("#", 12) {
		t.Errorf("view should still paint the old picture, got %q", lines)
	}
}

func TestBackgroundSameLinkSkipsDownload(t *testing.T) {
	images := constLink("http://x/panda.jpg")
	w := NewBackgroundWidget(images, nil, 0, Options{})

	w.Update(runOne(t, w.Update(runOne(t, w.Init()))))
	if cmd := w.Update(runOne(t, w.Refresh())); cmd != nil {
		t.Error("the picture for an unchanged link should not be downloaded again")
	}
	if images.imageCalls.Load() != 1 {
		t.Errorf("image calls = %d, want 1", images.imageCalls.Load())
	}
}

func TestBackgroundView(t *testing.T) {
	renderer := &fakeRenderer{}
	w := NewBackgroundWidget(constLink("http://x/panda.jpg"), renderer, 0, Options{})
	w.Update(runOne(t, w.Update(runOne(t, w.Init()))))

	lines := strings.Split(w.View(12, 5), "\n")
	if len(lines) != 5 {
		t.Fatalf("view has %d lines, want button plus 4 picture rows", len(lines))
	}
	if !strings.Contains(lines[0], "Panda Background") {
		t.Errorf("first line = %q, want the button", lines[0])
	}
	for _, l := range lines[1:] {
		if l != strings.Repeat("#", 12) {
			t.Errorf("picture row = %q, want full width", l)
		}
	}

	renderer.err = errors.New("boom")
	if view := w.View(40, 3); !strings.Contains(view, "http://x/panda.jpg") {
		t.Errorf("render failure should fall back to the link, got %q", view)
	}
}

func TestBackgroundFixedRows(t *testing.T) {
	w := NewBackgroundWidget(constLink("l"), nil, 12, Options{})
	if got := w.HeightFor(80); got != 13 {
		t.Errorf("HeightFor = %d, want 13", got)
	}
	if got := NewBackgroundWidget(constLink("l"), nil, 0, Options{}).HeightFor(80); got != 0 {
		t.Errorf("HeightFor without rows = %d, want 0 (fill)", got)
	}
}

func TestNavBarTypingUpdatesQueryOnly(t *testing.T) {
	h := &recordHandler{}
	facts := constFact("x")
	images := constLink("l")
	nav := NewNavBar(testOptions(h))
	fact := NewFactWidget(facts, testOptions(h))
	bg := NewBackgroundWidget(images, nil, 0, testOptions(h))
	m := app.NewAppModel(app.DefaultConfig(), nav, fact, bg)

	update := func(msg tea.Msg) {
		updated, _ := m.Update(msg)
		m = updated.(app.AppModel)
	}

	update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !nav.CapturesKeys() {
		t.Fatal("search shortcut should put the cursor in the search box")
	}
	for _, r := range "qfr bamboo" {
		typ := tea.KeyRunes
		if r == ' ' {
			typ = tea.KeySpace
		}
		update(tea.KeyMsg{Type: typ, Runes: []rune{r}})
	}

	if nav.Query() != "qfr bamboo" {
		t.Errorf("query = %q", nav.Query())
	}
	if nav.Edits() != 10 {
		t.Errorf("edits = %d, want 10", nav.Edits())
	}
	if m.Quitting() {
		t.Error("typing q into the search box must not quit")
	}
	if facts.calls.Load() != 0 || images.linkCalls.Load() != 0 {
		t.Error("typing must not issue requests")
	}
	if fact.Pending() != 0 || bg.Pending() != 0 {
		t.Error("typing must not trigger widgets")
	}
}

func TestNavBarSubmitOnlyLogs(t *testing.T) {
	h := &recordHandler{}
	nav := NewNavBar(testOptions(h))
	nav.Trigger()
	nav.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("panda")})

	if cmd := nav.HandleKey(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("submit must not return a command")
	}
	if nav.Query() != "panda" {
		t.Errorf("submit changed query to %q", nav.Query())
	}
	if got := h.messages(slog.LevelInfo); len(got) != 1 || got[0] != "search submitted" {
		t.Errorf("info records = %v, want one submit record", got)
	}
}

func TestNavBarEscReleasesKeys(t *testing.T) {
	nav := NewNavBar(Options{})
	if nav.CapturesKeys() {
		t.Fatal("search box should start without the cursor")
	}
	nav.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	if !nav.CapturesKeys() {
		t.Fatal("enter should put the cursor in the search box")
	}
	nav.HandleKey(tea.KeyMsg{Type: tea.KeyEsc})
	if nav.CapturesKeys() {
		t.Error("esc should release the search box")
	}

	nav.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	nav.Blur()
	if nav.CapturesKeys() {
		t.Error("losing focus should release the search box")
	}
}

func TestNavBarView(t *testing.T) {
	nav := NewNavBar(Options{})
	view := nav.View(60, 2)
	lines := strings.Split(view, "\n")
	if len(lines) != 2 {
		t.Fatalf("view has %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "Random Panda") || !strings.Contains(lines[0], "earch") {
		t.Errorf("bar = %q, want brand and search placeholder", lines[0])
	}
	if !strings.Contains(lines[1], "─") {
		t.Errorf("second line = %q, want a rule", lines[1])
	}
}
