package session

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strings"
	"testing"
	"time"

	"parsons-cli/internal/auditlog"
	"parsons-cli/internal/codec"
	"parsons-cli/internal/config"
	"parsons-cli/internal/exercise"
	"parsons-cli/internal/model"
	"parsons-cli/internal/nav"
	"parsons-cli/internal/reorder"
	"parsons-cli/internal/store"
)

func tpl(text string) model.LineTemplate {
	segs := strings.Split(text, codec.BlankMarker)
	var prefill []string
	if len(segs) > 1 {
		prefill = make([]string, len(segs)-1)
	}
	return model.LineTemplate{Segments: segs, Prefill: prefill}
}

func testExercise(w config.Widget) *exercise.Exercise {
	return &exercise.Exercise{
		ID:       "ex1",
		FileName: exercise.DefaultFileName,
		Widget:   w,
		Layout: model.Layout{
			Starter:  &model.TraySpec{Lines: []model.LineTemplate{tpl("a = 1"), tpl("if !BLANK:")}},
			Solution: &model.TraySpec{Lines: []model.LineTemplate{tpl("def f(!BLANK, !BLANK):")}},
		},
	}
}

func clock() func() time.Time {
	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Millisecond)
	}
}

func open(t *testing.T, b store.Backend, w config.Widget, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithClock(clock()), WithClipboard(nil, nil)}, opts...)
	s, err := New(context.Background(), testExercise(w), store.NewSinks(b, ""), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func tags(t *testing.T, s *Session) []string {
	t.Helper()
	es, err := s.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	var out []string
	for _, e := range es {
		out = append(out, e.Tag)
	}
	return out
}

func key(t *testing.T, s *Session, ev nav.KeyEvent) nav.Action {
	t.Helper()
	a, err := s.HandleKey(context.Background(), ev, nav.Cursor{})
	if err != nil {
		t.Fatalf("HandleKey(%v): %v", ev.Key, err)
	}
	return a
}

func TestNew_LogsProblemOpened(t *testing.T) {
	mem := store.NewMemory()
	s := open(t, mem, config.DefaultWidget())
	if got := tags(t, s); len(got) != 1 || got[0] != auditlog.TagProblemOpened {
		t.Fatalf("unexpected log %v", got)
	}
	if f := s.Focused(); f != nav.Codeline("0.0") {
		t.Fatalf("initial focus: got %v", f)
	}
	if s.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestNew_MissingSolutionTray(t *testing.T) {
	ex := testExercise(config.DefaultWidget())
	ex.Layout.Solution = nil
	if _, err := New(context.Background(), ex, store.NewSinks(store.NewMemory(), "")); err != model.ErrMissingSolutionTray {
		t.Fatalf("expected ErrMissingSolutionTray, got %v", err)
	}
}

func TestHandleKey_TabMovesStarterLineThenIndents(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	s := open(t, mem, config.DefaultWidget())

	a := key(t, s, nav.KeyEvent{Key: nav.KeyTab})
	if a.Kind != nav.ActMoveLineHorizontal {
		t.Fatalf("expected horizontal move, got %v", a.Kind)
	}
	sol, _, _ := mem.Get(ctx, store.SlotSolution)
	if sol != "def f(, ):\na = 1\n" {
		t.Fatalf("unexpected solution %q", sol)
	}

	key(t, s, nav.KeyEvent{Key: nav.KeyTab})
	sol, _, _ = mem.Get(ctx, store.SlotSolution)
	if sol != "def f(, ):\n    a = 1\n" {
		t.Fatalf("unexpected solution after indent %q", sol)
	}
	if s.MaxIndent() != 1 {
		t.Fatalf("max indent: got %d", s.MaxIndent())
	}

	key(t, s, nav.KeyEvent{Key: nav.KeyTab, Shift: true})
	key(t, s, nav.KeyEvent{Key: nav.KeyTab, Shift: true})
	want := []string{auditlog.TagProblemOpened, auditlog.TagAddOutput, auditlog.TagReindent, auditlog.TagReindent}
	if got := tags(t, s); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("log: got %v want %v", got, want)
	}

	order, _, _ := mem.Get(ctx, store.SlotSolutionOrder)
	xs, err := codec.DecodeSummaries(order)
	if err != nil || len(xs) != 2 || xs[1].ID != "0.0" {
		t.Fatalf("unexpected solution order %q (%v)", order, err)
	}
}

func TestHandleKey_VerticalMotion(t *testing.T) {
	s := open(t, store.NewMemory(), config.DefaultWidget())

	key(t, s, nav.KeyEvent{Key: nav.KeyDown})
	if s.Focused() != nav.Codeline("0.1") {
		t.Fatalf("cursor down: got %v", s.Focused())
	}
	key(t, s, nav.KeyEvent{Key: nav.KeyUp, Alt: true})
	got := s.Document().LinesOf(model.TrayStarter)
	if got[0].ID != "0.1" || s.Focused() != nav.Codeline("0.1") {
		t.Fatalf("line up: got %s first, focus %v", got[0].ID, s.Focused())
	}
	if tg := tags(t, s); tg[len(tg)-1] != auditlog.TagMoveInput {
		t.Fatalf("expected moveInput, got %v", tg)
	}
	// Already at the top: nothing changes and nothing is logged.
	before := len(tags(t, s))
	key(t, s, nav.KeyEvent{Key: nav.KeyUp, Alt: true})
	if len(tags(t, s)) != before {
		t.Fatalf("boundary move must not log")
	}
}

func TestHandleKey_CursorAcrossTrays(t *testing.T) {
	s := open(t, store.NewMemory(), config.DefaultWidget())
	key(t, s, nav.KeyEvent{Key: nav.KeyRight})
	if s.Focused() != nav.Codeline("1.0") {
		t.Fatalf("cursor right: got %v", s.Focused())
	}
	if len(s.Document().LinesOf(model.TrayStarter)) != 2 {
		t.Fatalf("cursor motion must not move lines")
	}
}

func TestHandleKey_BlankNavigation(t *testing.T) {
	s := open(t, store.NewMemory(), config.DefaultWidget())
	if err := s.Focus(nav.Codeline("1.0")); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	key(t, s, nav.KeyEvent{Key: nav.KeyEnter})
	if s.Focused() != nav.BlankAt("1.0", 0) {
		t.Fatalf("enter: got %v", s.Focused())
	}
	key(t, s, nav.KeyEvent{Key: nav.KeyTab})
	if s.Focused() != nav.BlankAt("1.0", 1) {
		t.Fatalf("tab between blanks: got %v", s.Focused())
	}
	// Global order is starter blanks then solution blanks: 0.1#0, 1.0#0, 1.0#1.
	key(t, s, nav.KeyEvent{Key: nav.KeyEnter})
	if s.Focused() != nav.BlankAt("0.1", 0) {
		t.Fatalf("enter wrap: got %v", s.Focused())
	}
	key(t, s, nav.KeyEvent{Key: nav.KeyEscape})
	if s.Focused() != nav.Codeline("0.1") {
		t.Fatalf("escape: got %v", s.Focused())
	}
	key(t, s, nav.KeyEvent{Key: nav.KeyEscape})
	if f := s.Focused(); f.Kind != nav.FocusNone || !f.Suppressed {
		t.Fatalf("escape from line: got %+v", f)
	}
	if a := key(t, s, nav.KeyEvent{Key: nav.KeyTab}); a.Kind != nav.ActNone {
		t.Fatalf("keys without focus must be ignored, got %v", a.Kind)
	}
}

func TestSetBlank(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	s := open(t, mem, config.DefaultWidget())
	if err := s.SetBlank(ctx, "1.0", 1, "b"); err != nil {
		t.Fatalf("SetBlank: %v", err)
	}
	sol, _, _ := mem.Get(ctx, store.SlotSolution)
	meta, _, _ := mem.Get(ctx, store.SlotMetadata)
	if sol != "def f(, b):\n" {
		t.Fatalf("solution %q", sol)
	}
	if meta != "#!ORIGINALdef f(!BLANK, !BLANK): #blank #blankb\n" {
		t.Fatalf("metadata %q", meta)
	}
	if got := tags(t, s); got[len(got)-1] != auditlog.TagEditBlank {
		t.Fatalf("expected editBlank, got %v", got)
	}
	if err := s.SetBlank(ctx, "1.0", 5, "x"); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if err := s.SetBlank(ctx, "9.9", 0, "x"); err == nil {
		t.Fatalf("expected unknown line error")
	}
}

func TestDrop_IndentFromPixels(t *testing.T) {
	w := config.DefaultWidget()
	w.CharWidthPx = 8
	w.IndentUnitChars = 4
	mem := store.NewMemory()
	s := open(t, mem, w)
	ok, err := s.Drop(context.Background(), reorder.DragEvent{
		From: model.TrayStarter, FromIndex: 0, To: model.TraySolution, ToIndex: 5, OffsetPx: 200,
	})
	if err != nil || !ok {
		t.Fatalf("Drop: ok=%v err=%v", ok, err)
	}
	l, _ := s.Document().Line("0.0")
	if l.Indent() != 6 || s.Document().IndexOf(l) != 1 {
		t.Fatalf("expected indent 6 at index 1, got %d at %d", l.Indent(), s.Document().IndexOf(l))
	}
	got := tags(t, s)
	if got[len(got)-2] != auditlog.TagReindent || got[len(got)-1] != auditlog.TagAddOutput {
		t.Fatalf("unexpected log tail %v", got)
	}

	ok, _ = s.Drop(context.Background(), reorder.DragEvent{From: model.TrayStarter, FromIndex: 7, To: model.TraySolution})
	if ok {
		t.Fatalf("drop of unknown source must be rejected")
	}
}

type flaky struct {
	*store.Memory
	missing map[string]bool
}

func (f *flaky) Put(ctx context.Context, key, value string) error {
	if f.missing[key] {
		return store.SlotMissingError{Slot: key}
	}
	return f.Memory.Put(ctx, key, value)
}

func TestMissingSinkIsWarningAndRecovers(t *testing.T) {
	ctx := context.Background()
	b := &flaky{Memory: store.NewMemory(), missing: map[string]bool{store.SlotSolution: true}}
	s := open(t, b, config.DefaultWidget())

	if _, err := s.HandleKey(ctx, nav.KeyEvent{Key: nav.KeyTab}, nav.Cursor{}); err != nil {
		t.Fatalf("missing sink must not be an error: %v", err)
	}
	ws := s.Warnings()
	if len(ws) != 1 || !strings.Contains(ws[0], store.SlotSolution) {
		t.Fatalf("expected one warning naming the slot, got %v", ws)
	}
	if len(s.Document().LinesOf(model.TraySolution)) != 2 {
		t.Fatalf("document state must still change")
	}

	b.missing = map[string]bool{}
	key(t, s, nav.KeyEvent{Key: nav.KeyTab})
	if ws := s.Warnings(); len(ws) != 0 {
		t.Fatalf("expected warnings cleared, got %v", ws)
	}
	if sol, ok, _ := b.Get(ctx, store.SlotSolution); !ok || !strings.Contains(sol, "a = 1") {
		t.Fatalf("solution not written after recovery: %q", sol)
	}
}

func TestNilLogSlotWarns(t *testing.T) {
	sinks := store.NewSinks(store.NewMemory(), "")
	sinks.Log = nil
	s, err := New(context.Background(), testExercise(config.DefaultWidget()), sinks, WithClipboard(nil, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ws := s.Warnings(); len(ws) != 1 || !strings.Contains(ws[0], store.SlotLog) {
		t.Fatalf("expected log slot warning, got %v", ws)
	}
}

func TestRestoreFromProgress(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	s := open(t, mem, config.DefaultWidget())
	key(t, s, nav.KeyEvent{Key: nav.KeyTab})
	key(t, s, nav.KeyEvent{Key: nav.KeyTab})
	if err := s.SetBlank(ctx, "1.0", 0, "x"); err != nil {
		t.Fatalf("SetBlank: %v", err)
	}

	again := open(t, mem, config.DefaultWidget())
	if got, want := again.Solution().Solution, s.Solution().Solution; got != want {
		t.Fatalf("restored solution %q, want %q", got, want)
	}
	if n := len(again.Document().LinesOf(model.TrayStarter)); n != 1 {
		t.Fatalf("restored starter has %d lines", n)
	}
	var log []json.RawMessage
	v, _, _ := mem.Get(ctx, store.SlotLog)
	if err := json.Unmarshal([]byte(v), &log); err != nil || len(log) != 5 {
		t.Fatalf("log must keep growing across sessions: %d entries (%v)", len(log), err)
	}
}

func TestRestore_EmptyStarterRecord(t *testing.T) {
	mem := store.NewMemory()
	s := open(t, mem, config.DefaultWidget())
	for _, id := range []string{"0.0", "0.1"} {
		if err := s.Focus(nav.Codeline(id)); err != nil {
			t.Fatalf("Focus(%s): %v", id, err)
		}
		key(t, s, nav.KeyEvent{Key: nav.KeyTab})
	}
	if n := len(s.Document().LinesOf(model.TrayStarter)); n != 0 {
		t.Fatalf("starter should be empty, has %d lines", n)
	}

	again := open(t, mem, config.DefaultWidget())
	if n := len(again.Document().LinesOf(model.TrayStarter)); n != 0 {
		t.Fatalf("restored starter has %d lines", n)
	}
	if got, want := again.Solution().Solution, s.Solution().Solution; got != want {
		t.Fatalf("restored solution %q, want %q", got, want)
	}
}

func TestExport_FireAndForget(t *testing.T) {
	got := make(chan string, 1)
	w := config.DefaultWidget()
	w.Language = "java"
	s := open(t, store.NewMemory(), w, WithClipboard(func(text string) error {
		got <- text
		return nil
	}, nil))
	text := s.Export()
	want := "# a = 1\n# if BLANK:\ndef f(BLANK, BLANK):"
	if text != want {
		t.Fatalf("export %q want %q", text, want)
	}
	select {
	case c := <-got:
		if c != want {
			t.Fatalf("clipboard got %q", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("clipboard not written")
	}
}

func TestDescribe(t *testing.T) {
	s := open(t, store.NewMemory(), config.DefaultWidget())
	if err := s.SetBlank(context.Background(), "1.0", 0, "n"); err != nil {
		t.Fatalf("SetBlank: %v", err)
	}
	info, ok := s.Describe("1.0")
	if !ok || info.Number != 1 || info.Tray != model.TraySolution || info.Filled != 1 || len(info.Blanks) != 2 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestConservationUnderRandomKeys(t *testing.T) {
	s := open(t, store.NewMemory(), config.DefaultWidget())
	keys := []nav.Key{nav.KeyTab, nav.KeyEnter, nav.KeyEscape, nav.KeyLeft, nav.KeyRight, nav.KeyUp, nav.KeyDown}
	ids := func() []string {
		var out []string
		for _, l := range s.Document().Lines() {
			out = append(out, l.ID)
		}
		sort.Strings(out)
		return out
	}
	want := strings.Join(ids(), ",")
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		if s.Focused().Kind == nav.FocusNone {
			_ = s.Focus(nav.Codeline(s.Document().Lines()[r.Intn(3)].ID))
		}
		ev := nav.KeyEvent{Key: keys[r.Intn(len(keys))], Alt: r.Intn(2) == 0, Ctrl: r.Intn(4) == 0, Shift: r.Intn(3) == 0}
		if _, err := s.HandleKey(context.Background(), ev, nav.Cursor{}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := strings.Join(ids(), ","); got != want {
			t.Fatalf("step %d: lines changed %s -> %s", i, want, got)
		}
		for _, l := range s.Document().LinesOf(model.TrayStarter) {
			if l.Indent() != 0 {
				t.Fatalf("step %d: starter line %s has indent %d", i, l.ID, l.Indent())
			}
		}
		for _, l := range s.Document().Lines() {
			if l.Indent() < 0 {
				t.Fatalf("step %d: negative indent", i)
			}
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	a := open(t, store.NewMemory(), config.DefaultWidget(), WithID("a"))
	b := open(t, store.NewMemory(), config.DefaultWidget(), WithID("b"))
	if err := reg.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Add(a); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if got := strings.Join(reg.IDs(), ","); got != "a,b" {
		t.Fatalf("IDs: %s", got)
	}
	if s, ok := reg.Get("b"); !ok || s != b {
		t.Fatalf("Get")
	}
	all := reg.ExportAll()
	if len(all) != 2 || all[0].SessionID != "a" || all[0].Text != a.Plaintext() {
		t.Fatalf("ExportAll: %+v", all)
	}
	reg.Remove("a")
	if _, ok := reg.Get("a"); ok || len(reg.IDs()) != 1 {
		t.Fatalf("Remove")
	}
}

func TestWithoutOpenedEntry(t *testing.T) {
	mem := store.NewMemory()
	s := open(t, mem, config.DefaultWidget(), WithoutOpenedEntry())
	if got := tags(t, s); len(got) != 0 {
		t.Fatalf("expected no entries, got %v", got)
	}
	if _, ok, _ := mem.Get(context.Background(), store.SlotLog); ok {
		t.Fatalf("inspection must not write the log slot")
	}
}
