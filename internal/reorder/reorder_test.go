package reorder

import (
	"sort"
	"testing"

	"parsons-cli/internal/codec"
	"parsons-cli/internal/config"
	"parsons-cli/internal/indent"
	"parsons-cli/internal/model"
)

type logged struct {
	tag string
	sum codec.Summary
}

func setup(t *testing.T, w config.Widget, starter, solution []string) (*model.Document, *Engine, *[]logged) {
	t.Helper()
	toTpl := func(xs []string) []model.LineTemplate {
		out := make([]model.LineTemplate, len(xs))
		for i, x := range xs {
			out[i] = model.LineTemplate{Segments: []string{x}}
		}
		return out
	}
	layout := model.Layout{Solution: &model.TraySpec{Lines: toTpl(solution)}}
	if starter != nil {
		layout.Starter = &model.TraySpec{Lines: toTpl(starter)}
	}
	d, err := model.New(layout, w)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	e := New(d, indent.New(d), nil)
	var log []logged
	e.Emit = func(tag string, data any) {
		log = append(log, logged{tag: tag, sum: data.(codec.Summary)})
	}
	return d, e, &log
}

func texts(d *model.Document, tray model.TrayID) []string {
	var out []string
	for _, l := range d.LinesOf(tray) {
		out = append(out, l.Segments()[0])
	}
	return out
}

func same(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMoveVertical(t *testing.T) {
	d, e, log := setup(t, config.DefaultWidget(), []string{"a", "b", "c", "d"}, nil)
	lines := d.LinesOf(model.TrayStarter)

	if e.MoveVertical(lines[0], false, false) {
		t.Fatalf("expected no-op moving first line up")
	}
	if e.MoveVertical(lines[3], true, false) {
		t.Fatalf("expected no-op moving last line down")
	}
	if !e.MoveVertical(lines[1], true, false) {
		t.Fatalf("expected b to move down")
	}
	if got := texts(d, model.TrayStarter); !same(got, []string{"a", "c", "b", "d"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if !e.MoveVertical(lines[3], false, true) {
		t.Fatalf("expected d to jump to top")
	}
	if got := texts(d, model.TrayStarter); !same(got, []string{"d", "a", "c", "b"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if !e.MoveVertical(lines[3], true, true) {
		t.Fatalf("expected d to jump to bottom")
	}
	if got := texts(d, model.TrayStarter); !same(got, []string{"a", "c", "b", "d"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if len(*log) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(*log))
	}
	last := (*log)[2]
	if last.tag != TagMoveInput || last.sum.ID != lines[3].ID || last.sum.Index != 3 {
		t.Fatalf("unexpected last entry %+v", last)
	}
}

func TestMoveHorizontal_EmptyDestinationAppends(t *testing.T) {
	w := config.DefaultWidget()
	w.CharWidthPx = 8
	d, e, log := setup(t, w, []string{"a", "b"}, nil)
	b := d.LinesOf(model.TrayStarter)[1]

	if !e.MoveHorizontalBy(b, true, 200) {
		t.Fatalf("expected transfer")
	}
	if d.TrayOf(b) != model.TraySolution || d.IndexOf(b) != 0 {
		t.Fatalf("expected b at solution[0], got %s[%d]", d.TrayOf(b), d.IndexOf(b))
	}
	if b.Indent() != 6 {
		t.Fatalf("expected indent 6 from offset, got %d", b.Indent())
	}
	if len(*log) != 1 || (*log)[0].tag != TagAddOutput || (*log)[0].sum.Indent != 6 {
		t.Fatalf("unexpected log %+v", *log)
	}
}

func TestMoveHorizontal_NearestInsertion(t *testing.T) {
	// Both trays use unit rows starting at y=0, so starter[i] and solution[i] share a midpoint.
	d, e, _ := setup(t, config.DefaultWidget(), []string{"s0", "s1", "s2", "s3"}, []string{"o0", "o1"})
	s := d.LinesOf(model.TrayStarter)

	// s3 mid 3.5; nearest is o1 (1.5) which is above => insert after.
	if !e.MoveHorizontal(s[3], true) {
		t.Fatalf("expected transfer")
	}
	if got := texts(d, model.TraySolution); !same(got, []string{"o0", "o1", "s3"}) {
		t.Fatalf("unexpected solution %v", got)
	}
	// s0 mid 0.5; nearest o0 (0.5), not below => after.
	e.MoveHorizontal(s[0], true)
	if got := texts(d, model.TraySolution); !same(got, []string{"o0", "s0", "o1", "s3"}) {
		t.Fatalf("unexpected solution %v", got)
	}
}

func TestMoveHorizontal_InsertBeforeLowerCandidate(t *testing.T) {
	d, _, _ := setup(t, config.DefaultWidget(), []string{"s0"}, []string{"o0", "o1"})
	geo := RowGeometry{RowHeight: 1, Offsets: map[model.TrayID]float64{model.TraySolution: 0.75}}
	e := New(d, indent.New(d), geo)
	s0 := d.LinesOf(model.TrayStarter)[0]
	// s0 mid 0.5; o0 mid 1.25 is nearest and below => insert before.
	e.MoveHorizontal(s0, true)
	if got := texts(d, model.TraySolution); !same(got, []string{"s0", "o0", "o1"}) {
		t.Fatalf("unexpected solution %v", got)
	}
}

func TestMoveHorizontal_TieGoesToFirst(t *testing.T) {
	d, _, _ := setup(t, config.DefaultWidget(), []string{"s0"}, []string{"o0", "o1"})
	geo := RowGeometry{RowHeight: 1, Offsets: map[model.TrayID]float64{model.TraySolution: -0.5}}
	e := New(d, indent.New(d), geo)
	// s0 mid 0.5; o0 mid 0.0 and o1 mid 1.0 are equidistant; o0 wins and lies above => after o0.
	e.MoveHorizontal(d.LinesOf(model.TrayStarter)[0], true)
	if got := texts(d, model.TraySolution); !same(got, []string{"o0", "s0", "o1"}) {
		t.Fatalf("unexpected solution %v", got)
	}
}

func TestMoveHorizontal_BackZeroesIndentAndLogsRemove(t *testing.T) {
	d, e, log := setup(t, config.DefaultWidget(), []string{"s0"}, []string{"o0"})
	o0 := d.LinesOf(model.TraySolution)[0]
	d.SetIndent(o0, 3)
	if e.MoveHorizontal(o0, true) {
		t.Fatalf("forward from solution must be a no-op")
	}
	if !e.MoveHorizontal(o0, false) {
		t.Fatalf("expected transfer back to starter")
	}
	if o0.Indent() != 0 || d.TrayOf(o0) != model.TrayStarter {
		t.Fatalf("expected starter with indent 0")
	}
	if (*log)[0].tag != TagRemoveOutput {
		t.Fatalf("expected removeOutput, got %s", (*log)[0].tag)
	}
}

func TestMoveHorizontal_KeyboardKeepsIndent(t *testing.T) {
	d, e, _ := setup(t, config.DefaultWidget(), []string{"s0"}, nil)
	s0 := d.LinesOf(model.TrayStarter)[0]
	e.MoveHorizontal(s0, true)
	if s0.Indent() != 0 {
		t.Fatalf("expected indent unchanged")
	}
}

func TestMoveHorizontal_NoStarterIsNoop(t *testing.T) {
	d, e, log := setup(t, config.DefaultWidget(), nil, []string{"o0"})
	o0 := d.LinesOf(model.TraySolution)[0]
	if e.MoveHorizontal(o0, false) || e.MoveHorizontal(o0, true) {
		t.Fatalf("expected horizontal motion to be a no-op without a starter tray")
	}
	if len(*log) != 0 {
		t.Fatalf("expected no log entries")
	}
}

func TestDrop(t *testing.T) {
	w := config.DefaultWidget()
	w.CharWidthPx = 2
	d, e, log := setup(t, w, []string{"s0", "s1"}, []string{"o0"})

	if !e.Drop(DragEvent{From: model.TrayStarter, FromIndex: 1, To: model.TraySolution, ToIndex: 0, OffsetPx: 16}) {
		t.Fatalf("expected drop to apply")
	}
	s1, _ := d.Line("0.1")
	if d.IndexOf(s1) != 0 || s1.Indent() != 2 {
		t.Fatalf("expected s1 at solution[0] indent 2, got %d/%d", d.IndexOf(s1), s1.Indent())
	}
	// Dragging left within the solution tray dedents.
	if !e.Drop(DragEvent{From: model.TraySolution, FromIndex: 0, To: model.TraySolution, ToIndex: 0, OffsetPx: -8}) {
		t.Fatalf("expected dedent drop to apply")
	}
	if s1.Indent() != 1 {
		t.Fatalf("expected indent 1, got %d", s1.Indent())
	}
	if e.Drop(DragEvent{From: model.TraySolution, FromIndex: 0, To: model.TraySolution, ToIndex: 0}) {
		t.Fatalf("expected no-op drop to report false")
	}
	if e.Drop(DragEvent{From: model.TrayStarter, FromIndex: 7, To: model.TraySolution}) {
		t.Fatalf("expected unknown source to report false")
	}
	tags := []string{(*log)[0].tag, (*log)[1].tag}
	if !same(tags, []string{TagAddOutput, TagMoveOutput}) {
		t.Fatalf("unexpected tags %v", tags)
	}
}

func TestConservationAndStarterZeroing(t *testing.T) {
	d, e, _ := setup(t, config.DefaultWidget(), []string{"a", "b", "c"}, []string{"x", "y"})
	all := func() []string {
		var out []string
		for _, l := range d.Lines() {
			out = append(out, l.ID)
		}
		sort.Strings(out)
		return out
	}
	before := all()
	steps := []func(){
		func() { e.MoveHorizontal(d.LinesOf(model.TrayStarter)[0], true) },
		func() { e.MoveVertical(d.LinesOf(model.TraySolution)[0], true, true) },
		func() { d.SetIndent(d.LinesOf(model.TraySolution)[1], 4) },
		func() { e.MoveHorizontal(d.LinesOf(model.TraySolution)[1], false) },
		func() {
			e.Drop(DragEvent{From: model.TraySolution, FromIndex: 0, To: model.TrayStarter, ToIndex: 9, OffsetPx: 99})
		},
		func() { e.MoveVertical(d.LinesOf(model.TrayStarter)[2], false, false) },
	}
	for i, step := range steps {
		step()
		if got := all(); !same(got, before) {
			t.Fatalf("step %d: line set changed %v -> %v", i, before, got)
		}
		for _, l := range d.LinesOf(model.TrayStarter) {
			if l.Indent() != 0 {
				t.Fatalf("step %d: starter line %s has indent %d", i, l.ID, l.Indent())
			}
		}
	}
}
