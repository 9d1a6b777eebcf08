package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"

	"parsons-cli/internal/auditlog"
	"parsons-cli/internal/codec"
	"parsons-cli/internal/exercise"
	"parsons-cli/internal/indent"
	"parsons-cli/internal/logging"
	"parsons-cli/internal/model"
	"parsons-cli/internal/nav"
	"parsons-cli/internal/reorder"
	"parsons-cli/internal/store"
)

// Session is one open exercise: the document plus everything that reacts to it.
// It is not safe for concurrent use; the host delivers one event at a time.
type Session struct {
	ID       string
	Exercise *exercise.Exercise

	doc    *model.Document
	indent *indent.Model
	engine *reorder.Engine
	log    *auditlog.Log
	sinks  store.Sinks
	logger *logging.Logger

	focus     nav.Focus
	guides    int
	pending   []pendingEntry
	warnings  []string
	clip      func(string) error
	clipDone  func(error)
	geometry  reorder.Geometry
	mirror    store.EntryMirror
	now       func() time.Time
	sessionID string
	inspect   bool
}

type pendingEntry struct {
	tag  string
	data any
}

type Option func(*Session)

func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGeometry sets the midpoint source used by horizontal motion.
func WithGeometry(g reorder.Geometry) Option {
	return func(s *Session) { s.geometry = g }
}

// WithMirror copies every log entry into m as well as the log slot.
func WithMirror(m store.EntryMirror) Option {
	return func(s *Session) { s.mirror = m }
}

// WithClipboard replaces the clipboard writer used by Export. done, if set, receives the
// write result.
func WithClipboard(write func(string) error, done func(error)) Option {
	return func(s *Session) {
		s.clip = write
		s.clipDone = done
	}
}

// WithoutOpenedEntry skips the problemOpened entry, for read-only inspection of stored progress.
func WithoutOpenedEntry() Option {
	return func(s *Session) { s.inspect = true }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.sessionID = id
		}
	}
}

// New builds a session for ex over sinks: the document is constructed (failing loudly on a
// structural problem), restored from the order slots when they hold progress, and a
// problemOpened entry is logged.
func New(ctx context.Context, ex *exercise.Exercise, sinks store.Sinks, opts ...Option) (*Session, error) {
	if ex == nil {
		return nil, errors.New("session: missing exercise")
	}
	doc, err := model.New(ex.Layout, ex.Widget)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Exercise: ex,
		doc:      doc,
		sinks:    sinks,
		logger:   logging.Nop(),
		clip:     clipboard.WriteAll,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessionID == "" {
		s.sessionID = uuid.NewString()
	}
	s.ID = s.sessionID
	s.logger = s.logger.With("session", s.ID, "exercise", ex.ID)

	s.indent = indent.New(doc)
	s.indent.OnChange = func(l *model.CodeLine, c indent.Change) {
		s.pending = append(s.pending, pendingEntry{tag: auditlog.TagReindent, data: reindentData{ID: l.ID, Change: c}})
	}
	s.indent.OnGuides = func(deepest int) { s.guides = deepest }

	s.engine = reorder.New(doc, s.indent, s.geometry)
	s.engine.Emit = func(tag string, data any) {
		s.pending = append(s.pending, pendingEntry{tag: tag, data: data})
	}

	s.log = auditlog.New(sinks.Log, s.ID, s.mirror)
	s.log.SetClock(s.now)

	s.restore(ctx)
	s.guides = indent.MaxIndent(doc, model.TraySolution)
	if first := s.firstLine(); first != nil {
		s.focus = nav.Codeline(first.ID)
	}

	p := codec.Snapshot(doc)
	if s.inspect {
		return s, nil
	}
	s.pending = append(s.pending, pendingEntry{tag: auditlog.TagProblemOpened, data: openedData{
		SessionID:  s.ID,
		ExerciseID: ex.ID,
		Starter:    nonNil(p.Starter),
		Solution:   nonNil(p.Solution),
	}})
	if err := s.flush(ctx); err != nil {
		return nil, err
	}
	s.logger.Debug("session opened", "starter", len(p.Starter), "solution", len(p.Solution))
	return s, nil
}

type reindentData struct {
	ID string `json:"id"`
	indent.Change
}

type openedData struct {
	SessionID  string          `json:"sessionId"`
	ExerciseID string          `json:"exerciseId"`
	Starter    []codec.Summary `json:"starter"`
	Solution   []codec.Summary `json:"solution"`
}

type editBlankData struct {
	codec.Summary
	Blank int    `json:"blank"`
	Value string `json:"value"`
}

func nonNil(xs []codec.Summary) []codec.Summary {
	if xs == nil {
		return []codec.Summary{}
	}
	return xs
}

func (s *Session) restore(ctx context.Context) {
	read := func(slot *store.Slot) []codec.Summary {
		if slot == nil {
			return nil
		}
		v, ok, err := slot.Get(ctx)
		if err != nil {
			s.warn(fmt.Sprintf("read %s: %v", slot.Name(), err))
			return nil
		}
		if !ok {
			return nil
		}
		xs, err := codec.DecodeSummaries(v)
		if err != nil {
			s.warn(fmt.Sprintf("%s: %v", slot.Name(), err))
			return nil
		}
		return xs
	}
	p := codec.Progress{Starter: read(s.sinks.StarterOrder), Solution: read(s.sinks.SolutionOrder)}
	if len(p.Starter) == 0 && len(p.Solution) == 0 {
		return
	}
	n := codec.Restore(s.doc, p)
	s.logger.Debug("progress restored", "lines", n)
}

func (s *Session) Document() *model.Document { return s.doc }

func (s *Session) Focused() nav.Focus { return s.focus }

// MaxIndent is the deepest indent in the solution tray as of the last change.
func (s *Session) MaxIndent() int { return s.guides }

// Warnings lists problems from the most recent action (storage sinks that could not be
// written). A later successful write clears them.
func (s *Session) Warnings() []string { return append([]string(nil), s.warnings...) }

func (s *Session) Solution() codec.Code { return codec.SolutionCode(s.doc) }

func (s *Session) Progress() codec.Progress { return codec.Snapshot(s.doc) }

func (s *Session) Plaintext() string { return codec.Plaintext(s.doc) }

func (s *Session) Entries(ctx context.Context) ([]auditlog.Entry, error) {
	return s.log.Entries(ctx)
}

func (s *Session) warn(msg string) {
	s.warnings = append(s.warnings, msg)
	s.logger.Warn(msg)
}

func (s *Session) firstLine() *model.CodeLine {
	for _, tray := range s.doc.Trays() {
		if ls := s.doc.LinesOf(tray); len(ls) > 0 {
			return ls[0]
		}
	}
	return nil
}

func (s *Session) focusedLine() (*model.CodeLine, bool) {
	if s.focus.Kind == nav.FocusNone {
		return nil, false
	}
	return s.doc.Line(s.focus.LineID)
}

// Focus moves focus deliberately, clearing any Escape suppression. An unknown line or blank
// is rejected.
func (s *Session) Focus(f nav.Focus) error {
	f.Suppressed = false
	switch f.Kind {
	case nav.FocusNone:
		s.focus = f
		return nil
	case nav.FocusCodeline, nav.FocusBlank:
		l, ok := s.doc.Line(f.LineID)
		if !ok {
			return fmt.Errorf("unknown line %q", f.LineID)
		}
		if f.Kind == nav.FocusBlank && (f.Blank < 0 || f.Blank >= l.BlankCount()) {
			return fmt.Errorf("line %s has no blank %d", f.LineID, f.Blank)
		}
		s.focus = f
		return nil
	default:
		return fmt.Errorf("unknown focus kind %d", f.Kind)
	}
}

// Facts are the document facts the navigation table needs for the current focus.
func (s *Session) Facts(cur nav.Cursor) nav.Facts {
	w := s.doc.Settings()
	facts := nav.Facts{
		TotalBlanks:                 len(s.doc.AllBlanks()),
		Cursor:                      cur,
		AlwaysIndentOnTab:           w.AlwaysIndentOnTab,
		AllowIndentingInStarterTray: w.AllowIndentingInStarterTray,
	}
	l, ok := s.focusedLine()
	if !ok {
		return facts
	}
	facts.InStarter = s.doc.TrayOf(l) == model.TrayStarter
	facts.BlankCount = l.BlankCount()
	if s.focus.Kind == nav.FocusBlank {
		facts.GlobalBlank = s.doc.GlobalBlankIndex(l, s.focus.Blank)
	}
	return facts
}

// HandleKey runs one key event through the navigation table and applies the resulting
// action. Document changes are persisted and logged before it returns.
func (s *Session) HandleKey(ctx context.Context, ev nav.KeyEvent, cur nav.Cursor) (nav.Action, error) {
	l, _ := s.focusedLine()
	next, act := nav.Step(s.focus, ev, s.Facts(cur))
	s.focus = next
	if l == nil {
		return act, nil
	}
	before := s.doc.Revision()

	switch act.Kind {
	case nav.ActIndent:
		s.indent.Apply(l, act.Delta, false)
	case nav.ActMoveLineVertical:
		s.engine.MoveVertical(l, act.Forward, act.ToExtreme)
	case nav.ActMoveLineHorizontal:
		s.engine.MoveHorizontal(l, act.Forward)
	case nav.ActMoveCursorVertical:
		if sib, ok := s.sibling(l, act.Forward, act.ToExtreme); ok {
			s.focus = nav.Codeline(sib.ID)
		}
	case nav.ActMoveCursorHorizontal:
		if c, ok := s.across(l, act.Forward); ok {
			s.focus = nav.Codeline(c.ID)
		}
	case nav.ActFocusGlobalBlank:
		refs := s.doc.AllBlanks()
		if act.Blank >= 0 && act.Blank < len(refs) {
			s.focus = nav.BlankAt(refs[act.Blank].Line.ID, refs[act.Blank].Index)
		}
	case nav.ActPassThrough:
		// Tab between blanks of one line is the host's default focus traversal.
		if ev.Key == nav.KeyTab && s.focus.Kind == nav.FocusBlank {
			i := s.focus.Blank + 1
			if ev.Shift {
				i = s.focus.Blank - 1
			}
			if i >= 0 && i < l.BlankCount() {
				s.focus = nav.BlankAt(l.ID, i)
			}
		}
	}

	if s.doc.Revision() == before {
		s.pending = nil
		return act, nil
	}
	s.logger.Debug("key action", "key", ev.Key.String(), "action", act.Kind.String(), "line", l.ID)
	return act, s.commit(ctx)
}

// sibling is the line vertical cursor motion lands on within l's tray.
func (s *Session) sibling(l *model.CodeLine, forward, toExtreme bool) (*model.CodeLine, bool) {
	lines := s.doc.LinesOf(s.doc.TrayOf(l))
	i := s.doc.IndexOf(l)
	j := i - 1
	switch {
	case toExtreme && forward:
		j = len(lines) - 1
	case toExtreme:
		j = 0
	case forward:
		j = i + 1
	}
	if j < 0 || j >= len(lines) || j == i {
		return nil, false
	}
	return lines[j], true
}

// across is the nearest line in the adjacent tray, by vertical midpoint.
func (s *Session) across(l *model.CodeLine, forward bool) (*model.CodeLine, bool) {
	dst, ok := s.engine.Destination(l, forward)
	if !ok {
		return nil, false
	}
	geo := s.geometry
	if geo == nil {
		geo = reorder.RowGeometry{RowHeight: 1}
	}
	mid, ok := geo.Midpoint(s.doc, l)
	if !ok {
		return nil, false
	}
	c, _, ok := s.engine.Nearest(dst, mid)
	return c, ok
}

// Drop applies a completed pointer drag.
func (s *Session) Drop(ctx context.Context, ev reorder.DragEvent) (bool, error) {
	var moved string
	if src := s.doc.LinesOf(ev.From); ev.FromIndex >= 0 && ev.FromIndex < len(src) {
		moved = src[ev.FromIndex].ID
	}
	if !s.engine.Drop(ev) {
		s.pending = nil
		return false, nil
	}
	s.focus = nav.Codeline(moved)
	s.logger.Debug("drop", "line", moved, "from", ev.From, "to", ev.To, "offsetPx", ev.OffsetPx)
	return true, s.commit(ctx)
}

// SetBlank stores learner text for blank i of the line.
func (s *Session) SetBlank(ctx context.Context, lineID string, i int, value string) error {
	l, ok := s.doc.Line(lineID)
	if !ok {
		return fmt.Errorf("unknown line %q", lineID)
	}
	before := s.doc.Revision()
	if !s.doc.SetBlank(l, i, value) {
		return fmt.Errorf("line %s has no blank %d", lineID, i)
	}
	if s.doc.Revision() == before {
		return nil
	}
	s.pending = append(s.pending, pendingEntry{tag: auditlog.TagEditBlank, data: editBlankData{
		Summary: codec.Summarize(s.doc, l),
		Blank:   i,
		Value:   value,
	}})
	return s.commit(ctx)
}

// Export renders the plaintext view and hands it to the clipboard without waiting.
func (s *Session) Export() string {
	text := codec.Plaintext(s.doc)
	write, done, logger := s.clip, s.clipDone, s.logger
	if write != nil {
		go func() {
			err := write(text)
			if err != nil {
				logger.Warn("clipboard write failed", "err", err)
			}
			if done != nil {
				done(err)
			}
		}()
	}
	return text
}

// Describe returns the raw facts an assistive description of the line needs.
func (s *Session) Describe(lineID string) (LineInfo, bool) {
	l, ok := s.doc.Line(lineID)
	if !ok {
		return LineInfo{}, false
	}
	info := LineInfo{
		ID:        l.ID,
		Tray:      s.doc.TrayOf(l),
		Number:    s.doc.IndexOf(l) + 1,
		Indent:    indent.LevelOf(l),
		MaxIndent: s.guides,
		Blanks:    l.BlankValues(),
	}
	for _, v := range info.Blanks {
		if v != "" {
			info.Filled++
		}
	}
	return info, true
}

type LineInfo struct {
	ID        string       `json:"id"`
	Tray      model.TrayID `json:"tray"`
	Number    int          `json:"number"`
	Indent    int          `json:"indent"`
	MaxIndent int          `json:"maxIndent"`
	Blanks    []string     `json:"blanks"`
	Filled    int          `json:"filled"`
}

// commit writes every sink and then the pending log entries.
func (s *Session) commit(ctx context.Context) error {
	s.warnings = nil
	err := s.persist(ctx)
	if ferr := s.flush(ctx); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return err
}

func (s *Session) persist(ctx context.Context) error {
	p := codec.Snapshot(s.doc)
	starter, err := codec.EncodeSummaries(p.Starter)
	if err != nil {
		return err
	}
	solution, err := codec.EncodeSummaries(p.Solution)
	if err != nil {
		return err
	}
	code := codec.SolutionCode(s.doc)
	writes := []struct {
		name  string
		slot  *store.Slot
		value string
	}{
		{store.SlotStarterOrder, s.sinks.StarterOrder, starter},
		{store.SlotSolutionOrder, s.sinks.SolutionOrder, solution},
		{store.SlotSolution, s.sinks.Solution, code.Solution},
		{store.SlotMetadata, s.sinks.Metadata, code.Metadata},
	}
	var errs []error
	for _, w := range writes {
		var err error
		if w.slot == nil {
			err = store.SlotMissingError{Slot: w.name}
		} else {
			err = w.slot.Set(ctx, w.value)
		}
		if err != nil {
			errs = append(errs, s.sinkError(err))
		}
	}
	return errors.Join(errs...)
}

// flush appends pending entries in order. Missing log slots become warnings.
func (s *Session) flush(ctx context.Context) error {
	pending := s.pending
	s.pending = nil
	var errs []error
	for _, e := range pending {
		if _, err := s.log.Append(ctx, e.tag, e.data); err != nil {
			if s.sinks.Log == nil {
				err = store.SlotMissingError{Slot: store.SlotLog}
			}
			errs = append(errs, s.sinkError(err))
		}
	}
	return errors.Join(errs...)
}

// sinkError reports err as a warning. Missing slots are not returned: the document stays valid
// and the next successful write recovers.
func (s *Session) sinkError(err error) error {
	s.warn(err.Error())
	if errors.Is(err, store.ErrSlotMissing) {
		return nil
	}
	return err
}
